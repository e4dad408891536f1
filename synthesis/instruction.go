package synthesis

import (
	"context"
	"regexp"
	"strings"
)

// placeholderPattern matches {{{key}}} markers inside instruction templates.
var placeholderPattern = regexp.MustCompile(`\{\{\{([^{}]+)\}\}\}`)

// substitutePlaceholders replaces {{{key}}} markers with values from the
// given map. Keys without a value are removed entirely so a half-resolved
// template never leaks markers to the model.
func substitutePlaceholders(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(match, "{{{"), "}}}")
		return values[key]
	})
}

// systemInstruction resolves the instruction for a client. Any resolution
// failure falls back to the default instruction; synthesis never fails over
// a missing prompt.
func (s *Synthesizer) systemInstruction(ctx context.Context, clientID string) string {
	template := defaultInstruction

	if s.prompts != nil && clientID != "" {
		stored, err := s.prompts.GetInstruction(ctx, clientID)
		if err != nil {
			s.logger.Warn("instruction lookup failed, using default", "client", clientID, "error", err)
		} else if strings.TrimSpace(stored) != "" {
			template = stored
		}
	}

	return substitutePlaceholders(template, s.placeholders)
}
