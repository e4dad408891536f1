package synthesis

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

// Tool names exposed to the model. Dispatch is closed: a call naming
// anything else gets an error response, never a crash.
const (
	ToolSendLeadMagnetEmail = "send_lead_magnet_email"
	ToolSubmitContactForm   = "submit_contact_form"
	ToolListMeetingSlots    = "list_meeting_slots"
	ToolBookMeetingSlot     = "book_meeting_slot"
)

// toolErrorResponse is fed back to the model whenever an executor fails or
// an unknown tool is requested.
const toolErrorResponse = `{"error":true}`

// ExtraArgs carries context-specific values injected into tool executions
// beyond what the model supplies.
type ExtraArgs struct {
	// Timezone is the session's user timezone, consumed by the meeting tools.
	Timezone string
	// Transcript is a flattened conversation history attached to lead
	// capture submissions.
	Transcript string
}

// ToolExecutor is one entry of the closed dispatch table. Execute must not
// fail: transport and validation problems are reported as structured JSON
// the model can react to.
type ToolExecutor interface {
	// Name returns the tool name the model calls.
	Name() string
	// Definition returns the schema advertised to the model.
	Definition() llms.Tool
	// Execute runs the tool with the model-supplied JSON arguments.
	Execute(ctx context.Context, args string, extra ExtraArgs) string
}

// ToolSet is the closed dispatch table mapping tool names to executors.
type ToolSet struct {
	executors map[string]ToolExecutor
	defs      []llms.Tool
	logger    *slog.Logger
}

// NewToolSet builds a dispatch table from the given executors.
func NewToolSet(executors ...ToolExecutor) *ToolSet {
	ts := &ToolSet{
		executors: make(map[string]ToolExecutor, len(executors)),
		defs:      make([]llms.Tool, 0, len(executors)),
		logger:    slog.Default().With("component", "tools"),
	}
	for _, e := range executors {
		ts.executors[e.Name()] = e
		ts.defs = append(ts.defs, e.Definition())
	}
	return ts
}

// Definitions returns the tool schemas advertised to the model.
func (ts *ToolSet) Definitions() []llms.Tool {
	return ts.defs
}

// Execute dispatches one tool call. Unknown names and executor failures
// produce an error response, never an error return.
func (ts *ToolSet) Execute(ctx context.Context, name, args string, extra ExtraArgs) string {
	executor, ok := ts.executors[name]
	if !ok {
		ts.logger.Warn("unknown tool requested", "tool", name)
		return toolErrorResponse
	}

	result := executor.Execute(ctx, args, extra)
	ts.logger.Info("tool executed", "tool", name, "result_len", len(result))
	return result
}

func functionTool(name, description string, parameters map[string]any) llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
