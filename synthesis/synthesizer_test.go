package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/seamark/answerd/ai/mock"
	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

// stubPromptStore is a minimal storage.PromptStore for instruction tests.
type stubPromptStore struct {
	instructions map[string]string
	err          error
}

var _ storage.PromptStore = (*stubPromptStore)(nil)

func (s *stubPromptStore) GetInstruction(ctx context.Context, clientID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	instruction, ok := s.instructions[clientID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return instruction, nil
}

func (s *stubPromptStore) PutInstruction(ctx context.Context, clientID, instruction string) error {
	s.instructions[clientID] = instruction
	return nil
}

func (s *stubPromptStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *stubPromptStore) Close() error { return nil }

// fakeExecutor records its invocation and returns a fixed result.
type fakeExecutor struct {
	name     string
	result   string
	gotArgs  string
	gotExtra ExtraArgs
	calls    int
}

func (f *fakeExecutor) Name() string { return f.name }

func (f *fakeExecutor) Definition() llms.Tool {
	return functionTool(f.name, "test tool", map[string]any{"type": "object"})
}

func (f *fakeExecutor) Execute(ctx context.Context, args string, extra ExtraArgs) string {
	f.calls++
	f.gotArgs = args
	f.gotExtra = extra
	return f.result
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}},
		}},
	}
}

func testSession() *core.Session {
	return &core.Session{ID: "sess-1", ClientID: "client-1", Timezone: "UTC"}
}

func TestSynthesize_StreamsPlainAnswer(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.Responses = []*llms.ContentResponse{mock.TextResponse("We handle migrations end to end.")}
	synth := NewSynthesizer(chat, nil)

	var chunks []string
	answer, err := synth.Synthesize(context.Background(), Request{
		Question: "do you do migrations?",
		Session:  testSession(),
	}, func(chunk string) { chunks = append(chunks, chunk) })

	require.NoError(t, err)
	assert.Equal(t, "We handle migrations end to end.", answer)
	assert.Equal(t, answer, strings.Join(chunks, ""))
	assert.Equal(t, 1, chat.CallCount())
}

func TestSynthesize_ToolLoopFeedsResultBackToModel(t *testing.T) {
	executor := &fakeExecutor{name: "lookup_thing", result: `{"found":true}`}
	chat := mock.NewMockChatModel()
	chat.Responses = []*llms.ContentResponse{
		toolCallResponse("call_1", "lookup_thing", `{"id":42}`),
		mock.TextResponse("Found it."),
	}
	synth := NewSynthesizer(chat, nil, WithToolSet(NewToolSet(executor)))

	answer, err := synth.Synthesize(context.Background(), Request{
		Question: "look up thing 42",
		Session: &core.Session{
			ID:       "sess-1",
			ClientID: "client-1",
			Timezone: "Asia/Kolkata",
		},
		History: []core.Turn{{Query: "hi there", Answer: "Hello!"}},
	}, func(string) {})

	require.NoError(t, err)
	assert.Equal(t, "Found it.", answer)
	assert.Equal(t, 2, chat.CallCount())
	assert.Equal(t, 1, executor.calls)
	assert.Equal(t, `{"id":42}`, executor.gotArgs)
	assert.Equal(t, "Asia/Kolkata", executor.gotExtra.Timezone)
	assert.Contains(t, executor.gotExtra.Transcript, "User: hi there")
	assert.Contains(t, executor.gotExtra.Transcript, "Assistant: Hello!")
	assert.Contains(t, executor.gotExtra.Transcript, "User: look up thing 42")

	// second round must see the tool call and its response
	secondCall := chat.Calls[1]
	last := secondCall[len(secondCall)-1]
	assert.Equal(t, llms.ChatMessageTypeTool, last.Role)
	response, ok := last.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", response.ToolCallID)
	assert.Equal(t, `{"found":true}`, response.Content)
}

func TestSynthesize_ToolRoundCap(t *testing.T) {
	executor := &fakeExecutor{name: "noisy_tool", result: `{"ok":true}`}
	chat := mock.NewMockChatModel()
	chat.GenerateContentFunc = func(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
		return toolCallResponse("call_n", "noisy_tool", `{}`), nil
	}
	synth := NewSynthesizer(chat, nil, WithToolSet(NewToolSet(executor)))

	_, err := synth.Synthesize(context.Background(), Request{
		Question: "q",
		Session:  testSession(),
	}, func(string) {})

	assert.ErrorIs(t, err, ErrToolRoundsExceeded)
	assert.Equal(t, maxToolRounds, chat.CallCount())
}

func TestSynthesize_GenerationErrorPropagates(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.GenerateContentFunc = func(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
		return nil, errors.New("provider down")
	}
	synth := NewSynthesizer(chat, nil)

	_, err := synth.Synthesize(context.Background(), Request{Question: "q", Session: testSession()}, func(string) {})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestToolSet_UnknownToolReturnsError(t *testing.T) {
	ts := NewToolSet()
	result := ts.Execute(context.Background(), "no_such_tool", `{}`, ExtraArgs{})
	assert.Equal(t, toolErrorResponse, result)
}

func TestSystemInstruction_ClientOverride(t *testing.T) {
	prompts := &stubPromptStore{instructions: map[string]string{
		"client-1": "You work for {{{company_name}}}.",
	}}
	synth := NewSynthesizer(mock.NewMockChatModel(), prompts,
		WithPlaceholders(map[string]string{"company_name": "Acme"}))

	instruction := synth.systemInstruction(context.Background(), "client-1")
	assert.Equal(t, "You work for Acme.", instruction)
}

func TestSystemInstruction_FallsBackOnLookupError(t *testing.T) {
	prompts := &stubPromptStore{err: errors.New("store down")}
	synth := NewSynthesizer(mock.NewMockChatModel(), prompts)

	instruction := synth.systemInstruction(context.Background(), "client-1")
	assert.Contains(t, instruction, "Core Identity")
	// unresolved placeholders must not leak
	assert.NotContains(t, instruction, "{{{")
}

func TestSystemInstruction_FallsBackOnMissingClient(t *testing.T) {
	prompts := &stubPromptStore{instructions: map[string]string{}}
	synth := NewSynthesizer(mock.NewMockChatModel(), prompts)

	instruction := synth.systemInstruction(context.Background(), "unknown")
	assert.Contains(t, instruction, "Core Identity")
}

func TestSubstitutePlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		want     string
	}{
		{
			name:     "single placeholder",
			template: "Hello {{{name}}}!",
			values:   map[string]string{"name": "world"},
			want:     "Hello world!",
		},
		{
			name:     "repeated placeholder",
			template: "{{{x}}} and {{{x}}}",
			values:   map[string]string{"x": "a"},
			want:     "a and a",
		},
		{
			name:     "missing value removed",
			template: "before {{{gone}}} after",
			values:   nil,
			want:     "before  after",
		},
		{
			name:     "no placeholders",
			template: "plain text",
			values:   map[string]string{"unused": "v"},
			want:     "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substitutePlaceholders(tt.template, tt.values))
		})
	}
}

func TestBuildUserInput_TrimsDocuments(t *testing.T) {
	synth := NewSynthesizer(mock.NewMockChatModel(), nil)

	input := synth.buildUserInput(context.Background(), Request{
		Question:  "what is the pricing?",
		DateDecay: true,
		Documents: []core.Document{{
			ID:          "doc-1",
			Title:       "Pricing",
			Content:     "Plans start at...",
			Excerpt:     "Plans...",
			SourceURL:   "https://example.com/pricing",
			Date:        "2025-06-01",
			Similarity:  0.91,
			Score:       0.02,
			ChunkIndex:  3,
			TotalChunks: 7,
		}},
	})

	var decoded struct {
		Question string           `json:"question"`
		Decay    bool             `json:"decay"`
		Docs     []map[string]any `json:"related_documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(input), &decoded))
	assert.Equal(t, "what is the pricing?", decoded.Question)
	assert.True(t, decoded.Decay)
	require.Len(t, decoded.Docs, 1)

	doc := decoded.Docs[0]
	assert.Equal(t, "Plans start at...", doc["text"])
	assert.Equal(t, "https://example.com/pricing", doc["source_url"])
	// ids, titles and fusion bookkeeping stay out of the model context
	assert.NotContains(t, doc, "id")
	assert.NotContains(t, doc, "title")
	assert.NotContains(t, doc, "score")
	assert.NotContains(t, doc, "chunk_index")
}

func TestBuildUserInput_ActionPassesRawQuery(t *testing.T) {
	synth := NewSynthesizer(mock.NewMockChatModel(), nil)

	input := synth.buildUserInput(context.Background(), Request{
		Question: "rewritten question",
		RawQuery: "book a meeting for tomorrow",
	})
	assert.Equal(t, "book a meeting for tomorrow", input)
}

type failingPageFetcher struct{}

func (failingPageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	return "", errors.New("fetch refused")
}

type stubPageFetcher struct{ content string }

func (s stubPageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	return s.content, nil
}

func TestBuildUserInput_PageAware(t *testing.T) {
	synth := NewSynthesizer(mock.NewMockChatModel(), nil,
		WithPageFetcher(stubPageFetcher{content: "<h1>Case study</h1>"}))

	input := synth.buildUserInput(context.Background(), Request{
		RawQuery: "summarize this page",
		PageURL:  "https://example.com/case-study",
	})

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(input), &decoded))
	assert.Equal(t, "summarize this page", decoded["query"])
	assert.Equal(t, "<h1>Case study</h1>", decoded["pageContent"])
}

func TestBuildUserInput_PageFetchFailureDegrades(t *testing.T) {
	synth := NewSynthesizer(mock.NewMockChatModel(), nil,
		WithPageFetcher(failingPageFetcher{}))

	input := synth.buildUserInput(context.Background(), Request{
		RawQuery: "summarize this page",
		PageURL:  "https://example.com/down",
	})

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(input), &decoded))
	assert.Equal(t, pageFetchErrorMarker, decoded["pageContent"])
}

func TestBuildMessages_Shape(t *testing.T) {
	synth := NewSynthesizer(mock.NewMockChatModel(), nil)

	messages := synth.buildMessages(context.Background(), Request{
		Question: "q",
		History: []core.Turn{
			{Query: "first", Answer: "one"},
			{Query: "broken", Answer: ""},
			{Query: "second", Answer: "two"},
		},
	}, "", "")

	// system + format few-shot + date preamble pair + two usable turns + input
	require.Len(t, messages, 1+2*len(formatHistory)+2+4+1)
	assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[len(messages)-1].Role)

	datePreamble := messages[1+2*len(formatHistory)]
	text, ok := datePreamble.Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Today's date is")
}

func TestFlattenTranscript(t *testing.T) {
	transcript := flattenTranscript([]core.Turn{
		{Query: "a", Answer: "b"},
		{Query: "skipped", Answer: ""},
	}, "current")

	assert.Equal(t, "User: a\nAssistant: b\nUser: current\n", transcript)
}
