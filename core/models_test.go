package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "how do I book a meeting",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to completed", StatusPending, StatusCompleted, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to pending", StatusPending, StatusPending, false},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to cancelled", StatusProcessing, StatusCancelled, true},
		{"processing to pending", StatusProcessing, StatusPending, false},
		{"completed is final", StatusCompleted, StatusFailed, false},
		{"failed is final", StatusFailed, StatusCompleted, false},
		{"cancelled is final", StatusCancelled, StatusProcessing, false},
		{"unknown target", StatusPending, Status("archived"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestQueryType_Terminal(t *testing.T) {
	tests := []struct {
		qt   QueryType
		want bool
	}{
		{TypeGreeting, true},
		{TypeBlocked, true},
		{TypeRetrieval, false},
		{TypeRetrievalDecay, false},
		{TypeAction, false},
		{TypePageAware, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.qt), func(t *testing.T) {
			if got := tt.qt.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildAnswer(t *testing.T) {
	docs := []Document{
		{Title: "pricing", SourceURL: "https://example.com/pricing", Similarity: 0.62, Content: "plans"},
		{Title: "internal runbook", SourceURL: "https://example.com/rb", Similarity: 0.99, Type: DocTypeInternal},
		{Title: "faq", SourceURL: "https://example.com/faq", Similarity: 0.87, Content: "answers"},
		{Title: "draft", SourceURL: "https://example.com/draft", Similarity: 0.95, Type: DocTypeDoNotCite},
	}

	answer := BuildAnswer("Here is what I found.", docs)

	if answer.Text != "Here is what I found." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Results) != 2 {
		t.Fatalf("Results length = %d, want 2 (internal and do-not-cite dropped)", len(answer.Results))
	}
	if answer.Results[0].Title != "faq" || answer.Results[1].Title != "pricing" {
		t.Errorf("Results not sorted by similarity: %q, %q", answer.Results[0].Title, answer.Results[1].Title)
	}
}

func TestBuildAnswer_NoDocuments(t *testing.T) {
	answer := BuildAnswer("No sources needed.", nil)

	if answer.Text != "No sources needed." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Results) != 0 {
		t.Errorf("Results length = %d, want 0", len(answer.Results))
	}
}

func TestMessage_ParsedAnswer(t *testing.T) {
	msg := &Message{Response: `{"answer":"hello","results":[{"title":"t","url":"u","score":0.5,"text":"x"}]}`}

	answer, err := msg.ParsedAnswer()
	if err != nil {
		t.Fatalf("ParsedAnswer() error = %v", err)
	}
	if answer.Text != "hello" {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Results) != 1 {
		t.Errorf("Results length = %d, want 1", len(answer.Results))
	}
}

func TestMessage_ParsedAnswer_Empty(t *testing.T) {
	msg := &Message{}

	if _, err := msg.ParsedAnswer(); err != ErrNoAnswer {
		t.Errorf("ParsedAnswer() error = %v, want ErrNoAnswer", err)
	}
}

func TestRetrievalResult_Empty(t *testing.T) {
	var nilResult *RetrievalResult
	if !nilResult.Empty() {
		t.Error("nil result should be empty")
	}

	empty := &RetrievalResult{Question: "q"}
	if !empty.Empty() {
		t.Error("result without documents should be empty")
	}

	full := &RetrievalResult{Documents: []Document{{Title: "t"}}}
	if full.Empty() {
		t.Error("result with documents should not be empty")
	}
}
