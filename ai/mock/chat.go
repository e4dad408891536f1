package mock

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// MockChatModel is a test double for ai.ChatModel.
// It allows custom behavior injection via function fields and records
// every message sequence it was called with.
type MockChatModel struct {
	// GenerateContentFunc is called by GenerateContent if set.
	// If nil, returns canned responses from Responses in order,
	// falling back to a single empty-text choice.
	GenerateContentFunc func(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)

	// Responses are returned in order by successive GenerateContent calls
	// when GenerateContentFunc is nil. After the list is exhausted the
	// last response repeats.
	Responses []*llms.ContentResponse

	// Calls records the message sequences passed to GenerateContent.
	Calls [][]llms.MessageContent

	callCount int
}

// NewMockChatModel creates a mock chat model with default behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// TextResponse builds a single-choice content response with the given text.
func TextResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

// GenerateContent returns injected or canned responses.
func (m *MockChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.callCount++
	m.Calls = append(m.Calls, messages)

	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, messages, options...)
	}

	if len(m.Responses) > 0 {
		idx := m.callCount - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		return m.Responses[idx], nil
	}

	return TextResponse(""), nil
}

// CallCount returns the number of GenerateContent calls.
func (m *MockChatModel) CallCount() int {
	return m.callCount
}

// Reset clears recorded calls and injected behavior.
func (m *MockChatModel) Reset() {
	m.callCount = 0
	m.Calls = nil
	m.Responses = nil
	m.GenerateContentFunc = nil
}
