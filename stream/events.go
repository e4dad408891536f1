package stream

import "github.com/seamark/answerd/core"

// Event is one unit of stream delivery. Content carries appended answer
// text; the final event has Done set and carries the result list and
// classified type.
type Event struct {
	Content string            `json:"content"`
	Done    bool              `json:"done"`
	Results []core.ResultItem `json:"results,omitempty"`
	Type    core.QueryType    `json:"type,omitempty"`
}

// DoneEvent builds the terminal event for a message.
func DoneEvent(results []core.ResultItem, queryType core.QueryType) Event {
	return Event{Done: true, Results: results, Type: queryType}
}

// ChunkEvent builds a content event.
func ChunkEvent(content string) Event {
	return Event{Content: content}
}
