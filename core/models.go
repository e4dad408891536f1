package core

import (
	"encoding/binary"
	"encoding/json"
	"sort"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived 64-bit identifier.
// It is used where a stable identity must be computed from content,
// such as retrieved documents that carry no backend id.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces the same ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Status is the lifecycle state of a Message.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal messages are
// immutable except for explicit deletion by an external collaborator.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a status change from s to next is allowed.
// Transitions are strictly monotonic: a terminal status never changes again.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next != StatusPending
	case StatusProcessing:
		return next.Terminal()
	}
	return false
}

// QueryType is the classifier's verdict for a query.
type QueryType string

const (
	TypeGreeting       QueryType = "greeting"
	TypeRetrieval      QueryType = "retrieval"
	TypeRetrievalDecay QueryType = "retrieval_date_decay"
	TypeAction         QueryType = "action"
	TypePageAware      QueryType = "page_aware_query"
	TypeBlocked        QueryType = "blocked"
)

// Terminal reports whether the type ends the pipeline without retrieval.
// The classifier's canned reply becomes the final answer.
func (t QueryType) Terminal() bool {
	return t == TypeGreeting || t == TypeBlocked
}

// Message is one user query moving through the answering pipeline.
// Response, RetrievalResult and SearchParams hold serialized JSON documents:
// they are written by the owning worker and served verbatim to clients.
type Message struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId"`
	Query           string    `json:"query"`
	PageURL         string    `json:"pageUrl,omitempty"`
	Status          Status    `json:"status"`
	Type            QueryType `json:"type,omitempty"`
	Response        string    `json:"response,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	RetrievalResult string    `json:"retrieval_result,omitempty"`
	SearchParams    string    `json:"searchParams,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ParsedAnswer decodes the stored response document.
// Returns ErrNoAnswer if no response has been written yet.
func (m *Message) ParsedAnswer() (*Answer, error) {
	if m.Response == "" {
		return nil, ErrNoAnswer
	}
	var a Answer
	if err := json.Unmarshal([]byte(m.Response), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Session groups the messages of one conversation.
type Session struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Turn is one completed query/answer exchange reconstructed from storage.
type Turn struct {
	Query     string
	Answer    string
	CreatedAt time.Time
}

// Weights balances the two sides of a hybrid search.
// The query processor aims for Semantic+Keyword == 1.0 but this is not enforced.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
}

// DefaultWeights is the deterministic fallback when query processing fails.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Keyword: 0.5}
}

// HybridParams configures one hybrid retrieval.
type HybridParams struct {
	SemanticQuery string  `json:"semanticQuery"`
	KeywordQuery  string  `json:"keywordQuery"`
	Weights       Weights `json:"weights"`
}

// Document kinds excluded from client-facing result lists.
const (
	DocTypeInternal  = "internal_doc"
	DocTypeDoNotCite = "do_not_cite"
)

// Document is a retrieved knowledge-base chunk.
// Score is the fused relevance after rank fusion; Similarity is the
// backend-native certainty where available.
type Document struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Content     string  `json:"text"`
	Excerpt     string  `json:"excerpt,omitempty"`
	SourceURL   string  `json:"source_url"`
	Date        string  `json:"date,omitempty"`
	Type        string  `json:"type,omitempty"`
	Similarity  float64 `json:"similarity"`
	Score       float64 `json:"score"`
	ChunkIndex  int     `json:"chunk_index,omitempty"`
	TotalChunks int     `json:"total_chunks,omitempty"`
	ParentID    string  `json:"parent_id,omitempty"`
}

// QueryMetadata records how a retrieval was actually executed.
type QueryMetadata struct {
	OriginalQuery   string  `json:"originalQuery"`
	SemanticQuery   string  `json:"usedSemanticQuery"`
	KeywordQuery    string  `json:"usedKeywordQuery"`
	SemanticWeight  float64 `json:"semanticWeight"`
	KeywordWeight   float64 `json:"keywordWeight"`
	TotalCandidates int     `json:"totalCandidates"`
}

// RetrievalResult is the fused output of one hybrid retrieval.
type RetrievalResult struct {
	Question  string        `json:"question"`
	Documents []Document    `json:"related_documents"`
	Metadata  QueryMetadata `json:"searchMetadata"`
}

// Empty reports whether retrieval produced no grounding context.
// Synthesis must still produce an answer in that case.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Documents) == 0
}

// ResultItem is one source reference in a client-facing answer.
type ResultItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
	Excerpt string  `json:"excerpt,omitempty"`
}

// Answer is the structured response document stored on a completed message.
type Answer struct {
	Text    string       `json:"answer"`
	Results []ResultItem `json:"results,omitempty"`
}

// BuildAnswer assembles the client-facing answer from the streamed summary and
// the retrieved documents. Internal and do-not-cite documents are dropped and
// the remainder is ordered by similarity, best first.
func BuildAnswer(summary string, docs []Document) Answer {
	results := make([]ResultItem, 0, len(docs))
	for _, doc := range docs {
		if doc.Type == DocTypeInternal || doc.Type == DocTypeDoNotCite {
			continue
		}
		results = append(results, ResultItem{
			Title:   doc.Title,
			URL:     doc.SourceURL,
			Score:   doc.Similarity,
			Text:    doc.Content,
			Excerpt: doc.Excerpt,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return Answer{Text: summary, Results: results}
}
