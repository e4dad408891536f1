package storage

import (
	"context"

	"github.com/seamark/answerd/core"
)

// Store provides common storage operations shared across all stores.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// MessageStore provides operations for managing pipeline messages.
type MessageStore interface {
	Store
	// AddMessage persists a new message.
	// Sets CreatedAt/UpdatedAt if not already set.
	// Returns ErrDuplicateKey if a message with the same ID exists.
	AddMessage(ctx context.Context, msg *core.Message) (*core.Message, error)

	// UpdateMessage overwrites an existing message.
	// Refreshes the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the message doesn't exist.
	UpdateMessage(ctx context.Context, msg *core.Message) (*core.Message, error)

	// GetMessage retrieves a single message by ID.
	// Returns ErrNotFound if the message doesn't exist.
	GetMessage(ctx context.Context, id string) (*core.Message, error)

	// GetSessionMessages retrieves all messages for a session,
	// ordered by creation time ascending.
	GetSessionMessages(ctx context.Context, sessionID string) ([]*core.Message, error)

	// History reconstructs the completed query/answer turns of a session.
	// Each stored response document is parsed once; turns whose response
	// cannot be parsed are skipped individually. Results are ordered by
	// creation time ascending.
	History(ctx context.Context, sessionID string) ([]core.Turn, error)

	// DeleteMessage removes a message by ID.
	// Returns ErrNotFound if the message doesn't exist.
	DeleteMessage(ctx context.Context, id string) error
}

// SessionStore provides operations for managing conversation sessions.
type SessionStore interface {
	Store
	// AddSession persists a new session.
	AddSession(ctx context.Context, sess *core.Session) (*core.Session, error)

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id string) (*core.Session, error)

	// TouchSession refreshes the session's UpdatedAt timestamp.
	// Returns ErrNotFound if the session doesn't exist.
	TouchSession(ctx context.Context, id string) error
}

// PromptStore provides lookup of per-client system instructions.
// Management of instructions is an external concern; consumers only read.
type PromptStore interface {
	Store
	// GetInstruction retrieves the system instruction template for a client.
	// Returns ErrNotFound if the client has no stored instruction.
	GetInstruction(ctx context.Context, clientID string) (string, error)

	// PutInstruction stores the system instruction template for a client.
	PutInstruction(ctx context.Context, clientID, instruction string) error
}
