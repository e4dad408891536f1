package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

// MessageStore implements storage.MessageStore for BadgerDB.
type MessageStore struct {
	backend *Backend
}

var _ storage.MessageStore = (*MessageStore)(nil)

// NewMessageStore creates a new MessageStore.
func NewMessageStore(backend *Backend) *MessageStore {
	return &MessageStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *MessageStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *MessageStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// AddMessage persists a new message.
func (s *MessageStore) AddMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if err := core.ValidateMessage(msg); err != nil {
		return nil, err
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(msg.ID)

		existing, err := readMessage(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		now := time.Now().UTC()
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		msg.UpdatedAt = now

		value, err := storage.MarshalMessage(msg)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		// Session index keyed by creation time for ordered scans
		sessionKey := makeMessageSessionKey(msg.SessionID, msg.CreatedAt, msg.ID)
		if err := tx.Set(sessionKey, []byte(msg.ID)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return msg, err
}

// UpdateMessage overwrites an existing message.
func (s *MessageStore) UpdateMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(msg.ID)

		old, err := readMessage(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// CreatedAt is immutable; the index key depends on it.
		msg.CreatedAt = old.CreatedAt
		msg.UpdatedAt = time.Now().UTC()

		value, err := storage.MarshalMessage(msg)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return msg, err
}

// GetMessage retrieves a single message by ID.
func (s *MessageStore) GetMessage(ctx context.Context, id string) (*core.Message, error) {
	var result *core.Message
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(id)
		var err error
		result, err = readMessage(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetSessionMessages retrieves all messages for a session ordered by creation time.
func (s *MessageStore) GetSessionMessages(ctx context.Context, sessionID string) ([]*core.Message, error) {
	var results []*core.Message
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialMessageSessionKey(sessionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id string
			err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			msg, err := readMessage(tx, makeMessageKey(id))
			if err != nil {
				return err
			}
			if msg != nil {
				results = append(results, msg)
			}
		}
		return nil
	}, false)
	return results, err
}

// History reconstructs the completed query/answer turns of a session.
// Turns with missing or unparseable response documents are skipped
// individually so one bad record never hides the rest of the conversation.
func (s *MessageStore) History(ctx context.Context, sessionID string) ([]core.Turn, error) {
	messages, err := s.GetSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turns := make([]core.Turn, 0, len(messages))
	for _, msg := range messages {
		if msg.Status != core.StatusCompleted {
			continue
		}
		answer, err := msg.ParsedAnswer()
		if err != nil {
			s.backend.logger.Warn("skipping unparseable turn",
				"component", "storage",
				"message_id", msg.ID,
				"error", err)
			continue
		}
		turns = append(turns, core.Turn{
			Query:     msg.Query,
			Answer:    answer.Text,
			CreatedAt: msg.CreatedAt,
		})
	}
	return turns, nil
}

// DeleteMessage removes a message and its session index entry.
func (s *MessageStore) DeleteMessage(ctx context.Context, id string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(id)

		msg, err := readMessage(tx, key)
		if err != nil {
			return err
		}
		if msg == nil {
			return storage.ErrNotFound
		}

		sessionKey := makeMessageSessionKey(msg.SessionID, msg.CreatedAt, msg.ID)
		if err := tx.Delete(sessionKey); err != nil {
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// readMessage reads and deserializes a message, returning nil if absent.
func readMessage(tx *badger.Txn, key []byte) (*core.Message, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msg *core.Message
	err = item.Value(func(val []byte) error {
		var innerErr error
		msg, innerErr = storage.UnmarshalMessage(val)
		return innerErr
	})
	return msg, err
}
