package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

// SessionStore implements storage.SessionStore for BadgerDB.
type SessionStore struct {
	backend *Backend
}

var _ storage.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new SessionStore.
func NewSessionStore(backend *Backend) *SessionStore {
	return &SessionStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *SessionStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *SessionStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// AddSession persists a new session.
func (s *SessionStore) AddSession(ctx context.Context, sess *core.Session) (*core.Session, error) {
	if err := core.ValidateSession(sess); err != nil {
		return nil, err
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(sess.ID)

		existing, err := readSession(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		now := time.Now().UTC()
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = now
		}
		sess.UpdatedAt = now

		value, err := storage.MarshalSession(sess)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return sess, err
}

// GetSession retrieves a session by ID.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*core.Session, error) {
	var result *core.Session
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSession(tx, makeSessionKey(id))
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

// TouchSession refreshes the session's UpdatedAt timestamp.
func (s *SessionStore) TouchSession(ctx context.Context, id string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(id)

		sess, err := readSession(tx, key)
		if err != nil {
			return err
		}
		if sess == nil {
			return storage.ErrNotFound
		}

		sess.UpdatedAt = time.Now().UTC()

		value, err := storage.MarshalSession(sess)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// readSession reads and deserializes a session, returning nil if absent.
func readSession(tx *badger.Txn, key []byte) (*core.Session, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess *core.Session
	err = item.Value(func(val []byte) error {
		var innerErr error
		sess, innerErr = storage.UnmarshalSession(val)
		return innerErr
	})
	return sess, err
}
