package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/seamark/answerd/storage"
)

// PromptStore implements storage.PromptStore for BadgerDB.
// Instruction templates are written by an external management surface;
// the pipeline only reads them.
type PromptStore struct {
	backend *Backend
}

var _ storage.PromptStore = (*PromptStore)(nil)

// NewPromptStore creates a new PromptStore.
func NewPromptStore(backend *Backend) *PromptStore {
	return &PromptStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *PromptStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *PromptStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// GetInstruction retrieves the system instruction template for a client.
func (s *PromptStore) GetInstruction(ctx context.Context, clientID string) (string, error) {
	var instruction string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePromptKey(clientID))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			instruction = string(val)
			return nil
		})
	}, false)
	return instruction, err
}

// PutInstruction stores the system instruction template for a client.
func (s *PromptStore) PutInstruction(ctx context.Context, clientID, instruction string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makePromptKey(clientID), []byte(instruction)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
