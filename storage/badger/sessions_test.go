package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seamark/answerd/core"
	"github.com/seamark/answerd/storage"
)

func TestSessionBasics(t *testing.T) {
	_, sessions, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	sess := &core.Session{ID: "s1", ClientID: "acme", Timezone: "Europe/Madrid"}
	added, err := sessions.AddSession(ctx, sess)
	if err != nil {
		t.Fatalf("Failed to add session: %v", err)
	}
	if added.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	retrieved, err := sessions.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if retrieved.ClientID != "acme" {
		t.Fatalf("Expected client id to round-trip, got '%s'", retrieved.ClientID)
	}
	if retrieved.Timezone != "Europe/Madrid" {
		t.Fatalf("Expected timezone to round-trip, got '%s'", retrieved.Timezone)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	_, sessions, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	_, err = sessions.GetSession(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestTouchSession(t *testing.T) {
	_, sessions, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	added, err := sessions.AddSession(ctx, &core.Session{ID: "s1", ClientID: "acme"})
	if err != nil {
		t.Fatalf("Failed to add session: %v", err)
	}
	before := added.UpdatedAt

	time.Sleep(5 * time.Millisecond)

	if err := sessions.TouchSession(ctx, "s1"); err != nil {
		t.Fatalf("Failed to touch session: %v", err)
	}

	retrieved, err := sessions.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if !retrieved.UpdatedAt.After(before) {
		t.Fatal("Expected UpdatedAt to advance")
	}

	if err := sessions.TouchSession(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing session, got %v", err)
	}
}

func TestPromptStore(t *testing.T) {
	_, _, prompts, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	_, err = prompts.GetInstruction(ctx, "acme")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing instruction, got %v", err)
	}

	template := "You answer for {company}. Today is {date}."
	if err := prompts.PutInstruction(ctx, "acme", template); err != nil {
		t.Fatalf("Failed to put instruction: %v", err)
	}

	got, err := prompts.GetInstruction(ctx, "acme")
	if err != nil {
		t.Fatalf("Failed to get instruction: %v", err)
	}
	if got != template {
		t.Fatalf("Expected instruction to round-trip, got '%s'", got)
	}
}
