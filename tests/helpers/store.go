package helpers

import (
	"context"
	"testing"

	store "github.com/xiaot623/gogo/supportdesk/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewSeededSQLiteStore returns an in-memory store loaded with the demo users.
func NewSeededSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s := NewTestSQLiteStore(t)
	if _, err := store.SeedDemo(context.Background(), s); err != nil {
		t.Fatalf("failed to seed sqlite store: %v", err)
	}
	return s
}
