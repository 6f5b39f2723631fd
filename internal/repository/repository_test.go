package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ninthcircle/diceroller/internal/db"
	"github.com/ninthcircle/diceroller/internal/lifecycle"
	"github.com/ninthcircle/diceroller/internal/options"
)

// setupTestDB creates an in-memory SQLite database with host migrations and
// the plugin components installed (no seed campaign)
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(db.MemoryPath, "wp_")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := lifecycle.New(database, options.NewSQLStore(database.DB), logger, lifecycle.DefaultComponents(false)...)
	if err := m.Install(context.Background()); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	return database
}
