package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/postgres"
	"github.com/stretchr/testify/require"
)

// newTestStore connects using the same PE_POSTGRES_* variables as the
// service and skips when no database answers.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("PE_POSTGRES_HOST") == "" {
		t.Skip("PE_POSTGRES_HOST not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(db)
	require.NoError(t, s.Migrate(ctx))
	_, err = db.DB.ExecContext(ctx, `TRUNCATE postings`)
	require.NoError(t, err)
	return s
}

func TestApplyAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	events := []ingest.PostingEvent{
		{Op: ingest.OpAdd, Term: "go", DocID: 5},
		{Op: ingest.OpAdd, Term: "go", DocID: 1},
		{Op: ingest.OpAdd, Term: "go", DocID: 5},
		{Op: ingest.OpAdd, Term: "golang", DocID: 1},
		{Op: ingest.OpAdd, Term: "golang", DocID: 9},
		{Op: ingest.OpAdd, Term: "rust", DocID: 9},
		{Op: ingest.OpAdd, Term: "rust", DocID: 4},
		{Op: ingest.OpRemove, Term: "rust", DocID: 4},
		{Op: ingest.OpMerge, Term: "go", FromTerm: "golang"},
		{Op: ingest.OpAdd, Term: "zig", DocID: 2},
		{Op: ingest.OpRemoveDoc, DocID: 2},
	}
	for i := range events {
		require.NoError(t, s.Apply(ctx, &events[i]))
	}

	entries, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []index.TermEntry{
		{Term: "go", DocIDs: []int{1, 5, 9}},
		{Term: "rust", DocIDs: []int{9}},
	}, entries)

	idx := index.NewMemoryIndex()
	require.NoError(t, idx.Restore(entries))
	require.Equal(t, 3, idx.DocFreq("go"))
}

func TestApplyRejectsUnknownOp(t *testing.T) {
	s := newTestStore(t)
	require.Error(t, s.Apply(context.Background(), &ingest.PostingEvent{Op: "upsert", Term: "go"}))
}
