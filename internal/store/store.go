// Package store mirrors postings into PostgreSQL as (term, doc_id) rows so
// the in-memory index can be rebuilt on startup.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS postings (
	term   TEXT   NOT NULL,
	doc_id BIGINT NOT NULL,
	PRIMARY KEY (term, doc_id)
)`

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "postings-store"),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating postings table: %w", err)
	}
	return nil
}

// Apply mirrors one event. Adds are idempotent; a merge moves from_term rows
// onto term, dropping rows term already has.
func (s *Store) Apply(ctx context.Context, e *ingest.PostingEvent) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		switch e.Op {
		case ingest.OpAdd:
			_, err := tx.ExecContext(ctx,
				`INSERT INTO postings (term, doc_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				e.Term, e.DocID)
			return err
		case ingest.OpRemove:
			_, err := tx.ExecContext(ctx,
				`DELETE FROM postings WHERE term = $1 AND doc_id = $2`, e.Term, e.DocID)
			return err
		case ingest.OpRemoveDoc:
			_, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE doc_id = $1`, e.DocID)
			return err
		case ingest.OpMerge:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO postings (term, doc_id)
				SELECT $1, doc_id FROM postings WHERE term = $2
				ON CONFLICT DO NOTHING`, e.Term, e.FromTerm); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE term = $1`, e.FromTerm)
			return err
		default:
			return fmt.Errorf("unsupported op %q", e.Op)
		}
	})
	if err != nil {
		return fmt.Errorf("applying %s event %s: %w", e.Op, e.EventID, err)
	}
	return nil
}

// Load reads every row grouped per term, terms and ids ascending.
func (s *Store) Load(ctx context.Context) ([]index.TermEntry, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT term, doc_id FROM postings ORDER BY term, doc_id`)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	var entries []index.TermEntry
	for rows.Next() {
		var term string
		var docID int64
		if err := rows.Scan(&term, &docID); err != nil {
			return nil, fmt.Errorf("scanning posting row: %w", err)
		}
		if n := len(entries); n == 0 || entries[n-1].Term != term {
			entries = append(entries, index.TermEntry{Term: term})
		}
		last := &entries[len(entries)-1]
		last.DocIDs = append(last.DocIDs, int(docID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posting rows: %w", err)
	}
	s.logger.Info("postings loaded", "terms", len(entries))
	return entries, nil
}
