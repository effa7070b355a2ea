package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"wasteroute-backend/internal/ports"
)

// Store implements ports.Store on Postgres. The same queries run against the
// pool or against a transaction, depending on how the Store was obtained.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx ports.Store) error) error {
	if _, nested := s.ext.(*sqlx.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, ext: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ ports.Store = (*Store)(nil)
