package meta

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PGStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps metadata in the scheme_meta table.
type PGStore struct {
	DB DB
}

// NewPGStore constructs a Store backed by a pgx connection pool.
func NewPGStore(db DB) *PGStore {
	return &PGStore{DB: db}
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	if s == nil || s.DB == nil {
		return nil, false, ErrStoreUnavailable
	}
	var value []byte
	err := s.DB.QueryRow(ctx, `SELECT meta_value FROM scheme_meta WHERE owner_id = $1 AND meta_key = $2`, owner, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put implements Store.
func (s *PGStore) Put(ctx context.Context, owner, key string, value []byte) error {
	if s == nil || s.DB == nil {
		return ErrStoreUnavailable
	}
	_, err := s.DB.Exec(ctx, `INSERT INTO scheme_meta (owner_id, meta_key, meta_value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (owner_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value, updated_at = now()`, owner, key, value)
	return err
}

// Delete implements Store.
func (s *PGStore) Delete(ctx context.Context, owner, key string) error {
	if s == nil || s.DB == nil {
		return ErrStoreUnavailable
	}
	_, err := s.DB.Exec(ctx, `DELETE FROM scheme_meta WHERE owner_id = $1 AND meta_key = $2`, owner, key)
	return err
}
