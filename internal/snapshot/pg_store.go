package snapshot

import (
	"context"
	"errors"
	"fmt"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PgStore)(nil)

const (
	loadSnapshot   = `SELECT payload FROM cart_snapshots WHERE storage_key = $1`
	upsertSnapshot = `INSERT INTO cart_snapshots (storage_key, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (storage_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	deleteSnapshot = `DELETE FROM cart_snapshots WHERE storage_key = $1`
)

type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a snapshot store backed by the cart_snapshots table.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) Load(ctx context.Context, key string) ([]byte, error) {
	var payload string
	if err := p.db.QueryRow(ctx, loadSnapshot, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, carterrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%w: %w", carterrors.ErrStorageUnavailable, err)
	}
	return []byte(payload), nil
}

func (p *PgStore) Save(ctx context.Context, key string, payload []byte) error {
	if _, err := p.db.Exec(ctx, upsertSnapshot, key, string(payload)); err != nil {
		return fmt.Errorf("%w: %w", carterrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (p *PgStore) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, deleteSnapshot, key); err != nil {
		return fmt.Errorf("%w: %w", carterrors.ErrStorageUnavailable, err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (p *PgStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
