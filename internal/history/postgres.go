package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lightningnetwork/lnd/clock"
)

const schema = `
CREATE TABLE IF NOT EXISTS private_tx_history (
    id             UUID PRIMARY KEY,
    extrinsic_hash TEXT NOT NULL,
    mode           TEXT NOT NULL,
    asset_ticker   TEXT NOT NULL,
    amount         NUMERIC NOT NULL,
    status         TEXT NOT NULL,
    network        TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS private_tx_history_hash_idx ON private_tx_history (extrinsic_hash);
CREATE INDEX IF NOT EXISTS private_tx_history_created_idx ON private_tx_history (created_at);`

// PostgresStore stores history events in PostgreSQL.
type PostgresStore struct {
	db    *pgxpool.Pool
	clock clock.Clock
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool, clk clock.Clock) *PostgresStore {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &PostgresStore{db: db, clock: clk}
}

// EnsureSchema creates the history table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

// Append inserts an event.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO private_tx_history (id, extrinsic_hash, mode, asset_ticker, amount, status, network, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
		id, event.ExtrinsicHash, event.Mode, event.AssetTicker, event.Amount, string(event.Status), event.Network, event.CreatedAt.UTC())
	return err
}

// UpdateStatus settles the pending event carrying hash.
func (s *PostgresStore) UpdateStatus(ctx context.Context, hash string, status Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE private_tx_history SET status = $1
        WHERE extrinsic_hash = $2 AND status = $3`, string(status), hash, string(StatusPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RemovePending deletes the pending event carrying hash.
func (s *PostgresStore) RemovePending(ctx context.Context, hash string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM private_tx_history
        WHERE extrinsic_hash = $1 AND status = $2`, hash, string(StatusPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns events inside the retention window, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]Event, error) {
	rows, err := s.db.Query(ctx, `SELECT id, extrinsic_hash, mode, asset_ticker, amount::text, status, network, created_at
        FROM private_tx_history WHERE created_at > $1 ORDER BY created_at`, retentionCutoff(s.clock))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e         Event
			id        uuid.UUID
			status    string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &e.ExtrinsicHash, &e.Mode, &e.AssetTicker, &e.Amount, &status, &e.Network, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.Status = Status(status)
		e.CreatedAt = createdAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
