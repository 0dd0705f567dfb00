package ledger

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its ledger table.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore backs the ledger with an external keyed store for deployments
// that have one. Unlike the file store it survives instance recycling, but the
// pipeline never assumes that.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if the database
// is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Get returns the entry for key.
func (p *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	err := p.pool.QueryRow(ctx, `
		SELECT key, status, repo, path, commit_ref, reason, updated_at
		FROM ledger_entries
		WHERE key = $1
	`, key).Scan(&e.Key, &e.Status, &e.Repo, &e.Path, &e.Commit, &e.Reason, &e.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Put upserts the entry. Last writer wins; the publisher's check-before-write
// is what makes racing writers harmless.
func (p *PostgresStore) Put(ctx context.Context, e Entry) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO ledger_entries(key, status, repo, path, commit_ref, reason, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (key) DO UPDATE SET
			status = EXCLUDED.status,
			repo = EXCLUDED.repo,
			path = EXCLUDED.path,
			commit_ref = EXCLUDED.commit_ref,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
	`, e.Key, e.Status, e.Repo, e.Path, e.Commit, e.Reason, e.UpdatedAt)
	return err
}

// DeleteExpired drops entries last touched before cutoff.
func (p *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM ledger_entries WHERE updated_at < $1`, cutoff)
	return err
}
