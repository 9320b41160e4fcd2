package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/stylecast/internal/domain/session"
)

const createSessionsTable = `
	CREATE TABLE IF NOT EXISTS stylecast_sessions (
		id TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS stylecast_sessions_expires_at_idx ON stylecast_sessions (expires_at);
`

// PostgresStore persists sessions as JSONB rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the sessions table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createSessionsTable)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (session.Session, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT payload
		FROM stylecast_sessions
		WHERE id = $1
		LIMIT 1
	`, id)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, err
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return session.Session{}, false, err
	}
	return sess, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	expiresAt := sess.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(24 * time.Hour)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO stylecast_sessions (id, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, updated_at = NOW()
	`, sess.ID, payload, expiresAt)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM stylecast_sessions WHERE id = $1`, id)
	return err
}

// ListExpired returns up to limit ids that expired before now, oldest first.
func (s *PostgresStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id
		FROM stylecast_sessions
		WHERE expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var (
	_ session.Store         = (*PostgresStore)(nil)
	_ session.ExpiredLister = (*PostgresStore)(nil)
)
