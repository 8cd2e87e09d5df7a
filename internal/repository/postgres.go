package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studentcare-chat/internal/domain"
)

// pgxAPI is the subset of *pgxpool.Pool used by PostgresStore.
type pgxAPI interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ConnectPostgres opens a pgx connection pool and pings it.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: parse pgx config: %w", err)
	}
	// Lambda runs one request per instance; keep the pool small.
	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("repository: open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository: ping postgres: %w", err)
	}
	return pool, nil
}

// PostgresStore keeps chat history in the chat_messages table.
type PostgresStore struct {
	db pgxAPI
}

func NewPostgres(db pgxAPI) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("repository: postgres pool must not be nil")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chat_messages (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	message_content TEXT NOT NULL,
	is_bot_response BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_session_created_idx
	ON chat_messages (session_id, created_at DESC);
`)
	if err != nil {
		return fmt.Errorf("repository: EnsureSchema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, msg domain.HistoryMessage) error {
	if strings.TrimSpace(msg.SessionID) == "" || strings.TrimSpace(msg.ID) == "" {
		return errors.New("repository: SaveMessage: session ID and message ID are required")
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO chat_messages (id, session_id, message_content, is_bot_response, created_at)
VALUES ($1, $2, $3, $4, $5)
`, msg.ID, msg.SessionID, msg.Content, msg.IsBotResponse, msg.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("repository: SaveMessage: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.HistoryMessage, error) {
	rows, err := s.db.Query(ctx, `
SELECT id::text, session_id, message_content, is_bot_response, created_at
FROM chat_messages
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: ListMessages query: %w", err)
	}
	defer rows.Close()

	var msgs []domain.HistoryMessage
	for rows.Next() {
		var m domain.HistoryMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Content, &m.IsBotResponse, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: ListMessages scan: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: ListMessages rows: %w", err)
	}
	reverse(msgs)
	return msgs, nil
}
