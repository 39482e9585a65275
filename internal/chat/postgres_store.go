package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used by PostgresStore.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps threads in chat_threads and turns in chat_messages.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("chat: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateThread(ctx context.Context, personaID int64, userID string) (*Thread, error) {
	id := uuid.New()
	query := `
		INSERT INTO chat_threads (id, persona_id, user_id)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING created_at, last_updated
	`
	thread := &Thread{ID: id.String(), PersonaID: personaID, UserID: userID}
	if err := s.pool.QueryRow(ctx, query, id, personaID, userID).Scan(&thread.CreatedAt, &thread.LastUpdated); err != nil {
		return nil, fmt.Errorf("chat: insert thread: %w", err)
	}
	return thread, nil
}

func (s *PostgresStore) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	id, err := uuid.Parse(threadID)
	if err != nil {
		return nil, ErrThreadNotFound
	}
	query := `
		SELECT id::text, persona_id, COALESCE(user_id, ''), created_at, last_updated
		FROM chat_threads
		WHERE id = $1
	`
	var thread Thread
	if err := s.pool.QueryRow(ctx, query, id).Scan(
		&thread.ID,
		&thread.PersonaID,
		&thread.UserID,
		&thread.CreatedAt,
		&thread.LastUpdated,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("chat: select thread: %w", err)
	}
	return &thread, nil
}

func (s *PostgresStore) ListTurns(ctx context.Context, threadID string) ([]Turn, error) {
	id, err := uuid.Parse(threadID)
	if err != nil {
		return nil, nil
	}
	query := `
		SELECT id, thread_id::text, sender, message, created_at
		FROM chat_messages
		WHERE thread_id = $1
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("chat: list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.ThreadID, &t.Sender, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: list turns: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) AppendExchange(ctx context.Context, threadID, userText, personaText string) error {
	id, err := uuid.Parse(threadID)
	if err != nil {
		return ErrThreadNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chat: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `UPDATE chat_threads SET last_updated = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("chat: touch thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrThreadNotFound
	}

	insert := `INSERT INTO chat_messages (thread_id, sender, message, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insert, id, SenderUser, userText, now); err != nil {
		return fmt.Errorf("chat: insert user turn: %w", err)
	}
	if _, err := tx.Exec(ctx, insert, id, SenderPersona, personaText, now); err != nil {
		return fmt.Errorf("chat: insert persona turn: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("chat: commit exchange: %w", err)
	}
	return nil
}
