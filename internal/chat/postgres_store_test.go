package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresStoreCreateThread(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewPostgresStore(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO chat_threads").
		WithArgs(pgxmock.AnyArg(), int64(5), "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "last_updated"}).AddRow(now, now))

	thread, err := store.CreateThread(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if _, err := uuid.Parse(thread.ID); err != nil {
		t.Fatalf("expected uuid thread id, got %q", thread.ID)
	}
	if thread.PersonaID != 5 || !thread.CreatedAt.Equal(now) {
		t.Fatalf("unexpected thread: %+v", thread)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreGetThreadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewPostgresStore(mock)
	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM chat_threads").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	if _, err := store.GetThread(context.Background(), id.String()); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if _, err := store.GetThread(context.Background(), "not-a-uuid"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound for malformed id, got %v", err)
	}
}

func TestPostgresStoreListTurns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewPostgresStore(mock)
	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM chat_messages").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "thread_id", "sender", "message", "created_at"}).
			AddRow(int64(1), id.String(), SenderUser, "참치캔 몇 개 사?", now).
			AddRow(int64(2), id.String(), SenderPersona, "한 달에 4개요", now))

	turns, err := store.ListTurns(context.Background(), id.String())
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 2 || turns[0].Sender != SenderUser || turns[1].Text != "한 달에 4개요" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestPostgresStoreAppendExchange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewPostgresStore(mock)
	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE chat_threads").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(id, SenderUser, "우유 살래?", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(id, SenderPersona, "4개요", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := store.AppendExchange(context.Background(), id.String(), "우유 살래?", "4개요"); err != nil {
		t.Fatalf("append exchange: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreAppendExchangeUnknownThread(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewPostgresStore(mock)
	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE chat_threads").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	if err := store.AppendExchange(context.Background(), id.String(), "a", "b"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
