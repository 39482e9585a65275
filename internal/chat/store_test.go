package chat

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreAppendExchange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	thread, err := store.CreateThread(ctx, 3, "")
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if err := store.AppendExchange(ctx, thread.ID, "우유 몇 개 살래?", "한 달에 4개요"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendExchange(ctx, thread.ID, "가격 1500원이면?", "6개요"); err != nil {
		t.Fatalf("append: %v", err)
	}

	turns, err := store.ListTurns(ctx, thread.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	wantSenders := []string{SenderUser, SenderPersona, SenderUser, SenderPersona}
	for i, turn := range turns {
		if turn.Sender != wantSenders[i] {
			t.Fatalf("turn %d: expected sender %s, got %s", i, wantSenders[i], turn.Sender)
		}
		if i > 0 && turn.ID <= turns[i-1].ID {
			t.Fatalf("turn ids must increase: %+v", turns)
		}
	}
}

func TestMemoryStoreUnknownThread(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.GetThread(ctx, "missing"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if err := store.AppendExchange(ctx, "missing", "a", "b"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	turns, err := store.ListTurns(ctx, "missing")
	if err != nil || len(turns) != 0 {
		t.Fatalf("expected no turns, got %v, %v", turns, err)
	}
}
