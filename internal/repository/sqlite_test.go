package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/a2alab/relay/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func testSession(id string) (*domain.ConversationSession, []domain.TranscriptEntry) {
	started := time.Now().Add(-time.Minute)
	ended := time.Now()
	sess := &domain.ConversationSession{
		SessionID: id,
		Initiator: "A",
		Hops:      2,
		Status:    domain.SessionStatusTerminal,
		Reason:    domain.ReasonPeerTerminalState,
		StartedAt: started,
		EndedAt:   &ended,
	}
	entries := []domain.TranscriptEntry{
		{
			Ts:          started,
			Origin:      "A",
			Destination: "B",
			Kind:        domain.EventKindMessage,
			Role:        "agent",
			Text:        "hello",
			Event: domain.ProtocolEvent{
				Kind: domain.EventKindMessage,
				Raw:  json.RawMessage(`{"result":{"role":"agent","parts":[{"kind":"text","text":"hello"}]}}`),
			},
			Relayed: true,
		},
		{
			Ts:          started.Add(time.Second),
			Origin:      "B",
			Destination: "A",
			Kind:        domain.EventKindStatus,
			Text:        "completed",
			Event:       domain.ProtocolEvent{Kind: domain.EventKindStatus},
		},
	}
	return sess, entries
}

func TestArchiveAndGetSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	sess, entries := testSession("rel_1")
	if err := store.ArchiveSession(ctx, sess, entries); err != nil {
		t.Fatalf("ArchiveSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "rel_1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected session, got nil")
	}
	if got.Initiator != "A" || got.Hops != 2 || got.Reason != domain.ReasonPeerTerminalState {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.EndedAt == nil {
		t.Fatalf("ended_at not persisted")
	}

	missing, err := store.GetSession(ctx, "rel_absent")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for absent session, got %+v", missing)
	}
}

func TestGetEntriesOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	sess, entries := testSession("rel_2")
	if err := store.ArchiveSession(ctx, sess, entries); err != nil {
		t.Fatalf("ArchiveSession failed: %v", err)
	}

	all, err := store.GetEntries(ctx, "rel_2", nil, 0)
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Text != "hello" || all[1].Text != "completed" {
		t.Fatalf("entries out of order: %+v", all)
	}
	if !all[0].Relayed || all[1].Relayed {
		t.Fatalf("relayed flags not persisted: %+v", all)
	}
	if all[0].Event.Raw == nil {
		t.Fatalf("raw payload not persisted")
	}

	messages, err := store.GetEntries(ctx, "rel_2", []string{"message"}, 0)
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Kind != domain.EventKindMessage {
		t.Fatalf("unexpected filtered entries: %+v", messages)
	}

	limited, err := store.GetEntries(ctx, "rel_2", nil, 1)
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit not applied, got %d entries", len(limited))
	}
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	first, _ := testSession("rel_a")
	second, _ := testSession("rel_b")
	second.StartedAt = first.StartedAt.Add(time.Second)
	if err := store.ArchiveSession(ctx, first, nil); err != nil {
		t.Fatalf("ArchiveSession failed: %v", err)
	}
	if err := store.ArchiveSession(ctx, second, nil); err != nil {
		t.Fatalf("ArchiveSession failed: %v", err)
	}

	sessions, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 || sessions[0].SessionID != "rel_a" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}

	limited, err := store.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit not applied, got %d sessions", len(limited))
	}
}
