package gamestore

import (
	"context"
	"path/filepath"
	"testing"
)

func record(id string, turns int, board string, ended bool) GameRecord {
	return GameRecord{ID: id, Turns: turns, Board: board, White: "alice", Black: "bob", Ended: ended}
}

func TestMergeInsertAndReplace(t *testing.T) {
	s := New(NewMemoryPersister())
	ctx := context.Background()

	if !s.Merge(ctx, record("bob", 0, "fen0", false)) {
		t.Fatalf("initial merge rejected")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", s.Len())
	}

	// Last writer wins even when turns goes backward.
	if !s.Merge(ctx, record("bob", 5, "fen5", false)) {
		t.Fatalf("merge turns=5 rejected")
	}
	if !s.Merge(ctx, record("bob", 3, "fen3", false)) {
		t.Fatalf("LWW merge turns=3 rejected")
	}
	got, ok := s.Get("bob")
	if !ok || got.Turns != 3 || got.Board != "fen3" {
		t.Fatalf("expected most recent merge to win, got %+v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("duplicate id produced extra entries: %d", s.Len())
	}
}

func TestMergeEmptyIDRejected(t *testing.T) {
	s := New(NewMemoryPersister())
	if s.Merge(context.Background(), GameRecord{}) {
		t.Fatalf("merge of empty id should be rejected")
	}
}

func TestNewerWinsPolicy(t *testing.T) {
	s := New(NewMemoryPersister(), WithPolicy(NewerWins))
	ctx := context.Background()

	s.Merge(ctx, record("bob", 5, "fen5", false))
	if s.Merge(ctx, record("bob", 3, "fen3", false)) {
		t.Fatalf("stale record accepted under NewerWins")
	}
	got, _ := s.Get("bob")
	if got.Turns != 5 {
		t.Fatalf("stale record overwrote fresh one: %+v", got)
	}

	// Same turn count but the board changed: the optimistic local commit.
	if !s.Merge(ctx, record("bob", 5, "fen5-opt", false)) {
		t.Fatalf("same-turn board change rejected")
	}

	// Ended flips one way at equal turns.
	if !s.Merge(ctx, record("bob", 5, "fen5-opt", true)) {
		t.Fatalf("ended transition rejected")
	}
	if s.Merge(ctx, record("bob", 5, "fen5-opt", false)) {
		t.Fatalf("ended reverted to false")
	}
	if s.Merge(ctx, record("bob", 5, "fen-other", false)) {
		t.Fatalf("ended game accepted same-turn replacement")
	}
	if !s.Merge(ctx, record("bob", 6, "fen6", true)) {
		t.Fatalf("later turn rejected")
	}
}

func TestReplaceBypassesPolicy(t *testing.T) {
	s := New(NewMemoryPersister(), WithPolicy(NewerWins))
	ctx := context.Background()

	s.Merge(ctx, record("bob", 12, "fen12", true))

	// A rematch restarts the game under the same id.
	fresh := record("bob", 0, "fen0", false)
	if !s.Replace(ctx, fresh) {
		t.Fatalf("Replace rejected")
	}
	got, _ := s.Get("bob")
	if got != fresh {
		t.Fatalf("Replace did not install fresh record: %+v", got)
	}
	if s.Replace(ctx, GameRecord{}) {
		t.Fatalf("Replace of empty id should be rejected")
	}
}

func TestRevert(t *testing.T) {
	s := New(NewMemoryPersister())
	ctx := context.Background()

	prev := record("bob", 0, "fen0", false)
	optimistic := record("bob", 0, "fen0-opt", false)
	s.Merge(ctx, prev)
	s.Merge(ctx, optimistic)

	if !s.Revert(ctx, optimistic, prev) {
		t.Fatalf("revert should apply while optimistic record is current")
	}
	got, _ := s.Get("bob")
	if got != prev {
		t.Fatalf("revert did not restore snapshot: %+v", got)
	}

	// A fresher record supersedes the optimistic one: revert must no-op.
	s.Merge(ctx, optimistic)
	pushed := record("bob", 5, "fen5", false)
	s.Merge(ctx, pushed)
	if s.Revert(ctx, optimistic, prev) {
		t.Fatalf("revert clobbered a superseding record")
	}
	got, _ = s.Get("bob")
	if got != pushed {
		t.Fatalf("expected pushed record to survive, got %+v", got)
	}
}

func TestOnChange(t *testing.T) {
	s := New(NewMemoryPersister())
	ctx := context.Background()

	var seen []GameRecord
	id := s.OnChange(func(rec GameRecord) { seen = append(seen, rec) })

	s.Merge(ctx, record("bob", 0, "fen0", false))
	if len(seen) != 1 || seen[0].ID != "bob" {
		t.Fatalf("observer not notified: %+v", seen)
	}

	s.RemoveOnChange(id)
	s.Merge(ctx, record("bob", 1, "fen1", false))
	if len(seen) != 1 {
		t.Fatalf("removed observer still notified")
	}
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "games.json")
	ctx := context.Background()

	s := New(NewFilePersister(path))
	s.Merge(ctx, record("bob", 2, "fen2", false))
	s.Merge(ctx, record("carol", 7, "fen7", true))

	// A fresh store over the same file sees the last snapshot.
	restored := New(NewFilePersister(path))
	if err := restored.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("expected 2 restored records, got %d", restored.Len())
	}
	got, ok := restored.Get("carol")
	if !ok || got.Turns != 7 || !got.Ended {
		t.Fatalf("restored record mismatch: %+v", got)
	}
}

func TestHydrateMissingSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	s := New(NewFilePersister(path))
	if err := s.Hydrate(context.Background()); err != nil {
		t.Fatalf("missing snapshot should hydrate empty: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}
