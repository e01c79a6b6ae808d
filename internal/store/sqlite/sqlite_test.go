package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/townsquare-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestTownRecordCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := &store.TownRecord{
		ID:           "AB12CD34",
		FriendlyName: "My Town",
		IsPublic:     true,
		Capacity:     50,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	if err := st.CreateTown(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetTown(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FriendlyName != "My Town" || !got.IsPublic || got.Capacity != 50 || got.PasswordHash != "hash" {
		t.Fatalf("unexpected record: %+v", got)
	}

	got.FriendlyName = "Renamed"
	got.IsPublic = false
	if err := st.UpdateTown(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = st.GetTown(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.FriendlyName != "Renamed" || got.IsPublic {
		t.Fatalf("update not applied: %+v", got)
	}

	towns, err := st.ListTowns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(towns) != 1 {
		t.Fatalf("list = %+v", towns)
	}

	if err := st.DeleteTown(ctx, "AB12CD34"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetTown(ctx, "AB12CD34"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestMissingTownOperations(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.GetTown(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if err := st.UpdateTown(ctx, &store.TownRecord{ID: "nope"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	if err := st.DeleteTown(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestChatLogOrderAndScoping(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i, body := range []string{"first", "second", "third"} {
		rec := &store.ChatRecord{
			TownID:    "town-a",
			AuthorID:  "alice",
			Body:      body,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := st.SaveChatMessage(ctx, rec); err != nil {
			t.Fatalf("save %q: %v", body, err)
		}
		if rec.ID == 0 {
			t.Fatal("insert id not populated")
		}
	}
	if err := st.SaveChatMessage(ctx, &store.ChatRecord{
		TownID: "town-b", AuthorID: "bob", Body: "elsewhere", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save other town: %v", err)
	}

	msgs, err := st.ListChatMessages(ctx, "town-a", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "third" || msgs[1].Body != "second" {
		t.Fatalf("unexpected order: %+v", msgs)
	}

	// Deleting the town sweeps its chat log with it.
	if err := st.CreateTown(ctx, &store.TownRecord{ID: "town-a", FriendlyName: "A", Capacity: 1, PasswordHash: "h"}); err != nil {
		t.Fatalf("create town: %v", err)
	}
	if err := st.DeleteTown(ctx, "town-a"); err != nil {
		t.Fatalf("delete town: %v", err)
	}
	msgs, err = st.ListChatMessages(ctx, "town-a", 10)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("chat log survived town deletion: %+v", msgs)
	}
}
