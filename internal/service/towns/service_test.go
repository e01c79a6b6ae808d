package towns

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/townsquare-server/internal/store"
	"github.com/vovakirdan/townsquare-server/internal/town"
)

// fakeStore is an in-memory store.Store for directory tests.
type fakeStore struct {
	mu    sync.Mutex
	towns map[string]*store.TownRecord
	chats []*store.ChatRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{towns: make(map[string]*store.TownRecord)}
}

func (f *fakeStore) CreateTown(_ context.Context, rec *store.TownRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.towns[rec.ID] = &cp
	return nil
}

func (f *fakeStore) GetTown(_ context.Context, id string) (*store.TownRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.towns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) UpdateTown(_ context.Context, rec *store.TownRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.towns[rec.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.FriendlyName = rec.FriendlyName
	existing.IsPublic = rec.IsPublic
	return nil
}

func (f *fakeStore) DeleteTown(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.towns[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.towns, id)
	return nil
}

func (f *fakeStore) ListTowns(_ context.Context) ([]*store.TownRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]*store.TownRecord, 0, len(f.towns))
	for _, rec := range f.towns {
		cp := *rec
		recs = append(recs, &cp)
	}
	return recs, nil
}

func (f *fakeStore) SaveChatMessage(_ context.Context, rec *store.ChatRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.chats = append(f.chats, &cp)
	return nil
}

func (f *fakeStore) ListChatMessages(_ context.Context, townID string, limit int) ([]*store.ChatRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.ChatRecord
	for i := len(f.chats) - 1; i >= 0 && len(out) < limit; i-- {
		if f.chats[i].TownID == townID {
			cp := *f.chats[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats)
}

func newTestService(t *testing.T, st store.Store) *Service {
	t.Helper()

	svc, err := New(context.Background(), Options{Store: st, Capacity: 10})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateTownPersistsAndHandsOutPassword(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, st)
	ctx := context.Background()

	tn, password, err := svc.CreateTown(ctx, "My Town", true)
	if err != nil {
		t.Fatalf("create town: %v", err)
	}
	if password == "" {
		t.Fatal("expected one-time password")
	}

	rec, err := st.GetTown(ctx, tn.ID())
	if err != nil {
		t.Fatalf("persisted record: %v", err)
	}
	if rec.PasswordHash == password {
		t.Fatal("plaintext password must not be stored")
	}

	got, ok := svc.Get(tn.ID())
	if !ok || got.FriendlyName() != "My Town" {
		t.Fatalf("live town lookup failed: %v %v", got, ok)
	}

	if _, _, err := svc.CreateTown(ctx, "", true); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("empty name: got %v, want %v", err, ErrEmptyName)
	}
}

func TestListTownsOnlyPublic(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	ctx := context.Background()

	pub, _, err := svc.CreateTown(ctx, "Public", true)
	if err != nil {
		t.Fatalf("create public: %v", err)
	}
	if _, _, err := svc.CreateTown(ctx, "Hidden", false); err != nil {
		t.Fatalf("create hidden: %v", err)
	}

	if _, _, err := pub.AddPlayer("alice"); err != nil {
		t.Fatalf("add player: %v", err)
	}

	listings := svc.ListTowns()
	if len(listings) != 1 {
		t.Fatalf("listings = %+v, want only the public town", listings)
	}
	l := listings[0]
	if l.ID != pub.ID() || l.FriendlyName != "Public" || l.Occupancy != 1 || l.Capacity != 10 {
		t.Fatalf("unexpected listing: %+v", l)
	}
}

func TestUpdateTownRequiresPassword(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, st)
	ctx := context.Background()

	tn, password, err := svc.CreateTown(ctx, "My Town", true)
	if err != nil {
		t.Fatalf("create town: %v", err)
	}

	name := "Renamed"
	hidden := false
	update := town.SettingsUpdate{FriendlyName: &name, IsPublic: &hidden}

	if err := svc.UpdateTown(ctx, tn.ID(), "wrong", update); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password: got %v, want %v", err, ErrInvalidPassword)
	}
	if err := svc.UpdateTown(ctx, "nope", password, update); !errors.Is(err, ErrTownNotFound) {
		t.Fatalf("unknown town: got %v, want %v", err, ErrTownNotFound)
	}

	if err := svc.UpdateTown(ctx, tn.ID(), password, update); err != nil {
		t.Fatalf("update town: %v", err)
	}
	if tn.FriendlyName() != "Renamed" || tn.IsPublic() {
		t.Fatalf("update not applied: %q public=%v", tn.FriendlyName(), tn.IsPublic())
	}

	rec, err := st.GetTown(ctx, tn.ID())
	if err != nil {
		t.Fatalf("persisted record: %v", err)
	}
	if rec.FriendlyName != "Renamed" || rec.IsPublic {
		t.Fatalf("update not persisted: %+v", rec)
	}
}

func TestDeleteTownDisconnectsEveryone(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, st)
	ctx := context.Background()

	tn, password, err := svc.CreateTown(ctx, "My Town", true)
	if err != nil {
		t.Fatalf("create town: %v", err)
	}
	alice, _, err := tn.AddPlayer("alice")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}

	if err := svc.DeleteTown(ctx, tn.ID(), "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password: got %v, want %v", err, ErrInvalidPassword)
	}
	if err := svc.DeleteTown(ctx, tn.ID(), password); err != nil {
		t.Fatalf("delete town: %v", err)
	}

	if _, ok := svc.Get(tn.ID()); ok {
		t.Fatal("deleted town still resolvable")
	}
	if _, err := st.GetTown(ctx, tn.ID()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("record survived: %v", err)
	}

	// Alice's event channel drains to closed after the closing notice.
	sawClosing := false
	for ev := range alice.Events {
		if ev.Kind == town.EventTownClosing {
			sawClosing = true
		}
	}
	if !sawClosing {
		t.Fatal("no closing notice delivered")
	}
}

func TestReviveEmptyTownsOnStartup(t *testing.T) {
	st := newFakeStore()
	ctx := context.Background()

	first := newTestService(t, st)
	tn, _, err := first.CreateTown(ctx, "Persistent", true)
	if err != nil {
		t.Fatalf("create town: %v", err)
	}
	if _, _, err := tn.AddPlayer("alice"); err != nil {
		t.Fatalf("add player: %v", err)
	}

	second := newTestService(t, st)
	revived, ok := second.Get(tn.ID())
	if !ok {
		t.Fatal("persisted town not revived")
	}
	if revived.FriendlyName() != "Persistent" || !revived.IsPublic() {
		t.Fatalf("revived fields: %q %v", revived.FriendlyName(), revived.IsPublic())
	}
	// Sessions never survive a restart.
	if revived.Occupancy() != 0 {
		t.Fatalf("revived occupancy = %d, want 0", revived.Occupancy())
	}
}

func TestChatMessagesAreLogged(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, st)
	ctx := context.Background()

	tn, _, err := svc.CreateTown(ctx, "My Town", true)
	if err != nil {
		t.Fatalf("create town: %v", err)
	}
	alice, _, err := tn.AddPlayer("alice")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}

	tn.SendChatMessage(alice.Player, "for the record")

	// Logging is fire-and-forget off the broadcast path.
	deadline := time.Now().Add(2 * time.Second)
	for st.chatCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if st.chatCount() != 1 {
		t.Fatalf("chat log count = %d", st.chatCount())
	}

	msgs, err := st.ListChatMessages(ctx, tn.ID(), 10)
	if err != nil {
		t.Fatalf("list chat: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "for the record" || msgs[0].AuthorID != alice.Player.ID {
		t.Fatalf("unexpected chat record: %+v", msgs)
	}
}
