package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"autotrader/internal/profile"
)

type stubPersister struct {
	profiles   map[profile.Family][]profile.Profile
	watchlists []profile.Watchlist
	saves      map[profile.Family]int
	listSaves  int
	failSave   bool
}

func newStubPersister() *stubPersister {
	return &stubPersister{
		profiles: map[profile.Family][]profile.Profile{},
		saves:    map[profile.Family]int{},
	}
}

func (s *stubPersister) LoadProfiles(_ context.Context, family profile.Family) ([]profile.Profile, error) {
	return s.profiles[family], nil
}

func (s *stubPersister) SaveProfiles(_ context.Context, family profile.Family, items []profile.Profile) error {
	if s.failSave {
		return errors.New("save failed")
	}
	s.profiles[family] = items
	s.saves[family]++
	return nil
}

func (s *stubPersister) LoadWatchlists(_ context.Context) ([]profile.Watchlist, error) {
	return s.watchlists, nil
}

func (s *stubPersister) SaveWatchlists(_ context.Context, items []profile.Watchlist) error {
	if s.failSave {
		return errors.New("save failed")
	}
	s.watchlists = items
	s.listSaves++
	return nil
}

func TestAddGetRemove(t *testing.T) {
	st := New(newStubPersister(), nil)
	p := profile.New(profile.FamilySniper, "p1")
	if err := st.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := st.Add(p); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate add err=%v", err)
	}

	got, err := st.Get(profile.FamilySniper, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "p1" {
		t.Fatalf("got name=%q", got.Name)
	}
	if _, err := st.Get(profile.FamilyAutomate, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-family get err=%v", err)
	}

	if err := st.Remove(profile.FamilySniper, p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := st.Remove(profile.FamilySniper, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err=%v", err)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	st := New(newStubPersister(), nil)
	names := []string{"first", "second", "third"}
	for _, name := range names {
		if err := st.Add(profile.New(profile.FamilyAutomate, name)); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	items := st.List(profile.FamilyAutomate)
	if len(items) != len(names) {
		t.Fatalf("len=%d want=%d", len(items), len(names))
	}
	for i, name := range names {
		if items[i].Name != name {
			t.Fatalf("pos %d got=%q want=%q", i, items[i].Name, name)
		}
	}
}

func TestUpdateStampsAndValidates(t *testing.T) {
	st := New(newStubPersister(), nil)
	p := profile.New(profile.FamilySniper, "p1")
	before := p.UpdatedAt
	if err := st.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}
	time.Sleep(time.Millisecond)
	got, err := st.Update(profile.FamilySniper, p.ID, func(p *profile.Profile) error {
		p.Name = "renamed"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "renamed" {
		t.Fatalf("name=%q", got.Name)
	}
	if !got.UpdatedAt.After(before) {
		t.Fatalf("UpdatedAt not advanced")
	}

	if _, err := st.Update(profile.FamilySniper, p.ID, func(*profile.Profile) error {
		return errors.New("rejected")
	}); err == nil {
		t.Fatalf("mutator error must propagate")
	}
}

func TestFailedUpdateLeavesProfileUnchanged(t *testing.T) {
	st := New(newStubPersister(), nil)
	p := profile.New(profile.FamilySniper, "p1")
	p.Cooldown = 7
	if err := st.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := st.Update(profile.FamilySniper, p.ID, func(p *profile.Profile) error {
		p.Name = "half-applied"
		p.Cooldown = 99
		return errors.New("rejected")
	}); err == nil {
		t.Fatalf("mutator error must propagate")
	}

	got, err := st.Get(profile.FamilySniper, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "p1" || got.Cooldown != 7 {
		t.Fatalf("rejected update leaked into the store: name=%q cooldown=%d", got.Name, got.Cooldown)
	}
}

func TestDuplicateStartsClean(t *testing.T) {
	st := New(newStubPersister(), nil)
	p := profile.New(profile.FamilyCopyTrade, "src")
	p.Active = true
	p.ExecutionCount = 3
	now := time.Now().UTC()
	p.LastExecutedAt = &now
	if err := st.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}

	dup, err := st.Duplicate(profile.FamilyCopyTrade, p.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == p.ID {
		t.Fatalf("duplicate kept the id")
	}
	if dup.Name != "src (copy)" {
		t.Fatalf("name=%q", dup.Name)
	}
	if dup.Active || dup.ExecutionCount != 0 || dup.LastExecutedAt != nil {
		t.Fatalf("duplicate must start inactive with clean bookkeeping")
	}
	if len(st.List(profile.FamilyCopyTrade)) != 2 {
		t.Fatalf("duplicate not appended")
	}
}

func TestToggleActive(t *testing.T) {
	st := New(newStubPersister(), nil)
	p := profile.New(profile.FamilySniper, "p1")
	if err := st.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := st.ToggleActive(profile.FamilySniper, p.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !got.Active {
		t.Fatalf("expected active after first toggle")
	}
	got, _ = st.ToggleActive(profile.FamilySniper, p.ID)
	if got.Active {
		t.Fatalf("expected inactive after second toggle")
	}
}

func TestRecordAttemptAndSuccess(t *testing.T) {
	st := New(newStubPersister(), nil)
	p := profile.New(profile.FamilyAutomate, "p1")
	if err := st.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}

	t1 := time.Now().UTC()
	t2 := t1.Add(time.Second)
	st.RecordAttempt(profile.FamilyAutomate, p.ID, t2)
	st.RecordAttempt(profile.FamilyAutomate, p.ID, t1) // out-of-order settle

	got, _ := st.Get(profile.FamilyAutomate, p.ID)
	if got.LastExecutedAt == nil || !got.LastExecutedAt.Equal(t2) {
		t.Fatalf("latest attempt time must win, got=%v", got.LastExecutedAt)
	}
	if got.ExecutionCount != 0 {
		t.Fatalf("attempt alone must not count executions")
	}

	st.RecordSuccess(profile.FamilyAutomate, p.ID)
	got, _ = st.Get(profile.FamilyAutomate, p.ID)
	if got.ExecutionCount != 1 {
		t.Fatalf("count=%d want=1", got.ExecutionCount)
	}
}

func TestFlushWritesOnlyDirtyFamilies(t *testing.T) {
	persist := newStubPersister()
	st := New(persist, nil)
	p := profile.New(profile.FamilySniper, "p1")
	if err := st.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := st.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if persist.saves[profile.FamilySniper] != 1 {
		t.Fatalf("sniper saves=%d want=1", persist.saves[profile.FamilySniper])
	}
	if persist.saves[profile.FamilyAutomate] != 0 {
		t.Fatalf("clean family must not be saved")
	}

	// Second flush with nothing dirty writes nothing.
	if err := st.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if persist.saves[profile.FamilySniper] != 1 {
		t.Fatalf("clean flush must not re-save")
	}
}

func TestFlushKeepsDirtyOnFailure(t *testing.T) {
	persist := newStubPersister()
	st := New(persist, nil)
	if err := st.Add(profile.New(profile.FamilySniper, "p1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	persist.failSave = true
	if err := st.Flush(context.Background()); err == nil {
		t.Fatalf("flush must surface save failure")
	}
	persist.failSave = false
	if err := st.Flush(context.Background()); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if persist.saves[profile.FamilySniper] != 1 {
		t.Fatalf("family must stay dirty until a save succeeds")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	persist := newStubPersister()
	seed := profile.New(profile.FamilyCopyTrade, "seed")
	seed.WatchWallets = []string{"w1"}
	persist.profiles[profile.FamilyCopyTrade] = []profile.Profile{*seed}
	persist.watchlists = []profile.Watchlist{profile.NewWatchlist("whales", []string{"w1"})}

	st := New(persist, nil)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := st.List(profile.FamilyCopyTrade); len(got) != 1 || got[0].Name != "seed" {
		t.Fatalf("loaded profiles=%+v", got)
	}
	if got := st.Watchlists(); len(got) != 1 || got[0].Name != "whales" {
		t.Fatalf("loaded watchlists=%+v", got)
	}
}

func TestWatchlistUpsertRemove(t *testing.T) {
	st := New(newStubPersister(), nil)
	w := profile.NewWatchlist("whales", []string{"w1"})
	st.UpsertWatchlist(w)

	w.Addresses = append(w.Addresses, "w2")
	st.UpsertWatchlist(w)
	got := st.Watchlists()
	if len(got) != 1 || len(got[0].Addresses) != 2 {
		t.Fatalf("upsert must replace in place, got=%+v", got)
	}

	if err := st.RemoveWatchlist(w.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := st.RemoveWatchlist(w.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err=%v", err)
	}
}
