package store

import (
	"encoding/json"
	"testing"
	"time"

	"autotrader/internal/profile"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	st := New(newStubPersister(), nil)
	sn := profile.New(profile.FamilySniper, "snipe")
	sn.Conditions = []profile.Condition{
		{ID: "c1", Fact: profile.FactRef{Type: profile.FactMarketCap}, Operator: profile.OpGT, Value: 50000},
	}
	ct := profile.New(profile.FamilyCopyTrade, "copy")
	ct.WatchWallets = []string{"w1"}
	au := profile.New(profile.FamilyAutomate, "auto")
	for _, p := range []*profile.Profile{sn, ct, au} {
		if err := st.Add(p); err != nil {
			t.Fatalf("seed add: %v", err)
		}
	}
	st.UpsertWatchlist(profile.NewWatchlist("whales", []string{"w1", "w2"}))
	return st
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := seedStore(t)
	snap := src.Export()

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	dst := New(newStubPersister(), nil)
	res := dst.Import(decoded)
	if res.Imported != 3 || res.Renamed != 0 || res.Lists != 1 {
		t.Fatalf("result=%+v", res)
	}

	got := dst.List(profile.FamilySniper)
	if len(got) != 1 || got[0].Name != "snipe" {
		t.Fatalf("sniper=%+v", got)
	}
	if len(got[0].Conditions) != 1 || got[0].Conditions[0].Value != 50000 {
		t.Fatalf("conditions not preserved: %+v", got[0].Conditions)
	}
	if lists := dst.Watchlists(); len(lists) != 1 || len(lists[0].Addresses) != 2 {
		t.Fatalf("watchlists=%+v", lists)
	}
}

func TestImportStartsInactiveWithCleanBookkeeping(t *testing.T) {
	src := seedStore(t)
	now := time.Now().UTC()
	if _, err := src.Update(profile.FamilySniper, src.List(profile.FamilySniper)[0].ID, func(p *profile.Profile) error {
		p.Active = true
		p.ExecutionCount = 5
		p.LastExecutedAt = &now
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	dst := New(newStubPersister(), nil)
	dst.Import(src.Export())

	got := dst.List(profile.FamilySniper)[0]
	if got.Active {
		t.Fatalf("imported profile must start inactive")
	}
	if got.ExecutionCount != 0 || got.LastExecutedAt != nil {
		t.Fatalf("imported profile must have zeroed bookkeeping")
	}
}

func TestImportRemintsCollidingIDs(t *testing.T) {
	src := seedStore(t)
	snap := src.Export()

	// Importing into the source itself collides on every id.
	res := src.Import(snap)
	if res.Imported != 3 || res.Renamed != 3 {
		t.Fatalf("result=%+v", res)
	}
	items := src.List(profile.FamilySniper)
	if len(items) != 2 {
		t.Fatalf("len=%d want=2", len(items))
	}
	if items[0].ID == items[1].ID {
		t.Fatalf("collision must mint a fresh id")
	}
}

func TestImportForcesFamily(t *testing.T) {
	stray := profile.New(profile.FamilyAutomate, "stray")
	snap := Snapshot{Sniper: []profile.Profile{*stray}}

	dst := New(newStubPersister(), nil)
	dst.Import(snap)
	got := dst.List(profile.FamilySniper)
	if len(got) != 1 || got[0].Family != profile.FamilySniper {
		t.Fatalf("family not forced: %+v", got)
	}
}
