package store

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autotrader/internal/profile"
)

// Snapshot is the portable serialized form: one array per family plus the
// auxiliary address lists. The JSON shape is stable across versions.
type Snapshot struct {
	Version    int                 `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Sniper     []profile.Profile   `json:"sniper"`
	CopyTrade  []profile.Profile   `json:"copytrade"`
	Automate   []profile.Profile   `json:"automate"`
	Watchlists []profile.Watchlist `json:"watchlists"`
}

const snapshotVersion = 1

type ImportResult struct {
	Imported int `json:"imported"`
	Renamed  int `json:"renamed"`
	Lists    int `json:"watchlists"`
}

// Export serializes all three families with their current state.
func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Version:    snapshotVersion,
		ExportedAt: time.Now().UTC(),
		Watchlists: append([]profile.Watchlist(nil), s.watchlists...),
	}
	snap.Sniper = copyFamilyLocked(s.families[profile.FamilySniper])
	snap.CopyTrade = copyFamilyLocked(s.families[profile.FamilyCopyTrade])
	snap.Automate = copyFamilyLocked(s.families[profile.FamilyAutomate])
	return snap
}

// Import merges a snapshot into the current store. Id collisions mint a fresh
// id for the incoming profile rather than overwriting; imported profiles
// always start inactive with zeroed execution bookkeeping.
func (s *Store) Import(snap Snapshot) ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res ImportResult
	merge := func(family profile.Family, items []profile.Profile) {
		for i := range items {
			p := items[i]
			p.Family = family
			p.Active = false
			p.ExecutionCount = 0
			p.LastExecutedAt = nil
			p.UpdatedAt = time.Now().UTC()
			if s.findLocked(family, p.ID) != nil {
				p.ID = uuid.NewString()
				res.Renamed++
				s.logWarn("snapshot import renamed colliding profile",
					zap.String("family", string(family)),
					zap.String("name", p.Name),
				)
			}
			s.families[family] = append(s.families[family], &p)
			s.dirty[family] = true
			res.Imported++
		}
	}
	merge(profile.FamilySniper, snap.Sniper)
	merge(profile.FamilyCopyTrade, snap.CopyTrade)
	merge(profile.FamilyAutomate, snap.Automate)

	for _, w := range snap.Watchlists {
		incoming := w
		collided := false
		for i := range s.watchlists {
			if s.watchlists[i].ID == incoming.ID {
				collided = true
				break
			}
		}
		if collided {
			incoming.ID = uuid.NewString()
		}
		s.watchlists = append(s.watchlists, incoming)
		s.dirtyLists = true
		res.Lists++
	}
	return res
}

func copyFamilyLocked(rows []*profile.Profile) []profile.Profile {
	out := make([]profile.Profile, 0, len(rows))
	for _, p := range rows {
		out = append(out, *p)
	}
	return out
}
