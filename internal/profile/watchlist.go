package profile

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Watchlist is a named auxiliary address list. Whitelist-scoped facts and
// copy-trade scope pickers reference addresses from these lists; the lists
// travel with snapshots so a backup restores them together with profiles.
type Watchlist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
}

func NewWatchlist(name string, addresses []string) Watchlist {
	return Watchlist{
		ID:        uuid.NewString(),
		Name:      name,
		Addresses: append([]string(nil), addresses...),
	}
}

func (w Watchlist) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("watchlist name is required")
	}
	for _, a := range w.Addresses {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("watchlist %s: empty address", w.Name)
		}
	}
	return nil
}
