package engine

import (
	"sync"
	"time"

	"autotrader/internal/profile"
)

// pendingLedger tracks emitted dispatch requests until their outcomes settle,
// so cooldown/cap bookkeeping happens in the outcome callback rather than at
// emission time.
type pendingLedger struct {
	mu        sync.Mutex
	byRequest map[string]pendingDispatch
	byProfile map[string]int
}

type pendingDispatch struct {
	profileID string
	family    profile.Family
	emittedAt time.Time
}

func newPendingLedger() *pendingLedger {
	return &pendingLedger{
		byRequest: map[string]pendingDispatch{},
		byProfile: map[string]int{},
	}
}

func (l *pendingLedger) track(requestID, profileID string, family profile.Family, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byRequest[requestID] = pendingDispatch{profileID: profileID, family: family, emittedAt: at}
	l.byProfile[profileID]++
}

// settle removes the request and reports whether it was being tracked.
func (l *pendingLedger) settle(requestID string) (pendingDispatch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pd, ok := l.byRequest[requestID]
	if !ok {
		return pendingDispatch{}, false
	}
	delete(l.byRequest, requestID)
	if n := l.byProfile[pd.profileID]; n <= 1 {
		delete(l.byProfile, pd.profileID)
	} else {
		l.byProfile[pd.profileID] = n - 1
	}
	return pd, true
}

func (l *pendingLedger) pending(profileID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byProfile[profileID]
}
