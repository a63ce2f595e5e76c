package facts

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"autotrader/internal/event"
	"autotrader/internal/profile"
)

// BalanceSource reports a wallet's spendable SOL balance. Absence fails the
// dependent facts closed instead of erroring.
type BalanceSource interface {
	Balance(wallet string) (decimal.Decimal, bool)
}

// Tracker maintains the rolling aggregates fact extraction draws on: per-mint
// and per-wallet buy/sell flows in minute buckets, last-trade caches, and
// deploy times. All amounts are kept as decimal and only converted to float
// at the comparison boundary.
type Tracker struct {
	mu        sync.Mutex
	maxWindow time.Duration
	mints     map[string]*tokenState
	wallets   map[string]*flowState
	balances  BalanceSource
}

type bucket struct {
	start time.Time
	buy   decimal.Decimal
	sell  decimal.Decimal
}

type flowState struct {
	buckets []bucket
	lastAmt decimal.Decimal
	lastDir event.Direction
	hasLast bool
}

type tokenState struct {
	flowState
	deployedAt time.Time
	hasDeploy  bool
	marketCap  float64
	hasCap     bool
}

func NewTracker(maxWindow time.Duration, balances BalanceSource) *Tracker {
	if maxWindow <= 0 {
		maxWindow = 2 * time.Hour
	}
	return &Tracker{
		maxWindow: maxWindow,
		mints:     map[string]*tokenState{},
		wallets:   map[string]*flowState{},
		balances:  balances,
	}
}

// Observe folds one event into the rolling state. The evaluator calls it
// before deriving facts, so the triggering trade is part of its own windows.
func (t *Tracker) Observe(e event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	switch {
	case e.Deploy != nil:
		st := t.token(e.Deploy.Mint)
		if e.Type == event.TypeDeploy {
			st.deployedAt = ts
			st.hasDeploy = true
		}
		if e.Deploy.MarketCapSOL > 0 {
			st.marketCap = e.Deploy.MarketCapSOL
			st.hasCap = true
		}
	case e.Trade != nil:
		st := t.token(e.Trade.Mint)
		st.record(ts, e.Trade.Direction, e.Trade.AmountSOL, t.maxWindow)
		if e.Trade.MarketCapSOL > 0 {
			st.marketCap = e.Trade.MarketCapSOL
			st.hasCap = true
		}
		if signer := strings.TrimSpace(e.Trade.Signer); signer != "" {
			t.wallet(signer).record(ts, e.Trade.Direction, e.Trade.AmountSOL, t.maxWindow)
		}
	case e.Tick != nil:
		st := t.token(e.Tick.Mint)
		if e.Tick.MarketCapSOL > 0 {
			st.marketCap = e.Tick.MarketCapSOL
			st.hasCap = true
		}
	}
}

func (t *Tracker) token(mint string) *tokenState {
	st, ok := t.mints[mint]
	if !ok {
		st = &tokenState{}
		t.mints[mint] = st
	}
	return st
}

func (t *Tracker) wallet(addr string) *flowState {
	key := strings.ToLower(addr)
	st, ok := t.wallets[key]
	if !ok {
		st = &flowState{}
		t.wallets[key] = st
	}
	return st
}

func (f *flowState) record(ts time.Time, dir event.Direction, amt decimal.Decimal, maxWindow time.Duration) {
	f.lastAmt = amt
	f.lastDir = dir
	f.hasLast = true

	start := ts.Truncate(time.Minute)
	n := len(f.buckets)
	if n == 0 || !f.buckets[n-1].start.Equal(start) {
		f.buckets = append(f.buckets, bucket{start: start})
		n++
	}
	if dir == event.DirectionSell {
		f.buckets[n-1].sell = f.buckets[n-1].sell.Add(amt)
	} else {
		f.buckets[n-1].buy = f.buckets[n-1].buy.Add(amt)
	}
	cutoff := ts.Add(-maxWindow)
	for len(f.buckets) > 0 && f.buckets[0].start.Before(cutoff) {
		f.buckets = f.buckets[1:]
	}
}

// sum aggregates the flow over the trailing window ending at now. A zero
// timeframe means the current minute bucket.
func (f *flowState) sum(now time.Time, timeframeMin int, kind profile.FactType) decimal.Decimal {
	var since time.Time
	if timeframeMin <= 0 {
		since = now.Truncate(time.Minute)
	} else {
		since = now.Add(-time.Duration(timeframeMin) * time.Minute)
	}
	buy, sell := decimal.Zero, decimal.Zero
	for _, b := range f.buckets {
		if b.start.Before(since.Truncate(time.Minute)) {
			continue
		}
		buy = buy.Add(b.buy)
		sell = sell.Add(b.sell)
	}
	switch kind {
	case profile.FactSellVolume, profile.FactWhitelistSellVolume:
		return sell
	case profile.FactNetVolume, profile.FactWhitelistNetVolume:
		return buy.Sub(sell)
	default:
		return buy
	}
}

// Set derives the fact mapping for one event. The returned set is read-only
// and stays consistent for the duration of that event's evaluation.
func (t *Tracker) Set(e event.Event) *Set {
	now := e.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Set{tracker: t, event: e, now: now}
}

// Set resolves scoped fact references against one event plus the tracker's
// rolling state. It implements profile.FactSet.
type Set struct {
	tracker *Tracker
	event   event.Event
	now     time.Time
}

func (s *Set) Fact(ref profile.FactRef) (float64, bool) {
	if s == nil || s.tracker == nil {
		return 0, false
	}
	if ref.Type.Whitelisted() || ref.Type.Windowed() {
		v, ok := s.Volume(ref)
		if !ok {
			return 0, false
		}
		return v.InexactFloat64(), true
	}
	s.tracker.mu.Lock()
	defer s.tracker.mu.Unlock()
	switch ref.Type {
	case profile.FactTradeSize:
		if s.event.Trade == nil {
			return 0, false
		}
		return s.event.Trade.AmountSOL.InexactFloat64(), true
	case profile.FactMarketCap:
		return s.marketCapLocked()
	case profile.FactLastTradeAmount:
		st, ok := s.tracker.mints[s.event.Mint()]
		if !ok || !st.hasLast {
			return 0, false
		}
		return st.lastAmt.InexactFloat64(), true
	case profile.FactLastTradeDirection:
		st, ok := s.tracker.mints[s.event.Mint()]
		if !ok || !st.hasLast {
			return 0, false
		}
		if st.lastDir == event.DirectionSell {
			return 0, true
		}
		return 1, true
	case profile.FactTokenAge:
		st, ok := s.tracker.mints[s.event.Mint()]
		if !ok || !st.hasDeploy {
			return 0, false
		}
		return s.now.Sub(st.deployedAt).Minutes(), true
	case profile.FactSignerBalance:
		if s.tracker.balances == nil {
			return 0, false
		}
		signer := s.signer()
		if signer == "" {
			return 0, false
		}
		bal, ok := s.tracker.balances.Balance(signer)
		if !ok {
			return 0, false
		}
		return bal.InexactFloat64(), true
	}
	return 0, false
}

// Volume resolves windowed flow facts as decimal, for amount resolution.
func (s *Set) Volume(ref profile.FactRef) (decimal.Decimal, bool) {
	if s == nil || s.tracker == nil {
		return decimal.Zero, false
	}
	s.tracker.mu.Lock()
	defer s.tracker.mu.Unlock()
	if ref.Type.Whitelisted() {
		st, ok := s.tracker.wallets[strings.ToLower(ref.Address)]
		if !ok {
			return decimal.Zero, false
		}
		if ref.Type == profile.FactWhitelistLastTrade {
			if !st.hasLast {
				return decimal.Zero, false
			}
			return st.lastAmt, true
		}
		return st.sum(s.now, ref.TimeframeMin, ref.Type), true
	}
	st, ok := s.tracker.mints[s.event.Mint()]
	if !ok {
		return decimal.Zero, false
	}
	return st.sum(s.now, ref.TimeframeMin, ref.Type), true
}

// LastTradeSOL reports the last observed trade for the event's token.
func (s *Set) LastTradeSOL() (decimal.Decimal, bool) {
	if s == nil || s.tracker == nil {
		return decimal.Zero, false
	}
	s.tracker.mu.Lock()
	defer s.tracker.mu.Unlock()
	st, ok := s.tracker.mints[s.event.Mint()]
	if !ok || !st.hasLast {
		return decimal.Zero, false
	}
	return st.lastAmt, true
}

func (s *Set) marketCapLocked() (float64, bool) {
	switch {
	case s.event.Deploy != nil && s.event.Deploy.MarketCapSOL > 0:
		return s.event.Deploy.MarketCapSOL, true
	case s.event.Trade != nil && s.event.Trade.MarketCapSOL > 0:
		return s.event.Trade.MarketCapSOL, true
	case s.event.Tick != nil && s.event.Tick.MarketCapSOL > 0:
		return s.event.Tick.MarketCapSOL, true
	}
	if st, ok := s.tracker.mints[s.event.Mint()]; ok && st.hasCap {
		return st.marketCap, true
	}
	return 0, false
}

func (s *Set) signer() string {
	switch {
	case s.event.Trade != nil:
		return s.event.Trade.Signer
	case s.event.Deploy != nil:
		return s.event.Deploy.Signer
	}
	return ""
}
