package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autotrader/internal/dispatch"
	"autotrader/internal/event"
	"autotrader/internal/facts"
	"autotrader/internal/profile"
	"autotrader/internal/store"
)

// Engine evaluates each incoming event against every profile in the store.
// Events are processed to completion, one at a time; dispatch outcomes feed
// back through the same loop, so eligibility checks and bookkeeping updates
// never interleave for a profile.
type Engine struct {
	Store      *store.Store
	Facts      *facts.Tracker
	Dispatcher dispatch.Dispatcher
	Balances   facts.BalanceSource
	Logger     *zap.Logger

	events   chan event.Event
	outcomes chan dispatch.Outcome
	ledger   *pendingLedger
}

func New(st *store.Store, tracker *facts.Tracker, disp dispatch.Dispatcher, balances facts.BalanceSource, logger *zap.Logger, queueSize int) *Engine {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Engine{
		Store:      st,
		Facts:      tracker,
		Dispatcher: disp,
		Balances:   balances,
		Logger:     logger,
		events:     make(chan event.Event, queueSize),
		outcomes:   make(chan dispatch.Outcome, queueSize),
		ledger:     newPendingLedger(),
	}
}

// Outcomes is the channel the execution collaborator reports back on.
func (e *Engine) Outcomes() chan<- dispatch.Outcome {
	return e.outcomes
}

// Submit queues one event for evaluation.
func (e *Engine) Submit(ctx context.Context, ev event.Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Run(ctx context.Context) error {
	if e == nil || e.Store == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.handleEvent(ctx, ev)
		case out := <-e.outcomes:
			e.handleOutcome(out)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev event.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if e.Facts != nil {
		e.Facts.Observe(ev)
	}
	var set *facts.Set
	if e.Facts != nil {
		set = e.Facts.Set(ev)
	}
	now := ev.Timestamp

	for _, p := range e.Store.All() {
		p := p
		if !p.InScope(ev) {
			continue
		}
		if !p.IsEligible(now) {
			continue
		}
		if e.ledger.pending(p.ID) > 0 {
			// An unsettled dispatch counts as inside the cooldown window;
			// bookkeeping lands in the outcome callback, so without this a
			// burst of events between emission and settle would re-fire past
			// the cooldown and cap.
			continue
		}
		if !p.Matches(set) {
			continue
		}
		if len(p.Actions) == 0 {
			// Matches, but a profile with no actions never fires.
			continue
		}
		batch := e.resolveBatch(&p, ev, set)
		for _, req := range batch {
			e.ledger.track(req.ID, req.ProfileID, req.Family, req.RequestedAt)
			if e.Dispatcher != nil {
				e.Dispatcher.Dispatch(ctx, req)
			}
		}
		if e.Logger != nil && len(batch) > 0 {
			e.Logger.Info("profile fired",
				zap.String("profile_id", p.ID),
				zap.String("family", string(p.Family)),
				zap.String("event_type", string(ev.Type)),
				zap.Int("dispatches", len(batch)),
			)
		}
	}
}

// resolveBatch turns the profile's actions into dispatch requests. Actions
// resolve independently and in declared order; one that cannot resolve is
// skipped without cancelling the rest.
func (e *Engine) resolveBatch(p *profile.Profile, ev event.Event, set *facts.Set) []dispatch.Request {
	amtCtx := e.amountContext(p, ev, set)
	trigger := ev.TradeDirection()
	out := make([]dispatch.Request, 0, len(p.Actions))
	for _, a := range p.Actions {
		amount, err := a.ResolveAmount(amtCtx)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("action amount unresolved",
					zap.String("profile_id", p.ID),
					zap.String("action_id", a.ID),
					zap.Error(err),
				)
			}
			continue
		}
		out = append(out, dispatch.Request{
			ID:            uuid.NewString(),
			ProfileID:     p.ID,
			Family:        p.Family,
			ActionID:      a.ID,
			Mint:          ev.Mint(),
			Direction:     a.ResolveDirection(trigger),
			AmountSOL:     amount,
			SlippageBps:   a.SlippageBps,
			Priority:      a.Priority,
			TargetWallets: append([]string(nil), p.TargetWallets...),
			RequestedAt:   ev.Timestamp,
		})
	}
	return out
}

func (e *Engine) amountContext(p *profile.Profile, ev event.Event, set *facts.Set) profile.AmountContext {
	ctx := profile.AmountContext{}
	if e.Balances != nil && len(p.TargetWallets) > 0 {
		if bal, ok := e.Balances.Balance(p.TargetWallets[0]); ok {
			ctx.WalletBalance = bal
			ctx.HasBalance = true
		}
	}
	if ev.Trade != nil {
		ctx.SourceTradeAmount = ev.Trade.AmountSOL
	}
	if set != nil {
		if last, ok := set.LastTradeSOL(); ok {
			ctx.LastTradeAmount = last
			ctx.HasLastTrade = true
		}
		ctx.Volume = set.Volume
	}
	return ctx
}

// handleOutcome applies the §4.4 bookkeeping: the cooldown clock advances on
// every settled attempt (back-pressure on attempt rate), the execution count
// only on success.
func (e *Engine) handleOutcome(out dispatch.Outcome) {
	pd, ok := e.ledger.settle(out.RequestID)
	if !ok {
		if e.Logger != nil {
			e.Logger.Warn("outcome for unknown dispatch", zap.String("request_id", out.RequestID))
		}
		return
	}
	at := out.SettledAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	e.Store.RecordAttempt(pd.family, pd.profileID, at)
	if out.Success {
		e.Store.RecordSuccess(pd.family, pd.profileID)
	}
}

// PendingDispatches reports in-flight requests for one profile.
func (e *Engine) PendingDispatches(profileID string) int {
	return e.ledger.pending(profileID)
}

// PreviewAction is one resolved (but not emitted) effect.
type PreviewAction struct {
	ActionID  string          `json:"action_id"`
	Kind      string          `json:"kind"`
	Direction string          `json:"direction"`
	AmountSOL decimal.Decimal `json:"amount_sol"`
	Error     string          `json:"error,omitempty"`
}

// PreviewResult reports what one profile would do with the given event.
type PreviewResult struct {
	ProfileID string          `json:"profile_id"`
	Name      string          `json:"name"`
	Family    profile.Family  `json:"family"`
	InScope   bool            `json:"in_scope"`
	Eligible  bool            `json:"eligible"`
	Matched   bool            `json:"matched"`
	WouldFire bool            `json:"would_fire"`
	Pending   int             `json:"pending_dispatches"`
	Actions   []PreviewAction `json:"actions,omitempty"`
}

// Preview runs the evaluation path read-only: no dispatch requests, no
// bookkeeping, and the event is not folded into the rolling aggregates.
func (e *Engine) Preview(ev event.Event) []PreviewResult {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	var set *facts.Set
	if e.Facts != nil {
		set = e.Facts.Set(ev)
	}
	now := ev.Timestamp
	var results []PreviewResult
	for _, p := range e.Store.All() {
		p := p
		res := PreviewResult{
			ProfileID: p.ID,
			Name:      p.Name,
			Family:    p.Family,
			InScope:   p.InScope(ev),
			Pending:   e.PendingDispatches(p.ID),
		}
		if res.InScope {
			res.Eligible = p.IsEligible(now) && res.Pending == 0
			res.Matched = p.Matches(set)
		}
		if res.InScope && res.Eligible && res.Matched {
			amtCtx := e.amountContext(&p, ev, set)
			trigger := ev.TradeDirection()
			for _, a := range p.Actions {
				pa := PreviewAction{
					ActionID:  a.ID,
					Kind:      string(a.Kind),
					Direction: string(a.ResolveDirection(trigger)),
				}
				amount, err := a.ResolveAmount(amtCtx)
				if err != nil {
					pa.Error = err.Error()
				} else {
					pa.AmountSOL = amount
				}
				res.Actions = append(res.Actions, pa)
			}
			res.WouldFire = len(res.Actions) > 0
		}
		results = append(results, res)
	}
	return results
}
