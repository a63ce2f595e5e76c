package dispatch

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"autotrader/internal/event"
	"autotrader/internal/profile"
)

// Request is the evaluator's output: one concrete, resolved instruction for
// the execution collaborator. SlippageBps and Priority pass through unchanged.
type Request struct {
	ID        string          `json:"id"`
	ProfileID string          `json:"profile_id"`
	Family    profile.Family  `json:"family"`
	ActionID  string          `json:"action_id"`
	Mint      string          `json:"mint"`
	Direction event.Direction `json:"direction"`
	AmountSOL decimal.Decimal `json:"amount_sol"`

	SlippageBps   int      `json:"slippage_bps"`
	Priority      int      `json:"priority"`
	TargetWallets []string `json:"target_wallets,omitempty"`

	RequestedAt time.Time `json:"requested_at"`
}

// Outcome is the collaborator's asynchronous report for one request. Outcomes
// may arrive out of order relative to emission.
type Outcome struct {
	RequestID string         `json:"request_id"`
	ProfileID string         `json:"profile_id"`
	Family    profile.Family `json:"family"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	TxRef     string         `json:"tx_ref,omitempty"`
	SettledAt time.Time      `json:"settled_at"`
}

// Dispatcher accepts requests fire-and-forget. Each request in a batch is
// attempted independently; results come back through the outcome channel the
// implementation was constructed with.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request)
}
