package profile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"autotrader/internal/event"
)

type ActionKind string

const (
	KindBuy  ActionKind = "buy"
	KindSell ActionKind = "sell"
	// KindMirror replicates the triggering trade's direction. Only valid in
	// copy-trade profiles.
	KindMirror ActionKind = "mirror"
)

// AmountMode selects how AmountParam is interpreted when resolving the
// dispatch size. Exactly one parameter group is active per mode.
type AmountMode string

const (
	// AmountFixed dispatches AmountParam SOL as-is.
	AmountFixed AmountMode = "fixed"
	// AmountBalancePct dispatches AmountParam percent of the acting wallet's
	// balance.
	AmountBalancePct AmountMode = "balance_pct"
	// AmountSourceMultiple multiplies the triggering trade's size (copy-trade
	// only).
	AmountSourceMultiple AmountMode = "source_multiple"
	// AmountLastTradeMultiple multiplies the token's last observed trade.
	AmountLastTradeMultiple AmountMode = "last_trade_multiple"
	// AmountVolumeMultiple multiplies an aggregated volume fact; VolumeFact
	// names the fact and window, and for the whitelist variant the address.
	AmountVolumeMultiple          AmountMode = "volume_multiple"
	AmountWhitelistVolumeMultiple AmountMode = "whitelist_volume_multiple"
)

// Action is one effect template owned by a profile. SlippageBps and Priority
// are execution hints passed through to the dispatch collaborator unchanged.
type Action struct {
	ID          string          `json:"id"`
	Kind        ActionKind      `json:"kind"`
	AmountMode  AmountMode      `json:"amount_mode"`
	AmountParam decimal.Decimal `json:"amount_param"`

	// VolumeFact is set only for the volume-derived amount modes.
	VolumeFact FactRef `json:"volume_fact,omitempty"`

	SlippageBps int `json:"slippage_bps"`
	Priority    int `json:"priority"`
}

// AmountContext carries the values amount resolution may draw on. Volume is
// consulted only by the volume-derived modes and may report absence.
type AmountContext struct {
	WalletBalance     decimal.Decimal
	HasBalance        bool
	SourceTradeAmount decimal.Decimal
	LastTradeAmount   decimal.Decimal
	HasLastTrade      bool
	Volume            func(ref FactRef) (decimal.Decimal, bool)
}

var hundred = decimal.NewFromInt(100)

// ResolveAmount computes the concrete SOL amount for a dispatch. It never
// clamps against the wallet balance; insufficient funds surface later as a
// dispatch failure.
func (a Action) ResolveAmount(ctx AmountContext) (decimal.Decimal, error) {
	switch a.AmountMode {
	case AmountFixed:
		return a.AmountParam, nil
	case AmountBalancePct:
		if !ctx.HasBalance {
			return decimal.Zero, fmt.Errorf("action %s: wallet balance unavailable", a.ID)
		}
		return ctx.WalletBalance.Mul(a.AmountParam).Div(hundred), nil
	case AmountSourceMultiple:
		return ctx.SourceTradeAmount.Mul(a.AmountParam), nil
	case AmountLastTradeMultiple:
		if !ctx.HasLastTrade {
			return decimal.Zero, fmt.Errorf("action %s: no last trade observed", a.ID)
		}
		return ctx.LastTradeAmount.Mul(a.AmountParam), nil
	case AmountVolumeMultiple, AmountWhitelistVolumeMultiple:
		if ctx.Volume == nil {
			return decimal.Zero, fmt.Errorf("action %s: volume source unavailable", a.ID)
		}
		vol, ok := ctx.Volume(a.VolumeFact)
		if !ok {
			return decimal.Zero, fmt.Errorf("action %s: volume fact %s absent", a.ID, a.VolumeFact.Type)
		}
		return vol.Mul(a.AmountParam), nil
	}
	return decimal.Zero, fmt.Errorf("action %s: unknown amount mode %q", a.ID, a.AmountMode)
}

// ResolveDirection maps the action kind and the triggering trade direction to
// the dispatch direction. Mirror follows the trigger; a trigger without a
// direction (deploy, tick) mirrors to buy. Any other kind is direction-fixed.
func (a Action) ResolveDirection(trigger event.Direction) event.Direction {
	switch a.Kind {
	case KindSell:
		return event.DirectionSell
	case KindMirror:
		if trigger == event.DirectionSell {
			return event.DirectionSell
		}
		return event.DirectionBuy
	}
	return event.DirectionBuy
}

func (a Action) Validate(family Family) error {
	switch a.Kind {
	case KindBuy, KindSell:
	case KindMirror:
		if family != FamilyCopyTrade {
			return fmt.Errorf("action %s: mirror is only valid in copy-trade profiles", a.ID)
		}
	default:
		return fmt.Errorf("action %s: invalid kind %q", a.ID, a.Kind)
	}
	switch a.AmountMode {
	case AmountFixed, AmountBalancePct, AmountLastTradeMultiple:
	case AmountSourceMultiple:
		if family != FamilyCopyTrade {
			return fmt.Errorf("action %s: source multiple is only valid in copy-trade profiles", a.ID)
		}
	case AmountVolumeMultiple:
		if !a.VolumeFact.Type.Windowed() {
			return fmt.Errorf("action %s: volume multiple requires a volume fact", a.ID)
		}
	case AmountWhitelistVolumeMultiple:
		if !a.VolumeFact.Type.Whitelisted() || !a.VolumeFact.Type.Windowed() {
			return fmt.Errorf("action %s: whitelist volume multiple requires a whitelist volume fact", a.ID)
		}
		if strings.TrimSpace(a.VolumeFact.Address) == "" {
			return fmt.Errorf("action %s: whitelist volume multiple requires an address", a.ID)
		}
	default:
		return fmt.Errorf("action %s: invalid amount mode %q", a.ID, a.AmountMode)
	}
	if a.AmountParam.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("action %s: amount parameter must be positive", a.ID)
	}
	if a.SlippageBps < 0 {
		return fmt.Errorf("action %s: negative slippage", a.ID)
	}
	return nil
}
