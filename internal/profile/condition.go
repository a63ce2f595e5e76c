package profile

import (
	"fmt"
	"strings"
)

// FactType selects which extracted value a condition compares against.
type FactType string

const (
	FactTradeSize          FactType = "trade_size"
	FactMarketCap          FactType = "market_cap"
	FactBuyVolume          FactType = "buy_volume"
	FactSellVolume         FactType = "sell_volume"
	FactNetVolume          FactType = "net_volume"
	FactLastTradeAmount    FactType = "last_trade_amount"
	FactLastTradeDirection FactType = "last_trade_direction"
	FactTokenAge           FactType = "token_age"
	FactSignerBalance      FactType = "signer_balance"

	// Whitelist-scoped facts are computed relative to one named address.
	FactWhitelistBuyVolume  FactType = "whitelist_buy_volume"
	FactWhitelistSellVolume FactType = "whitelist_sell_volume"
	FactWhitelistNetVolume  FactType = "whitelist_net_volume"
	FactWhitelistLastTrade  FactType = "whitelist_last_trade"
)

// FactRef is a fully scoped fact selector: the type plus the optional window
// and address scope that are meaningful for it. Fields that the type does not
// use are ignored by extraction, not treated as errors.
type FactRef struct {
	Type FactType `json:"fact_type"`
	// TimeframeMin is the aggregation window in minutes; 0 means the
	// instantaneous/current value.
	TimeframeMin int `json:"timeframe_min,omitempty"`
	// Address scopes whitelist facts to one external wallet.
	Address string `json:"whitelist_address,omitempty"`
}

// Whitelisted reports whether the fact type is scoped to an external address.
func (f FactType) Whitelisted() bool {
	switch f {
	case FactWhitelistBuyVolume, FactWhitelistSellVolume, FactWhitelistNetVolume, FactWhitelistLastTrade:
		return true
	}
	return false
}

// Windowed reports whether the fact type aggregates over a timeframe.
func (f FactType) Windowed() bool {
	switch f {
	case FactBuyVolume, FactSellVolume, FactNetVolume,
		FactWhitelistBuyVolume, FactWhitelistSellVolume, FactWhitelistNetVolume:
		return true
	}
	return false
}

// Directional reports whether the fact encodes a trade direction (1=buy,
// 0=sell) and therefore only supports exact equality.
func (f FactType) Directional() bool {
	return f == FactLastTradeDirection
}

type Operator string

const (
	OpGT  Operator = ">"
	OpLT  Operator = "<"
	OpEQ  Operator = "="
	OpGTE Operator = ">="
	OpLTE Operator = "<="
)

func ParseOperator(raw string) (Operator, bool) {
	switch Operator(strings.TrimSpace(raw)) {
	case OpGT:
		return OpGT, true
	case OpLT:
		return OpLT, true
	case OpEQ, "==":
		return OpEQ, true
	case OpGTE:
		return OpGTE, true
	case OpLTE:
		return OpLTE, true
	}
	return "", false
}

// FactSet is the read-only mapping the evaluator derives from one event plus
// the rolling aggregates the fact tracker maintains. Absent facts report
// ok=false and conditions fail closed on them.
type FactSet interface {
	Fact(ref FactRef) (value float64, ok bool)
}

// Condition is one evaluated predicate over a scoped fact.
type Condition struct {
	ID       string   `json:"id"`
	Fact     FactRef  `json:"fact"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Evaluate is a pure function of the condition and the fact set. Direction
// facts compare literally against 0/1; the extractor emits them exactly, so
// no epsilon is applied anywhere.
func (c Condition) Evaluate(facts FactSet) bool {
	if facts == nil {
		return false
	}
	got, ok := facts.Fact(c.Fact)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpGT:
		return got > c.Value
	case OpLT:
		return got < c.Value
	case OpEQ:
		return got == c.Value
	case OpGTE:
		return got >= c.Value
	case OpLTE:
		return got <= c.Value
	}
	return false
}

// Validate enforces the structural rules the builder layer guarantees to the
// evaluator.
func (c Condition) Validate() error {
	if _, ok := ParseOperator(string(c.Operator)); !ok {
		return fmt.Errorf("condition %s: invalid operator %q", c.ID, c.Operator)
	}
	if c.Fact.Type == "" {
		return fmt.Errorf("condition %s: missing fact type", c.ID)
	}
	if c.Fact.Type.Whitelisted() && strings.TrimSpace(c.Fact.Address) == "" {
		return fmt.Errorf("condition %s: whitelist fact requires an address", c.ID)
	}
	if c.Fact.Type.Directional() && c.Operator != OpEQ {
		return fmt.Errorf("condition %s: direction facts support only '='", c.ID)
	}
	if c.Fact.Type.Directional() && c.Value != 0 && c.Value != 1 {
		return fmt.Errorf("condition %s: direction value must be 0 or 1", c.ID)
	}
	if c.Fact.TimeframeMin < 0 {
		return fmt.Errorf("condition %s: negative timeframe", c.ID)
	}
	return nil
}
