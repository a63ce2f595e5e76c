package event

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type discriminates the incoming stream events.
type Type string

const (
	TypeDeploy    Type = "deploy"
	TypeMigration Type = "migration"
	TypeTrade     Type = "trade"
	TypeTick      Type = "tick"
)

// Direction of a trade. The stream never emits anything else.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Event is one discriminated stream event. Exactly one payload pointer is set,
// matching Type; the others stay nil.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Deploy *DeployPayload `json:"deploy,omitempty"`
	Trade  *TradePayload  `json:"trade,omitempty"`
	Tick   *TickPayload   `json:"tick,omitempty"`
}

// DeployPayload covers both deploy and migration notices.
type DeployPayload struct {
	Platform      string          `json:"platform"`
	Mint          string          `json:"mint"`
	Signer        string          `json:"signer"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	URI           string          `json:"uri"`
	InitialBuySOL decimal.Decimal `json:"initial_buy_sol"`
	MarketCapSOL  float64         `json:"market_cap_sol"`
}

type TradePayload struct {
	Mint         string          `json:"mint"`
	Signer       string          `json:"signer"`
	Direction    Direction       `json:"direction"`
	AmountSOL    decimal.Decimal `json:"amount_sol"`
	PriceSOL     float64         `json:"price_sol"`
	MarketCapSOL float64         `json:"market_cap_sol"`
}

// TickPayload carries aggregated market data for one token.
type TickPayload struct {
	Mint         string  `json:"mint"`
	PriceSOL     float64 `json:"price_sol"`
	MarketCapSOL float64 `json:"market_cap_sol"`
	VolumeSOL    float64 `json:"volume_sol"`
}

// Mint returns the token the event concerns, or "" for events without one.
func (e Event) Mint() string {
	switch {
	case e.Deploy != nil:
		return e.Deploy.Mint
	case e.Trade != nil:
		return e.Trade.Mint
	case e.Tick != nil:
		return e.Tick.Mint
	}
	return ""
}

// TradeDirection returns the direction of the triggering trade, or "" when the
// event is not a trade.
func (e Event) TradeDirection() Direction {
	if e.Trade == nil {
		return ""
	}
	return e.Trade.Direction
}

func ParseType(raw string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeDeploy:
		return TypeDeploy, true
	case TypeMigration:
		return TypeMigration, true
	case TypeTrade:
		return TypeTrade, true
	case TypeTick:
		return TypeTick, true
	}
	return "", false
}
