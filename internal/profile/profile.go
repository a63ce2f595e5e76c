package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autotrader/internal/event"
)

// Family identifies which product surface a profile belongs to. Families share
// the condition/action model but diverge in scope filtering.
type Family string

const (
	FamilySniper    Family = "sniper"
	FamilyCopyTrade Family = "copytrade"
	FamilyAutomate  Family = "automate"
)

func Families() []Family {
	return []Family{FamilySniper, FamilyCopyTrade, FamilyAutomate}
}

func ParseFamily(raw string) (Family, bool) {
	switch Family(strings.ToLower(strings.TrimSpace(raw))) {
	case FamilySniper:
		return FamilySniper, true
	case FamilyCopyTrade:
		return FamilyCopyTrade, true
	case FamilyAutomate:
		return FamilyAutomate, true
	}
	return "", false
}

type Logic string

const (
	LogicAND Logic = "AND"
	LogicOR  Logic = "OR"
)

type CooldownUnit string

const (
	UnitMillis  CooldownUnit = "ms"
	UnitSeconds CooldownUnit = "s"
	UnitMinutes CooldownUnit = "min"
)

// Profile is a named trigger rule: conditions joined by AND/OR, actions to
// fire, and rate limits. It exclusively owns its condition and action lists.
type Profile struct {
	ID          string `json:"id"`
	Family      Family `json:"family"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`

	Conditions     []Condition `json:"conditions"`
	ConditionLogic Logic       `json:"condition_logic"`
	Actions        []Action    `json:"actions"`

	Cooldown     int64        `json:"cooldown"`
	CooldownUnit CooldownUnit `json:"cooldown_unit"`
	// MaxExecutions is a lifetime cap on successful fires; 0 means uncapped.
	MaxExecutions int `json:"max_executions,omitempty"`

	// Execution bookkeeping, mutated only by the evaluator.
	ExecutionCount int        `json:"execution_count"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	// Family scope. Sniper: which deploy/migration event types to consider
	// (empty = both). Copy-trade: wallets whose trades trigger evaluation.
	// Automate: token mints in scope (empty = all).
	EventTypes   []event.Type `json:"event_types,omitempty"`
	WatchWallets []string     `json:"watch_wallets,omitempty"`
	MintFilter   []string     `json:"mint_filter,omitempty"`

	// TargetWallets are the wallets dispatches act through.
	TargetWallets []string `json:"target_wallets,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an initial profile: fresh id, inactive, zero executions.
func New(family Family, name string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:             uuid.NewString(),
		Family:         family,
		Name:           name,
		ConditionLogic: LogicAND,
		Cooldown:       1,
		CooldownUnit:   UnitSeconds,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (p *Profile) CooldownDuration() time.Duration {
	switch p.CooldownUnit {
	case UnitSeconds:
		return time.Duration(p.Cooldown) * time.Second
	case UnitMinutes:
		return time.Duration(p.Cooldown) * time.Minute
	default:
		return time.Duration(p.Cooldown) * time.Millisecond
	}
}

// IsEligible performs the cheap rejections, in order: activation, execution
// cap, cooldown spacing. Conditions are only evaluated when all three hold.
func (p *Profile) IsEligible(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.MaxExecutions > 0 && p.ExecutionCount >= p.MaxExecutions {
		return false
	}
	if p.LastExecutedAt != nil && now.Sub(*p.LastExecutedAt) < p.CooldownDuration() {
		return false
	}
	return true
}

// Matches applies the AND/OR combinator. An empty condition list is vacuously
// true under AND but false under OR: OR needs at least one satisfied disjunct
// and zero disjuncts cannot be satisfied. The asymmetry is intentional.
func (p *Profile) Matches(facts FactSet) bool {
	if p.ConditionLogic == LogicOR {
		for _, c := range p.Conditions {
			if c.Evaluate(facts) {
				return true
			}
		}
		return false
	}
	for _, c := range p.Conditions {
		if !c.Evaluate(facts) {
			return false
		}
	}
	return true
}

// InScope applies the family-specific pre-filter. Out-of-scope events never
// touch eligibility or conditions.
func (p *Profile) InScope(e event.Event) bool {
	switch p.Family {
	case FamilySniper:
		if e.Type != event.TypeDeploy && e.Type != event.TypeMigration {
			return false
		}
		if len(p.EventTypes) == 0 {
			return true
		}
		for _, t := range p.EventTypes {
			if t == e.Type {
				return true
			}
		}
		return false
	case FamilyCopyTrade:
		if e.Type != event.TypeTrade || e.Trade == nil {
			return false
		}
		for _, w := range p.WatchWallets {
			if strings.EqualFold(w, e.Trade.Signer) {
				return true
			}
		}
		return false
	case FamilyAutomate:
		if e.Type != event.TypeTrade && e.Type != event.TypeTick {
			return false
		}
		if len(p.MintFilter) == 0 {
			return true
		}
		mint := e.Mint()
		for _, m := range p.MintFilter {
			if m == mint {
				return true
			}
		}
		return false
	}
	return false
}

// Clone duplicates the profile with fresh ids throughout, zeroed execution
// bookkeeping, and Active=false.
func (p *Profile) Clone() *Profile {
	now := time.Now().UTC()
	dup := *p
	dup.ID = uuid.NewString()
	dup.Active = false
	dup.ExecutionCount = 0
	dup.LastExecutedAt = nil
	dup.CreatedAt = now
	dup.UpdatedAt = now

	dup.Conditions = make([]Condition, len(p.Conditions))
	for i, c := range p.Conditions {
		c.ID = uuid.NewString()
		dup.Conditions[i] = c
	}
	dup.Actions = make([]Action, len(p.Actions))
	for i, a := range p.Actions {
		a.ID = uuid.NewString()
		dup.Actions[i] = a
	}
	dup.EventTypes = append([]event.Type(nil), p.EventTypes...)
	dup.WatchWallets = append([]string(nil), p.WatchWallets...)
	dup.MintFilter = append([]string(nil), p.MintFilter...)
	dup.TargetWallets = append([]string(nil), p.TargetWallets...)
	return &dup
}

// Validate is the save-time structural check the builder layer applies; the
// evaluator assumes profiles passed it.
func (p *Profile) Validate() error {
	if _, ok := ParseFamily(string(p.Family)); !ok {
		return fmt.Errorf("invalid family %q", p.Family)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.ConditionLogic != LogicAND && p.ConditionLogic != LogicOR {
		return fmt.Errorf("invalid condition logic %q", p.ConditionLogic)
	}
	switch p.CooldownUnit {
	case UnitMillis, UnitSeconds, UnitMinutes:
	default:
		return fmt.Errorf("invalid cooldown unit %q", p.CooldownUnit)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("negative cooldown")
	}
	if p.MaxExecutions < 0 {
		return fmt.Errorf("negative execution cap")
	}
	seen := map[string]bool{}
	for _, c := range p.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate condition id %s", c.ID)
		}
		seen[c.ID] = true
	}
	for _, a := range p.Actions {
		if err := a.Validate(p.Family); err != nil {
			return err
		}
	}
	if p.Family == FamilyCopyTrade && len(p.WatchWallets) == 0 {
		return fmt.Errorf("copy-trade profile requires watch wallets")
	}
	return nil
}
