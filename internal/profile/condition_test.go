package profile

import (
	"testing"
)

type mapFacts map[FactRef]float64

func (m mapFacts) Fact(ref FactRef) (float64, bool) {
	v, ok := m[ref]
	return v, ok
}

func TestConditionEvaluateOperators(t *testing.T) {
	ref := FactRef{Type: FactTradeSize}
	facts := mapFacts{ref: 1.5}

	cases := []struct {
		op    Operator
		value float64
		want  bool
	}{
		{OpGT, 1.0, true},
		{OpGT, 1.5, false},
		{OpLT, 2.0, true},
		{OpLT, 1.5, false},
		{OpEQ, 1.5, true},
		{OpEQ, 1.4, false},
		{OpGTE, 1.5, true},
		{OpGTE, 1.6, false},
		{OpLTE, 1.5, true},
		{OpLTE, 1.4, false},
	}
	for _, tc := range cases {
		c := Condition{ID: "c1", Fact: ref, Operator: tc.op, Value: tc.value}
		if got := c.Evaluate(facts); got != tc.want {
			t.Fatalf("op=%s value=%v got=%v want=%v", tc.op, tc.value, got, tc.want)
		}
	}
}

func TestConditionFailsClosed(t *testing.T) {
	c := Condition{ID: "c1", Fact: FactRef{Type: FactMarketCap}, Operator: OpGT, Value: 0}
	if c.Evaluate(nil) {
		t.Fatalf("nil fact set must fail closed")
	}
	if c.Evaluate(mapFacts{}) {
		t.Fatalf("absent fact must fail closed")
	}
}

func TestConditionDirectionEquality(t *testing.T) {
	ref := FactRef{Type: FactLastTradeDirection}
	buy := Condition{ID: "c1", Fact: ref, Operator: OpEQ, Value: 1}
	sell := Condition{ID: "c2", Fact: ref, Operator: OpEQ, Value: 0}

	facts := mapFacts{ref: 1}
	if !buy.Evaluate(facts) {
		t.Fatalf("direction=buy must satisfy =1")
	}
	if sell.Evaluate(facts) {
		t.Fatalf("direction=buy must not satisfy =0")
	}
}

func TestConditionValidate(t *testing.T) {
	valid := Condition{ID: "c1", Fact: FactRef{Type: FactTradeSize}, Operator: OpGT, Value: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid condition rejected: %v", err)
	}

	bad := []Condition{
		{ID: "c2", Fact: FactRef{Type: FactTradeSize}, Operator: "!=", Value: 1},
		{ID: "c3", Fact: FactRef{}, Operator: OpGT, Value: 1},
		{ID: "c4", Fact: FactRef{Type: FactWhitelistBuyVolume, TimeframeMin: 5}, Operator: OpGT, Value: 1},
		{ID: "c5", Fact: FactRef{Type: FactLastTradeDirection}, Operator: OpGT, Value: 1},
		{ID: "c6", Fact: FactRef{Type: FactLastTradeDirection}, Operator: OpEQ, Value: 2},
		{ID: "c7", Fact: FactRef{Type: FactBuyVolume, TimeframeMin: -1}, Operator: OpGT, Value: 1},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Fatalf("condition %s should be rejected", c.ID)
		}
	}
}

func TestParseOperatorAcceptsDoubleEquals(t *testing.T) {
	op, ok := ParseOperator("==")
	if !ok || op != OpEQ {
		t.Fatalf("got %q ok=%v", op, ok)
	}
}
