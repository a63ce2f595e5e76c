package profile

import (
	"testing"

	"github.com/shopspring/decimal"

	"autotrader/internal/event"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestResolveAmountFixed(t *testing.T) {
	a := Action{ID: "a1", Kind: KindBuy, AmountMode: AmountFixed, AmountParam: dec("0.25")}
	got, err := a.ResolveAmount(AmountContext{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.Equal(dec("0.25")) {
		t.Fatalf("got=%s want=0.25", got)
	}
}

func TestResolveAmountBalancePct(t *testing.T) {
	a := Action{ID: "a1", Kind: KindBuy, AmountMode: AmountBalancePct, AmountParam: dec("10")}
	got, err := a.ResolveAmount(AmountContext{WalletBalance: dec("2.0"), HasBalance: true})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.Equal(dec("0.2")) {
		t.Fatalf("got=%s want=0.2", got)
	}

	if _, err := a.ResolveAmount(AmountContext{}); err == nil {
		t.Fatalf("missing balance must error")
	}
}

func TestResolveAmountMultiples(t *testing.T) {
	src := Action{ID: "a1", Kind: KindMirror, AmountMode: AmountSourceMultiple, AmountParam: dec("0.5")}
	got, err := src.ResolveAmount(AmountContext{SourceTradeAmount: dec("3")})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.Equal(dec("1.5")) {
		t.Fatalf("got=%s want=1.5", got)
	}

	last := Action{ID: "a2", Kind: KindBuy, AmountMode: AmountLastTradeMultiple, AmountParam: dec("2")}
	got, err = last.ResolveAmount(AmountContext{LastTradeAmount: dec("0.4"), HasLastTrade: true})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.Equal(dec("0.8")) {
		t.Fatalf("got=%s want=0.8", got)
	}
	if _, err := last.ResolveAmount(AmountContext{}); err == nil {
		t.Fatalf("missing last trade must error")
	}
}

func TestResolveAmountVolumeModes(t *testing.T) {
	ref := FactRef{Type: FactBuyVolume, TimeframeMin: 5}
	a := Action{ID: "a1", Kind: KindBuy, AmountMode: AmountVolumeMultiple, AmountParam: dec("0.1"), VolumeFact: ref}

	volume := func(got FactRef) (decimal.Decimal, bool) {
		if got != ref {
			t.Fatalf("volume queried with %+v", got)
		}
		return dec("30"), true
	}
	got, err := a.ResolveAmount(AmountContext{Volume: volume})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.Equal(dec("3")) {
		t.Fatalf("got=%s want=3", got)
	}

	absent := func(FactRef) (decimal.Decimal, bool) { return decimal.Zero, false }
	if _, err := a.ResolveAmount(AmountContext{Volume: absent}); err == nil {
		t.Fatalf("absent volume fact must error")
	}
	if _, err := a.ResolveAmount(AmountContext{}); err == nil {
		t.Fatalf("nil volume source must error")
	}
}

func TestResolveDirection(t *testing.T) {
	buy := Action{Kind: KindBuy}
	sell := Action{Kind: KindSell}
	mirror := Action{Kind: KindMirror}

	if got := buy.ResolveDirection(event.DirectionSell); got != event.DirectionBuy {
		t.Fatalf("buy action got=%s", got)
	}
	if got := sell.ResolveDirection(event.DirectionBuy); got != event.DirectionSell {
		t.Fatalf("sell action got=%s", got)
	}
	if got := mirror.ResolveDirection(event.DirectionSell); got != event.DirectionSell {
		t.Fatalf("mirror of sell got=%s", got)
	}
	if got := mirror.ResolveDirection(event.DirectionBuy); got != event.DirectionBuy {
		t.Fatalf("mirror of buy got=%s", got)
	}
	// Directionless trigger (deploy/tick) mirrors to buy.
	if got := mirror.ResolveDirection(""); got != event.DirectionBuy {
		t.Fatalf("mirror of none got=%s", got)
	}
}

func TestActionValidateFamilyRules(t *testing.T) {
	mirror := Action{ID: "a1", Kind: KindMirror, AmountMode: AmountFixed, AmountParam: dec("1")}
	if err := mirror.Validate(FamilyCopyTrade); err != nil {
		t.Fatalf("mirror in copy-trade rejected: %v", err)
	}
	if err := mirror.Validate(FamilySniper); err == nil {
		t.Fatalf("mirror outside copy-trade must be rejected")
	}

	src := Action{ID: "a2", Kind: KindBuy, AmountMode: AmountSourceMultiple, AmountParam: dec("1")}
	if err := src.Validate(FamilyAutomate); err == nil {
		t.Fatalf("source multiple outside copy-trade must be rejected")
	}

	zero := Action{ID: "a3", Kind: KindBuy, AmountMode: AmountFixed, AmountParam: decimal.Zero}
	if err := zero.Validate(FamilySniper); err == nil {
		t.Fatalf("non-positive amount param must be rejected")
	}

	wl := Action{ID: "a4", Kind: KindBuy, AmountMode: AmountWhitelistVolumeMultiple, AmountParam: dec("1"),
		VolumeFact: FactRef{Type: FactWhitelistNetVolume, TimeframeMin: 10}}
	if err := wl.Validate(FamilyAutomate); err == nil {
		t.Fatalf("whitelist volume multiple without address must be rejected")
	}
	wl.VolumeFact.Address = "wallet1"
	if err := wl.Validate(FamilyAutomate); err != nil {
		t.Fatalf("whitelist volume multiple with address rejected: %v", err)
	}
}
