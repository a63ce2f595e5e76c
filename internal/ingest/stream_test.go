package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"autotrader/internal/event"
)

func TestDecodeTrade(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	env := Envelope{
		Type:        "trade",
		TimestampMS: ts.UnixMilli(),
		Data:        json.RawMessage(`{"mint":"m1","signer":"w1","direction":"sell","amount_sol":"1.5","market_cap_sol":42000}`),
	}
	ev, err := Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != event.TypeTrade || ev.Trade == nil {
		t.Fatalf("ev=%+v", ev)
	}
	if !ev.Timestamp.Equal(ts) {
		t.Fatalf("timestamp=%s want=%s", ev.Timestamp, ts)
	}
	if ev.Trade.Direction != event.DirectionSell || ev.Trade.AmountSOL.String() != "1.5" {
		t.Fatalf("trade=%+v", ev.Trade)
	}
}

func TestDecodeDeployAndMigration(t *testing.T) {
	data := json.RawMessage(`{"mint":"m1","signer":"dev","platform":"pumpfun","market_cap_sol":30000}`)
	for _, typ := range []string{"deploy", "migration"} {
		ev, err := Decode(Envelope{Type: typ, Data: data})
		if err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		if ev.Deploy == nil || ev.Deploy.Mint != "m1" {
			t.Fatalf("%s ev=%+v", typ, ev)
		}
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := []Envelope{
		{Type: "unknown", Data: json.RawMessage(`{}`)},
		{Type: "trade", Data: json.RawMessage(`{`)},
		{Type: "trade", Data: json.RawMessage(`{"signer":"w1","direction":"buy"}`)},
		{Type: "trade", Data: json.RawMessage(`{"mint":"m1","direction":"hold"}`)},
		{Type: "tick", Data: json.RawMessage(`{"price_sol":1}`)},
		{Type: "deploy", Data: json.RawMessage(`{"signer":"dev"}`)},
	}
	for i, env := range cases {
		if _, err := Decode(env); err == nil {
			t.Fatalf("case %d (%s) must be rejected", i, env.Type)
		}
	}
}

func TestDecodeZeroTimestampDefaultsToNow(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	ev, err := Decode(Envelope{Type: "tick", Data: json.RawMessage(`{"mint":"m1","price_sol":0.5}`)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Timestamp.Before(before) {
		t.Fatalf("timestamp=%s not defaulted", ev.Timestamp)
	}
}
