package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestManualOracleRoundTrip(t *testing.T) {
	manual := NewManualOracle()
	ts := time.Now()
	manual.SetQuote("eth-usd", PriceQuote{Price: big.NewInt(2000_00000000), Decimals: 8, Timestamp: ts})

	quote, err := manual.Quote("ETH-USD")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Price.Cmp(big.NewInt(2000_00000000)) != 0 {
		t.Fatalf("unexpected price: %s", quote.Price)
	}
	if quote.Decimals != 8 {
		t.Fatalf("unexpected decimals: %d", quote.Decimals)
	}

	// Mutating the returned quote must not affect the stored copy.
	quote.Price.SetInt64(1)
	again, err := manual.Quote("eth-usd")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if again.Price.Cmp(big.NewInt(2000_00000000)) != 0 {
		t.Fatalf("stored quote mutated: %s", again.Price)
	}
}

func TestManualOracleUnknownFeed(t *testing.T) {
	manual := NewManualOracle()
	if _, err := manual.Quote("BTC-USD"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestValidateRejectsNonPositive(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		quote PriceQuote
	}{
		{"nil price", PriceQuote{Decimals: 8, Timestamp: now}},
		{"zero price", PriceQuote{Price: big.NewInt(0), Decimals: 8, Timestamp: now}},
		{"negative price", PriceQuote{Price: big.NewInt(-1), Decimals: 8, Timestamp: now}},
	}
	for _, tc := range cases {
		if err := Validate(tc.quote, now, time.Minute); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s: expected ErrUnavailable, got %v", tc.name, err)
		}
	}
}

func TestValidateRejectsStale(t *testing.T) {
	now := time.Now()
	quote := PriceQuote{Price: big.NewInt(1), Decimals: 8, Timestamp: now.Add(-2 * time.Minute)}
	if err := Validate(quote, now, time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for stale quote, got %v", err)
	}
	// A zero max age disables the freshness window entirely.
	if err := Validate(quote, now, 0); err != nil {
		t.Fatalf("expected stale quote accepted without freshness window, got %v", err)
	}
}

func TestAggregatorPriorityFallback(t *testing.T) {
	stale := NewManualOracle()
	stale.SetQuote("ETH-USD", PriceQuote{Price: big.NewInt(1999_00000000), Decimals: 8, Timestamp: time.Now().Add(-time.Hour)})
	fresh := NewManualOracle()
	fresh.SetQuote("ETH-USD", PriceQuote{Price: big.NewInt(2000_00000000), Decimals: 8, Timestamp: time.Now()})

	agg := NewAggregator(nil, 5*time.Minute)
	agg.Register("primary", stale)
	agg.Register("secondary", fresh)

	quote, err := agg.Quote("ETH-USD")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Price.Cmp(big.NewInt(2000_00000000)) != 0 {
		t.Fatalf("expected fallback to secondary, got %s", quote.Price)
	}
	if quote.Source != "secondary" {
		t.Fatalf("unexpected source: %q", quote.Source)
	}
}

func TestAggregatorAllSourcesStale(t *testing.T) {
	stale := NewManualOracle()
	stale.SetQuote("ETH-USD", PriceQuote{Price: big.NewInt(1), Decimals: 8, Timestamp: time.Now().Add(-time.Hour)})

	agg := NewAggregator([]string{"primary"}, time.Minute)
	agg.Register("primary", stale)

	if _, err := agg.Quote("ETH-USD"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
