package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// PriceQuote captures a USD price reading for a single feed along with the
// precision of the reading and the timestamp reported by the upstream source.
// Prices are fixed-point unsigned integers in Decimals precision; a production
// feed typically reports 8 decimals.
type PriceQuote struct {
	Price     *big.Int
	Decimals  uint8
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the quote to prevent accidental mutations.
func (q PriceQuote) Clone() PriceQuote {
	clone := PriceQuote{Decimals: q.Decimals, Timestamp: q.Timestamp, Source: q.Source}
	if q.Price != nil {
		clone.Price = new(big.Int).Set(q.Price)
	}
	return clone
}

// PriceOracle resolves the latest USD quote for the supplied feed identifier.
type PriceOracle interface {
	Quote(feedID string) (PriceQuote, error)
}

// ErrUnavailable indicates that no usable quote could be produced: the feed is
// unknown, the reading is zero or negative, or every source is stale.
var ErrUnavailable = errors.New("oracle: price unavailable")

// Validate applies the guardrails the vault engine requires before a quote may
// participate in valuation: a strictly positive price and, when maxAge is
// non-zero, an observation no older than the freshness window.
func Validate(q PriceQuote, now time.Time, maxAge time.Duration) error {
	if q.Price == nil || q.Price.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrUnavailable)
	}
	if maxAge > 0 {
		if q.Timestamp.IsZero() || q.Timestamp.Before(now.Add(-maxAge)) {
			return fmt.Errorf("%w: quote stale", ErrUnavailable)
		}
	}
	return nil
}

// ManualOracle stores operator-attested quotes in memory. It backs the admin
// price-submission flow and unit tests; readings are returned verbatim and are
// validated by the consuming aggregator.
type ManualOracle struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
}

func NewManualOracle() *ManualOracle {
	return &ManualOracle{quotes: make(map[string]PriceQuote)}
}

// SetQuote records the latest attested reading for the feed.
func (m *ManualOracle) SetQuote(feedID string, quote PriceQuote) {
	if m == nil {
		return
	}
	trimmed := normaliseFeedID(feedID)
	if trimmed == "" {
		return
	}
	m.mu.Lock()
	m.quotes[trimmed] = quote.Clone()
	m.mu.Unlock()
}

// Quote returns the stored reading for the feed.
func (m *ManualOracle) Quote(feedID string) (PriceQuote, error) {
	if m == nil {
		return PriceQuote{}, fmt.Errorf("%w: oracle not configured", ErrUnavailable)
	}
	trimmed := normaliseFeedID(feedID)
	m.mu.RLock()
	quote, ok := m.quotes[trimmed]
	m.mu.RUnlock()
	if !ok {
		return PriceQuote{}, fmt.Errorf("%w: no quote for feed %q", ErrUnavailable, feedID)
	}
	return quote.Clone(), nil
}

// Aggregator consults a list of registered oracles in priority order until a
// valid, fresh quote is obtained. The first source producing a usable reading
// wins; failures are remembered only to enrich the terminal error.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	oracles  map[string]PriceOracle
	maxAge   time.Duration
	clockNow func() time.Time
}

// NewAggregator constructs an aggregator with the provided priority and
// freshness window. When priority is nil a zero-length slice is initialised so
// that Register can safely append identifiers without additional checks.
func NewAggregator(priority []string, maxAge time.Duration) *Aggregator {
	return &Aggregator{
		priority: append([]string{}, priority...),
		oracles:  make(map[string]PriceOracle),
		maxAge:   maxAge,
		clockNow: time.Now,
	}
}

// SetMaxAge updates the freshness window used when filtering quotes.
func (a *Aggregator) SetMaxAge(maxAge time.Duration) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.maxAge = maxAge
	a.mu.Unlock()
}

// Register adds or replaces an oracle under the supplied identifier.
// Identifiers are stored in lowercase so lookups remain consistent regardless
// of configuration casing.
func (a *Aggregator) Register(name string, oracle PriceOracle) {
	if a == nil {
		return
	}
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.oracles[trimmed] = oracle
	for _, entry := range a.priority {
		if strings.EqualFold(entry, trimmed) {
			return
		}
	}
	a.priority = append(a.priority, trimmed)
}

// Quote fetches a reading from the configured oracles respecting the priority
// ordering. The aggregator enforces the freshness window and returns a
// defensive copy of the upstream value so callers cannot mutate shared state.
func (a *Aggregator) Quote(feedID string) (PriceQuote, error) {
	if a == nil {
		return PriceQuote{}, fmt.Errorf("%w: aggregator not configured", ErrUnavailable)
	}
	trimmed := normaliseFeedID(feedID)
	if trimmed == "" {
		return PriceQuote{}, fmt.Errorf("%w: feed identifier required", ErrUnavailable)
	}

	a.mu.RLock()
	priority := append([]string{}, a.priority...)
	maxAge := a.maxAge
	now := a.clockNow
	a.mu.RUnlock()

	var lastErr error
	for _, name := range priority {
		a.mu.RLock()
		source := a.oracles[strings.ToLower(name)]
		a.mu.RUnlock()
		if source == nil {
			continue
		}
		quote, err := source.Quote(trimmed)
		if err != nil {
			lastErr = err
			continue
		}
		if err := Validate(quote, now(), maxAge); err != nil {
			lastErr = err
			continue
		}
		result := quote.Clone()
		if strings.TrimSpace(result.Source) == "" {
			result.Source = strings.ToLower(name)
		}
		return result, nil
	}
	if lastErr != nil {
		if errors.Is(lastErr, ErrUnavailable) {
			return PriceQuote{}, lastErr
		}
		return PriceQuote{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return PriceQuote{}, fmt.Errorf("%w: no sources registered for feed %q", ErrUnavailable, feedID)
}

func normaliseFeedID(feedID string) string {
	return strings.ToUpper(strings.TrimSpace(feedID))
}
