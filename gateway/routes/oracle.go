package routes

import (
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"synthd/native/oracle"
	"synthd/observability"
)

// oracleRoutes serves price reads and the operator-only submission endpoint
// backing the manual oracle source.
type oracleRoutes struct {
	prices   *oracle.ManualOracle
	reader   oracle.PriceOracle
	clockNow func() time.Time
}

func newOracleRoutes(prices *oracle.ManualOracle, reader oracle.PriceOracle) *oracleRoutes {
	return &oracleRoutes{prices: prices, reader: reader, clockNow: time.Now}
}

type submitPriceRequest struct {
	Feed     string `json:"feed"`
	Price    string `json:"price"`
	Decimals uint8  `json:"decimals"`
}

type quoteResponse struct {
	Feed      string `json:"feed"`
	Price     string `json:"price"`
	Decimals  uint8  `json:"decimals"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source,omitempty"`
}

// submit records an operator-provided quote on the manual source.
func (o *oracleRoutes) submit(w http.ResponseWriter, r *http.Request) {
	var req submitPriceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	feed := strings.TrimSpace(req.Feed)
	if feed == "" {
		writeBadRequest(w, "feed is required")
		return
	}
	price, ok := new(big.Int).SetString(strings.TrimSpace(req.Price), 10)
	if !ok || price.Sign() <= 0 {
		writeBadRequest(w, "price must be a positive integer string")
		return
	}
	if req.Decimals > 18 {
		writeBadRequest(w, "decimals must be at most 18")
		return
	}
	o.prices.SetQuote(feed, oracle.PriceQuote{
		Price:     price,
		Decimals:  req.Decimals,
		Timestamp: o.clockNow(),
		Source:    "manual",
	})
	observability.Oracle().RecordSubmission(feed)
	writeJSON(w, http.StatusOK, map[string]string{"feed": feed, "status": "accepted"})
}

// quote serves the current quote for a feed through the configured aggregator.
func (o *oracleRoutes) quote(w http.ResponseWriter, r *http.Request) {
	feed := chi.URLParam(r, "feed")
	q, err := o.reader.Quote(feed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	observability.Oracle().RecordFreshness(feed, o.clockNow().Sub(q.Timestamp))
	writeJSON(w, http.StatusOK, quoteResponse{
		Feed:      feed,
		Price:     q.Price.String(),
		Decimals:  q.Decimals,
		Timestamp: q.Timestamp.UTC().Format(time.RFC3339),
		Source:    q.Source,
	})
}
