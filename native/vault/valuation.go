package vault

import (
	"fmt"
	"math/big"

	"synthd/native/oracle"
)

// Valuation converts collateral holdings into USD figures and derives health
// factors. It is a pure read layer: every call fetches fresh quotes and leaves
// ledger state untouched.
type Valuation struct {
	oracle oracle.PriceOracle
	assets []CollateralAsset
	feeds  map[string]string
	params RiskParameters
}

func NewValuation(priceOracle oracle.PriceOracle, assets []CollateralAsset, params RiskParameters) *Valuation {
	feeds := make(map[string]string, len(assets))
	for _, asset := range assets {
		feeds[asset.Symbol] = asset.FeedID
	}
	return &Valuation{
		oracle: priceOracle,
		assets: append([]CollateralAsset{}, assets...),
		feeds:  feeds,
		params: params.Clone(),
	}
}

// USDValue prices an asset amount in 18-decimal USD. The feed reading is
// lifted to 18 decimals before the multiply so no precision is lost.
func (v *Valuation) USDValue(symbol string, amount *big.Int) (*big.Int, error) {
	if v == nil || v.oracle == nil {
		return nil, fmt.Errorf("%w: no oracle configured", oracle.ErrUnavailable)
	}
	feedID, ok := v.feeds[symbol]
	if !ok {
		return nil, ErrAssetNotAllowed
	}
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	quote, err := v.oracle.Quote(feedID)
	if err != nil {
		return nil, err
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive price for feed %q", oracle.ErrUnavailable, feedID)
	}
	price := new(big.Int).Mul(quote.Price, feedNormalization(quote.Decimals))
	value := new(big.Int).Mul(amount, price)
	return value.Quo(value, wad), nil
}

// TokenAmountFromUSD inverts USDValue: the asset amount whose current market
// value equals the supplied 18-decimal USD figure.
func (v *Valuation) TokenAmountFromUSD(symbol string, usdValue *big.Int) (*big.Int, error) {
	if v == nil || v.oracle == nil {
		return nil, fmt.Errorf("%w: no oracle configured", oracle.ErrUnavailable)
	}
	feedID, ok := v.feeds[symbol]
	if !ok {
		return nil, ErrAssetNotAllowed
	}
	if usdValue == nil || usdValue.Sign() == 0 {
		return big.NewInt(0), nil
	}
	quote, err := v.oracle.Quote(feedID)
	if err != nil {
		return nil, err
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive price for feed %q", oracle.ErrUnavailable, feedID)
	}
	price := new(big.Int).Mul(quote.Price, feedNormalization(quote.Decimals))
	amount := new(big.Int).Mul(usdValue, wad)
	return amount.Quo(amount, price), nil
}

// CollateralValueUSD aggregates the position's holdings across the allow-list
// into a single 18-decimal USD figure. Assets are visited in allow-list order
// so valuation is deterministic.
func (v *Valuation) CollateralValueUSD(pos *Position) (*big.Int, error) {
	total := big.NewInt(0)
	if pos == nil {
		return total, nil
	}
	for _, asset := range v.assets {
		deposited := pos.CollateralFor(asset.Symbol)
		if deposited.Sign() == 0 {
			continue
		}
		value, err := v.USDValue(asset.Symbol, deposited)
		if err != nil {
			return nil, err
		}
		total.Add(total, value)
	}
	return total, nil
}

// HealthFactor derives the position's solvency ratio in 18-decimal fixed
// point. When no debt is outstanding the factor is unbounded: the second
// return is false and the caller must treat the position as healthy rather
// than divide by zero.
func (v *Valuation) HealthFactor(pos *Position) (*big.Int, bool, error) {
	if pos == nil || pos.Issued == nil || pos.Issued.Sign() == 0 {
		return nil, false, nil
	}
	collateralValue, err := v.CollateralValueUSD(pos)
	if err != nil {
		return nil, false, err
	}
	adjusted := pctShare(collateralValue, v.params.LiquidationThresholdPct)
	factor := new(big.Int).Mul(adjusted, wad)
	factor.Quo(factor, pos.Issued)
	return factor, true, nil
}

// Healthy reports whether the position meets the minimum health factor.
func (v *Valuation) Healthy(pos *Position) (bool, error) {
	factor, bounded, err := v.HealthFactor(pos)
	if err != nil {
		return false, err
	}
	if !bounded {
		return true, nil
	}
	return factor.Cmp(v.params.MinHealthFactor) >= 0, nil
}

// Assets returns the allow-list in construction order.
func (v *Valuation) Assets() []CollateralAsset {
	return append([]CollateralAsset{}, v.assets...)
}
