package vault

import (
	"math/big"

	"synthd/crypto"
)

// CollateralAsset identifies an allow-listed collateral asset and the price
// feed used to value it. The allow-list is fixed at engine construction.
type CollateralAsset struct {
	Symbol string
	FeedID string
}

// Position maintains the vault bookkeeping for an individual account: the
// deposited collateral per asset (asset-native 18-decimal amounts) and the
// pegged tokens issued against it. A position is created implicitly on first
// deposit; one with all balances at zero is simply inert.
type Position struct {
	Address crypto.Address
	// Collateral maps asset symbol to the deposited amount.
	Collateral map[string]*big.Int
	// Issued is the outstanding pegged-token debt in 18-decimal fixed point.
	Issued *big.Int
}

// CollateralFor returns the deposited amount for the asset, zero when absent.
func (p *Position) CollateralFor(symbol string) *big.Int {
	if p == nil || p.Collateral == nil {
		return big.NewInt(0)
	}
	if amount, ok := p.Collateral[symbol]; ok && amount != nil {
		return amount
	}
	return big.NewInt(0)
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{Address: p.Address, Collateral: make(map[string]*big.Int, len(p.Collateral))}
	for symbol, amount := range p.Collateral {
		if amount != nil {
			clone.Collateral[symbol] = new(big.Int).Set(amount)
		}
	}
	if p.Issued != nil {
		clone.Issued = new(big.Int).Set(p.Issued)
	}
	return clone
}

// RiskParameters groups the solvency limits governing vault activity.
type RiskParameters struct {
	// LiquidationThresholdPct is the percentage of nominal collateral value
	// counted toward backing. 50 means a 2x overcollateralization requirement.
	LiquidationThresholdPct uint64
	// LiquidationBonusPct is the extra collateral, as a percentage of the
	// principal equivalent, awarded to a liquidator.
	LiquidationBonusPct uint64
	// MinHealthFactor is the solvency floor in 18-decimal fixed point.
	MinHealthFactor *big.Int
}

// DefaultRiskParameters returns the canonical production parameters: 50%
// threshold, 10% bonus, health floor of 1.0.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		LiquidationThresholdPct: 50,
		LiquidationBonusPct:     10,
		MinHealthFactor:         new(big.Int).Set(wad),
	}
}

// Clone returns a deep copy of the risk parameters.
func (p RiskParameters) Clone() RiskParameters {
	clone := RiskParameters{
		LiquidationThresholdPct: p.LiquidationThresholdPct,
		LiquidationBonusPct:     p.LiquidationBonusPct,
	}
	if p.MinHealthFactor != nil {
		clone.MinHealthFactor = new(big.Int).Set(p.MinHealthFactor)
	}
	return clone
}
