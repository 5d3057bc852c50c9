package events

import (
	"math/big"

	"synthd/core/types"
	"synthd/crypto"
)

const (
	// TypeCollateralDeposited is emitted when collateral is locked in the vault.
	TypeCollateralDeposited = "collateral.deposited"
	// TypeCollateralRedeemed is emitted when collateral is released to its owner.
	TypeCollateralRedeemed = "collateral.redeemed"
	// TypeSynthMinted is emitted when pegged tokens are issued against collateral.
	TypeSynthMinted = "synth.minted"
	// TypeSynthBurned is emitted when pegged tokens are retired against debt.
	TypeSynthBurned = "synth.burned"
	// TypeLiquidated is emitted when a third party unwinds an unhealthy position.
	TypeLiquidated = "vault.liquidated"
)

type CollateralDeposited struct {
	User   crypto.Address
	Asset  string
	Amount *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralDeposited,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"asset":  e.Asset,
			"amount": amountString(e.Amount),
		},
	}
}

type CollateralRedeemed struct {
	User   crypto.Address
	Asset  string
	Amount *big.Int
}

func (CollateralRedeemed) EventType() string { return TypeCollateralRedeemed }

func (e CollateralRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralRedeemed,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"asset":  e.Asset,
			"amount": amountString(e.Amount),
		},
	}
}

type SynthMinted struct {
	User   crypto.Address
	Amount *big.Int
}

func (SynthMinted) EventType() string { return TypeSynthMinted }

func (e SynthMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeSynthMinted,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"amount": amountString(e.Amount),
		},
	}
}

type SynthBurned struct {
	User   crypto.Address
	Amount *big.Int
}

func (SynthBurned) EventType() string { return TypeSynthBurned }

func (e SynthBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeSynthBurned,
		Attributes: map[string]string{
			"user":   e.User.String(),
			"amount": amountString(e.Amount),
		},
	}
}

type Liquidated struct {
	Liquidator  crypto.Address
	User        crypto.Address
	Asset       string
	DebtCovered *big.Int
	BonusSeized *big.Int
}

func (Liquidated) EventType() string { return TypeLiquidated }

func (e Liquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidated,
		Attributes: map[string]string{
			"liquidator":  e.Liquidator.String(),
			"user":        e.User.String(),
			"asset":       e.Asset,
			"debtCovered": amountString(e.DebtCovered),
			"bonusSeized": amountString(e.BonusSeized),
		},
	}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
