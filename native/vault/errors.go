package vault

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	errNilState = errors.New("vault engine: state not configured")

	// Input validation. Rejected before any mutation.
	ErrInvalidAmount    = errors.New("vault: amount must be positive")
	ErrAssetNotAllowed  = errors.New("vault: collateral asset not allow-listed")
	ErrMustBeSameLength = errors.New("vault: asset and price feed lists must be the same length")

	// Ledger sufficiency and bounds.
	ErrInsufficientCollateral = errors.New("vault: insufficient collateral")
	ErrInsufficientDebt       = errors.New("vault: insufficient issued debt")
	ErrAmountOverflow         = errors.New("vault: balance overflows 256 bits")

	// Collaborator failures. Fatal to the call, fully rolled back.
	ErrTransferFailed = errors.New("vault engine: external transfer failed")
	ErrMintFailed     = errors.New("vault engine: pegged token mint failed")

	// Solvency errors.
	ErrBreaksHealthFactor      = errors.New("vault engine: operation breaks health factor")
	ErrHealthFactorOK          = errors.New("vault engine: health factor above minimum, nothing to liquidate")
	ErrHealthFactorNotImproved = errors.New("vault engine: liquidation did not improve health factor")
	// ErrCollateralBelowPrincipal is returned when the target's deposited asset
	// cannot cover even the principal equivalent of the debt being repaid; the
	// bonus alone being short only clamps the seizure.
	ErrCollateralBelowPrincipal = errors.New("vault engine: collateral cannot cover liquidation principal")

	// Reentrancy.
	ErrReentrantCall = errors.New("vault engine: reentrant call")

	ErrSelfLiquidation = errors.New("vault engine: cannot liquidate own position")
)

// BreaksHealthFactorError carries the computed post-operation health factor so
// callers can diagnose how far from the minimum the attempt landed. It unwraps
// to ErrBreaksHealthFactor for errors.Is matching.
type BreaksHealthFactorError struct {
	Factor *big.Int
}

func (e *BreaksHealthFactorError) Error() string {
	if e == nil || e.Factor == nil {
		return ErrBreaksHealthFactor.Error()
	}
	return fmt.Sprintf("%s (factor %s)", ErrBreaksHealthFactor.Error(), e.Factor)
}

func (e *BreaksHealthFactorError) Unwrap() error { return ErrBreaksHealthFactor }
