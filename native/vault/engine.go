package vault

import (
	"fmt"
	"math/big"
	"sync"

	"synthd/core/events"
	"synthd/crypto"
	nativecommon "synthd/native/common"
	"synthd/native/oracle"
	"synthd/native/token"
)

const moduleName = "vault"

// Engine orchestrates the primary state transitions for the vault module:
// collateral deposits and redemptions, pegged-token issuance and retirement,
// and forced liquidation of unhealthy positions. Every mutating operation
// validates its guards first, applies ledger effects second, performs external
// transfers last, and re-validates solvency before returning; any failure
// restores the ledger to its pre-call state.
type Engine struct {
	// mu is the engine-wide entry lock. A nested call while it is held is a
	// reentrancy attempt and fails immediately rather than blocking.
	mu sync.Mutex

	ledger        *Ledger
	valuation     *Valuation
	synth         token.PeggedToken
	collateral    map[string]token.CollateralToken
	assets        []CollateralAsset
	moduleAddress crypto.Address
	params        RiskParameters
	emitter       events.Emitter
	pauses        nativecommon.PauseView
}

// NewEngine constructs a vault engine over the supplied allow-list. The asset
// and price-feed lists are positional pairs and must be the same length.
func NewEngine(moduleAddr crypto.Address, params RiskParameters, assetSymbols, feedIDs []string, priceOracle oracle.PriceOracle, synth token.PeggedToken) (*Engine, error) {
	if len(assetSymbols) != len(feedIDs) {
		return nil, ErrMustBeSameLength
	}
	if params.MinHealthFactor == nil || params.MinHealthFactor.Sign() <= 0 {
		params.MinHealthFactor = new(big.Int).Set(wad)
	}
	assets := make([]CollateralAsset, 0, len(assetSymbols))
	for i, symbol := range assetSymbols {
		assets = append(assets, CollateralAsset{Symbol: symbol, FeedID: feedIDs[i]})
	}
	return &Engine{
		valuation:     NewValuation(priceOracle, assets, params),
		synth:         synth,
		collateral:    make(map[string]token.CollateralToken, len(assets)),
		assets:        assets,
		moduleAddress: moduleAddr,
		params:        params.Clone(),
	}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state State) {
	if e == nil {
		return
	}
	e.ledger = NewLedger(state)
}

// SetCollateralToken binds the transfer contract for an allow-listed asset.
func (e *Engine) SetCollateralToken(symbol string, tok token.CollateralToken) error {
	if e == nil {
		return errNilState
	}
	if !e.allowed(symbol) {
		return ErrAssetNotAllowed
	}
	e.collateral[symbol] = tok
	return nil
}

// SetEmitter configures the event sink for successful mutations.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	e.emitter = emitter
}

// SetPauses wires the operational pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// ModuleAddress returns the custody address collateral is held under.
func (e *Engine) ModuleAddress() crypto.Address {
	return e.moduleAddress
}

// Assets returns the collateral allow-list in construction order.
func (e *Engine) Assets() []CollateralAsset {
	return append([]CollateralAsset{}, e.assets...)
}

// DepositCollateral locks collateral for the caller inside the vault. The
// ledger is credited before the asset is pulled so a reentrant observer sees
// consistent state; a failed pull undoes the credit.
func (e *Engine) DepositCollateral(caller crypto.Address, symbol string, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.depositCollateral(caller, symbol, amount)
}

// MintSynth issues pegged tokens against the caller's collateral. The issued
// balance is raised first and the resulting health factor must clear the
// minimum, otherwise the increment is fully reverted.
func (e *Engine) MintSynth(caller crypto.Address, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.mintSynth(caller, amount)
}

// RedeemCollateral releases collateral back to the caller while ensuring the
// remaining position stays healthy.
func (e *Engine) RedeemCollateral(caller crypto.Address, symbol string, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.redeemCollateral(caller, symbol, amount)
}

// BurnSynth retires pegged tokens against the caller's outstanding debt.
// Burning only improves health, so no solvency post-check is required.
func (e *Engine) BurnSynth(caller crypto.Address, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.burnSynth(caller, amount)
}

// DepositCollateralAndMint performs deposit followed by mint as one atomic
// call: if the mint leg fails the deposit leg is unwound as well.
func (e *Engine) DepositCollateralAndMint(caller crypto.Address, symbol string, collateralAmount, mintAmount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if collateralAmount == nil || collateralAmount.Sign() <= 0 || mintAmount == nil || mintAmount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.allowed(symbol) {
		return ErrAssetNotAllowed
	}
	tok, err := e.tokenFor(symbol)
	if err != nil {
		return err
	}

	snapshot, err := e.snapshot(caller)
	if err != nil {
		return err
	}
	if err := e.ledger.AddCollateral(caller, symbol, collateralAmount); err != nil {
		return err
	}
	if err := e.ledger.IncreaseIssued(caller, mintAmount); err != nil {
		e.mustRestore(caller, snapshot)
		return err
	}
	if err := e.checkHealth(caller); err != nil {
		e.mustRestore(caller, snapshot)
		return err
	}

	if !tok.TransferFrom(e.moduleAddress, caller, e.moduleAddress, collateralAmount) {
		e.mustRestore(caller, snapshot)
		return ErrTransferFailed
	}
	if !e.synth.Mint(e.moduleAddress, caller, mintAmount) {
		e.mustRestore(caller, snapshot)
		// The collateral pull already settled; push it back before failing.
		tok.Transfer(e.moduleAddress, caller, collateralAmount)
		return ErrMintFailed
	}

	e.emit(events.CollateralDeposited{User: caller, Asset: symbol, Amount: collateralAmount})
	e.emit(events.SynthMinted{User: caller, Amount: mintAmount})
	return nil
}

// RedeemCollateralForSynth performs burn followed by redeem as one atomic
// call, letting a caller exit collateral and debt together.
func (e *Engine) RedeemCollateralForSynth(caller crypto.Address, symbol string, collateralAmount, burnAmount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if collateralAmount == nil || collateralAmount.Sign() <= 0 || burnAmount == nil || burnAmount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.allowed(symbol) {
		return ErrAssetNotAllowed
	}
	tok, err := e.tokenFor(symbol)
	if err != nil {
		return err
	}

	snapshot, err := e.snapshot(caller)
	if err != nil {
		return err
	}
	if err := e.ledger.DecreaseIssued(caller, burnAmount); err != nil {
		return err
	}
	if err := e.ledger.RemoveCollateral(caller, symbol, collateralAmount); err != nil {
		e.mustRestore(caller, snapshot)
		return err
	}
	if err := e.checkHealth(caller); err != nil {
		e.mustRestore(caller, snapshot)
		return err
	}

	if err := e.synth.Burn(e.moduleAddress, caller, burnAmount); err != nil {
		e.mustRestore(caller, snapshot)
		return fmt.Errorf("vault engine: pegged token burn: %w", err)
	}
	if !tok.Transfer(e.moduleAddress, caller, collateralAmount) {
		e.mustRestore(caller, snapshot)
		// The burn already settled; reissue the tokens before failing.
		e.synth.Mint(e.moduleAddress, caller, burnAmount)
		return ErrTransferFailed
	}

	e.emit(events.SynthBurned{User: caller, Amount: burnAmount})
	e.emit(events.CollateralRedeemed{User: caller, Asset: symbol, Amount: collateralAmount})
	return nil
}

// Liquidate lets a third party repay part of an unhealthy position's debt in
// exchange for the USD-equivalent collateral plus the liquidation bonus. The
// seizure is clamped to the target's deposit when the bonus cannot be fully
// covered; the principal equivalent itself must always be coverable. The
// target's health factor must strictly improve.
func (e *Engine) Liquidate(liquidator, user crypto.Address, symbol string, debtToCover *big.Int) (*big.Int, *big.Int, error) {
	if err := e.enter(); err != nil {
		return nil, nil, err
	}
	defer e.mu.Unlock()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if e.ledger == nil {
		return nil, nil, errNilState
	}
	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if !e.allowed(symbol) {
		return nil, nil, ErrAssetNotAllowed
	}
	if liquidator.Equal(user) {
		return nil, nil, ErrSelfLiquidation
	}
	tok, err := e.tokenFor(symbol)
	if err != nil {
		return nil, nil, err
	}

	pos, err := e.ledger.Position(user)
	if err != nil {
		return nil, nil, err
	}
	startFactor, bounded, err := e.valuation.HealthFactor(pos)
	if err != nil {
		return nil, nil, err
	}
	if !bounded || startFactor.Cmp(e.params.MinHealthFactor) >= 0 {
		return nil, nil, ErrHealthFactorOK
	}

	repay := new(big.Int).Set(debtToCover)
	if repay.Cmp(pos.Issued) > 0 {
		repay.Set(pos.Issued)
	}

	principal, err := e.valuation.TokenAmountFromUSD(symbol, repay)
	if err != nil {
		return nil, nil, err
	}
	bonus := pctShare(principal, e.params.LiquidationBonusPct)
	seize := new(big.Int).Add(principal, bonus)

	deposited := pos.CollateralFor(symbol)
	if deposited.Cmp(principal) < 0 {
		return nil, nil, ErrCollateralBelowPrincipal
	}
	if seize.Cmp(deposited) > 0 {
		seize = new(big.Int).Set(deposited)
	}

	snapshot := pos.Clone()
	if err := e.ledger.DecreaseIssued(user, repay); err != nil {
		return nil, nil, err
	}
	if err := e.ledger.RemoveCollateral(user, symbol, seize); err != nil {
		e.mustRestore(user, snapshot)
		return nil, nil, err
	}

	after, err := e.ledger.Position(user)
	if err != nil {
		e.mustRestore(user, snapshot)
		return nil, nil, err
	}
	endFactor, bounded, err := e.valuation.HealthFactor(after)
	if err != nil {
		e.mustRestore(user, snapshot)
		return nil, nil, err
	}
	if bounded && endFactor.Cmp(startFactor) <= 0 {
		e.mustRestore(user, snapshot)
		return nil, nil, ErrHealthFactorNotImproved
	}

	if err := e.synth.Burn(e.moduleAddress, liquidator, repay); err != nil {
		e.mustRestore(user, snapshot)
		return nil, nil, fmt.Errorf("vault engine: pegged token burn: %w", err)
	}
	if !tok.Transfer(e.moduleAddress, liquidator, seize) {
		e.mustRestore(user, snapshot)
		// The burn already settled; reissue the liquidator's tokens.
		e.synth.Mint(e.moduleAddress, liquidator, repay)
		return nil, nil, ErrTransferFailed
	}

	e.emit(events.Liquidated{
		Liquidator:  liquidator,
		User:        user,
		Asset:       symbol,
		DebtCovered: repay,
		BonusSeized: new(big.Int).Sub(seize, principal),
	})
	return repay, seize, nil
}

// HealthFactor returns the account's current health factor. The second return
// is false when the account has no outstanding debt, in which case the factor
// is unbounded and the position is unconditionally healthy.
func (e *Engine) HealthFactor(addr crypto.Address) (*big.Int, bool, error) {
	if e == nil || e.ledger == nil {
		return nil, false, errNilState
	}
	pos, err := e.ledger.Position(addr)
	if err != nil {
		return nil, false, err
	}
	return e.valuation.HealthFactor(pos)
}

// AccountCollateralValueUSD aggregates the account's deposits into a single
// 18-decimal USD figure.
func (e *Engine) AccountCollateralValueUSD(addr crypto.Address) (*big.Int, error) {
	if e == nil || e.ledger == nil {
		return nil, errNilState
	}
	pos, err := e.ledger.Position(addr)
	if err != nil {
		return nil, err
	}
	return e.valuation.CollateralValueUSD(pos)
}

// USDValue prices an amount of the allow-listed asset in 18-decimal USD.
func (e *Engine) USDValue(symbol string, amount *big.Int) (*big.Int, error) {
	if e == nil {
		return nil, errNilState
	}
	return e.valuation.USDValue(symbol, amount)
}

// PositionOf returns a snapshot of the account's stored position.
func (e *Engine) PositionOf(addr crypto.Address) (*Position, error) {
	if e == nil || e.ledger == nil {
		return nil, errNilState
	}
	pos, err := e.ledger.Position(addr)
	if err != nil {
		return nil, err
	}
	return pos.Clone(), nil
}

func (e *Engine) depositCollateral(caller crypto.Address, symbol string, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.allowed(symbol) {
		return ErrAssetNotAllowed
	}
	tok, err := e.tokenFor(symbol)
	if err != nil {
		return err
	}

	snapshot, err := e.snapshot(caller)
	if err != nil {
		return err
	}
	if err := e.ledger.AddCollateral(caller, symbol, amount); err != nil {
		return err
	}
	if !tok.TransferFrom(e.moduleAddress, caller, e.moduleAddress, amount) {
		e.mustRestore(caller, snapshot)
		return ErrTransferFailed
	}

	e.emit(events.CollateralDeposited{User: caller, Asset: symbol, Amount: amount})
	return nil
}

func (e *Engine) mintSynth(caller crypto.Address, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	snapshot, err := e.snapshot(caller)
	if err != nil {
		return err
	}
	if err := e.ledger.IncreaseIssued(caller, amount); err != nil {
		return err
	}
	if err := e.checkHealth(caller); err != nil {
		e.mustRestore(caller, snapshot)
		return err
	}
	if !e.synth.Mint(e.moduleAddress, caller, amount) {
		e.mustRestore(caller, snapshot)
		return ErrMintFailed
	}

	e.emit(events.SynthMinted{User: caller, Amount: amount})
	return nil
}

func (e *Engine) redeemCollateral(caller crypto.Address, symbol string, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.allowed(symbol) {
		return ErrAssetNotAllowed
	}
	tok, err := e.tokenFor(symbol)
	if err != nil {
		return err
	}

	snapshot, err := e.snapshot(caller)
	if err != nil {
		return err
	}
	if err := e.ledger.RemoveCollateral(caller, symbol, amount); err != nil {
		return err
	}
	if err := e.checkHealth(caller); err != nil {
		e.mustRestore(caller, snapshot)
		return err
	}
	if !tok.Transfer(e.moduleAddress, caller, amount) {
		e.mustRestore(caller, snapshot)
		return ErrTransferFailed
	}

	e.emit(events.CollateralRedeemed{User: caller, Asset: symbol, Amount: amount})
	return nil
}

func (e *Engine) burnSynth(caller crypto.Address, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	snapshot, err := e.snapshot(caller)
	if err != nil {
		return err
	}
	if err := e.ledger.DecreaseIssued(caller, amount); err != nil {
		return err
	}
	if err := e.synth.Burn(e.moduleAddress, caller, amount); err != nil {
		e.mustRestore(caller, snapshot)
		return fmt.Errorf("vault engine: pegged token burn: %w", err)
	}

	e.emit(events.SynthBurned{User: caller, Amount: amount})
	return nil
}

// enter acquires the engine-wide execution lock, failing fast when it is
// already held by an in-flight operation.
func (e *Engine) enter() error {
	if e == nil {
		return errNilState
	}
	if !e.mu.TryLock() {
		return ErrReentrantCall
	}
	return nil
}

// checkHealth re-derives the caller's health factor from the current ledger
// state and rejects the operation when it falls below the minimum.
func (e *Engine) checkHealth(addr crypto.Address) error {
	pos, err := e.ledger.Position(addr)
	if err != nil {
		return err
	}
	factor, bounded, err := e.valuation.HealthFactor(pos)
	if err != nil {
		return err
	}
	if bounded && factor.Cmp(e.params.MinHealthFactor) < 0 {
		return &BreaksHealthFactorError{Factor: factor}
	}
	return nil
}

func (e *Engine) snapshot(addr crypto.Address) (*Position, error) {
	pos, err := e.ledger.Position(addr)
	if err != nil {
		return nil, err
	}
	return pos.Clone(), nil
}

func (e *Engine) mustRestore(addr crypto.Address, snapshot *Position) {
	if err := e.ledger.restore(addr, snapshot); err != nil {
		panic(fmt.Sprintf("vault engine: rollback failed for %s: %v", addr, err))
	}
}

func (e *Engine) allowed(symbol string) bool {
	for _, asset := range e.assets {
		if asset.Symbol == symbol {
			return true
		}
	}
	return false
}

func (e *Engine) tokenFor(symbol string) (token.CollateralToken, error) {
	tok, ok := e.collateral[symbol]
	if !ok || tok == nil {
		return nil, fmt.Errorf("%w: no transfer contract bound for %q", ErrAssetNotAllowed, symbol)
	}
	return tok, nil
}

func (e *Engine) emit(ev events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}
