package vault

import (
	"math/big"

	"github.com/holiman/uint256"

	"synthd/crypto"
)

// State is the persistence boundary for vault positions. The engine owns all
// policy; implementations only store and retrieve.
type State interface {
	GetPosition(addr crypto.Address) (*Position, error)
	PutPosition(addr crypto.Address, pos *Position) error
}

// Ledger is the authoritative store of collateral and issued-token balances.
// Its mutators enforce non-negativity, sufficiency and 256-bit bounds and
// nothing else; solvency is the engine's responsibility, applied around these
// primitives.
type Ledger struct {
	state State
}

func NewLedger(state State) *Ledger {
	return &Ledger{state: state}
}

// Position loads the account's position, creating an empty one implicitly when
// none is stored yet. Nil balance fields are defaulted so callers can operate
// without nil checks.
func (l *Ledger) Position(addr crypto.Address) (*Position, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	pos, err := l.state.GetPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = &Position{Address: addr}
	}
	if pos.Collateral == nil {
		pos.Collateral = make(map[string]*big.Int)
	}
	if pos.Issued == nil {
		pos.Issued = big.NewInt(0)
	}
	return pos, nil
}

// AddCollateral increases the stored collateral balance for the asset. The
// resulting balance must fit in 256 bits; wraparound is never permitted.
func (l *Ledger) AddCollateral(addr crypto.Address, symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pos, err := l.Position(addr)
	if err != nil {
		return err
	}
	updated := new(big.Int).Add(pos.CollateralFor(symbol), amount)
	if _, overflow := uint256.FromBig(updated); overflow {
		return ErrAmountOverflow
	}
	pos.Collateral[symbol] = updated
	return l.state.PutPosition(addr, pos)
}

// RemoveCollateral decreases the stored collateral balance for the asset.
func (l *Ledger) RemoveCollateral(addr crypto.Address, symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pos, err := l.Position(addr)
	if err != nil {
		return err
	}
	balance := pos.CollateralFor(symbol)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}
	pos.Collateral[symbol] = new(big.Int).Sub(balance, amount)
	return l.state.PutPosition(addr, pos)
}

// IncreaseIssued raises the account's outstanding pegged-token debt.
func (l *Ledger) IncreaseIssued(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pos, err := l.Position(addr)
	if err != nil {
		return err
	}
	updated := new(big.Int).Add(pos.Issued, amount)
	if _, overflow := uint256.FromBig(updated); overflow {
		return ErrAmountOverflow
	}
	pos.Issued = updated
	return l.state.PutPosition(addr, pos)
}

// DecreaseIssued lowers the account's outstanding pegged-token debt.
func (l *Ledger) DecreaseIssued(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	pos, err := l.Position(addr)
	if err != nil {
		return err
	}
	if pos.Issued.Cmp(amount) < 0 {
		return ErrInsufficientDebt
	}
	pos.Issued = new(big.Int).Sub(pos.Issued, amount)
	return l.state.PutPosition(addr, pos)
}

// restore writes a previously captured snapshot back, undoing every mutation
// the current call applied to the account.
func (l *Ledger) restore(addr crypto.Address, snapshot *Position) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.state.PutPosition(addr, snapshot)
}
