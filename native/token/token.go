package token

import (
	"errors"
	"math/big"
	"sync"

	"synthd/crypto"
)

var (
	ErrNotOwner            = errors.New("token: caller is not the ledger owner")
	ErrInvalidAmount       = errors.New("token: amount must be positive")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
)

// PeggedToken is the boundary contract for the externally ledgered pegged
// token. Mint is owner-gated and reports failure through its boolean rather
// than an error; Burn is owner-gated and errors on insufficient balance.
type PeggedToken interface {
	Mint(caller, to crypto.Address, amount *big.Int) bool
	Burn(caller, from crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) *big.Int
	TotalSupply() *big.Int
}

// CollateralToken is the boundary contract for an external collateral asset.
// A false return from either transfer method is treated by the engine exactly
// like a thrown failure.
type CollateralToken interface {
	Transfer(caller, to crypto.Address, amount *big.Int) bool
	TransferFrom(caller, from, to crypto.Address, amount *big.Int) bool
	Approve(owner, spender crypto.Address, amount *big.Int)
	BalanceOf(addr crypto.Address) *big.Int
}

// Ledger is the in-process rendition of the pegged-token ledger. The owner is
// fixed at construction; only the owner may mint or burn.
type Ledger struct {
	mu       sync.RWMutex
	owner    crypto.Address
	balances map[string]*big.Int
	supply   *big.Int
}

func NewLedger(owner crypto.Address) *Ledger {
	return &Ledger{
		owner:    owner,
		balances: make(map[string]*big.Int),
		supply:   big.NewInt(0),
	}
}

// Mint credits freshly issued tokens to the recipient. It returns false when
// the caller is not the owner or the amount is not positive, matching the
// fail-to-false contract of the external ledger.
func (l *Ledger) Mint(caller, to crypto.Address, amount *big.Int) bool {
	if l == nil || !caller.Equal(l.owner) {
		return false
	}
	if amount == nil || amount.Sign() <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balance(to)
	l.balances[key(to)] = new(big.Int).Add(balance, amount)
	l.supply = new(big.Int).Add(l.supply, amount)
	return true
}

// Burn retires tokens from the holder's balance.
func (l *Ledger) Burn(caller, from crypto.Address, amount *big.Int) error {
	if l == nil || !caller.Equal(l.owner) {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balance(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[key(from)] = new(big.Int).Sub(balance, amount)
	l.supply = new(big.Int).Sub(l.supply, amount)
	return nil
}

func (l *Ledger) BalanceOf(addr crypto.Address) *big.Int {
	if l == nil {
		return big.NewInt(0)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(addr))
}

func (l *Ledger) TotalSupply() *big.Int {
	if l == nil {
		return big.NewInt(0)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply)
}

func (l *Ledger) balance(addr crypto.Address) *big.Int {
	if b, ok := l.balances[key(addr)]; ok {
		return b
	}
	return big.NewInt(0)
}

// Asset is the in-process rendition of a collateral token with the standard
// transfer/approval semantics.
type Asset struct {
	mu         sync.RWMutex
	symbol     string
	balances   map[string]*big.Int
	allowances map[string]*big.Int
}

func NewAsset(symbol string) *Asset {
	return &Asset{
		symbol:     symbol,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
	}
}

// Symbol returns the asset identifier the token was constructed with.
func (a *Asset) Symbol() string {
	if a == nil {
		return ""
	}
	return a.symbol
}

// Credit seeds a balance outside the transfer flow. Used at genesis and in
// tests; the production collateral asset is an external ledger.
func (a *Asset) Credit(to crypto.Address, amount *big.Int) {
	if a == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[key(to)] = new(big.Int).Add(a.balance(to), amount)
}

// Transfer moves tokens out of the caller's own balance.
func (a *Asset) Transfer(caller, to crypto.Address, amount *big.Int) bool {
	if a == nil || amount == nil || amount.Sign() <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	balance := a.balance(caller)
	if balance.Cmp(amount) < 0 {
		return false
	}
	a.balances[key(caller)] = new(big.Int).Sub(balance, amount)
	a.balances[key(to)] = new(big.Int).Add(a.balance(to), amount)
	return true
}

// TransferFrom moves tokens from the holder using the caller's allowance.
func (a *Asset) TransferFrom(caller, from, to crypto.Address, amount *big.Int) bool {
	if a == nil || amount == nil || amount.Sign() <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	allowance := a.allowance(from, caller)
	if allowance.Cmp(amount) < 0 {
		return false
	}
	balance := a.balance(from)
	if balance.Cmp(amount) < 0 {
		return false
	}
	a.allowances[allowanceKey(from, caller)] = new(big.Int).Sub(allowance, amount)
	a.balances[key(from)] = new(big.Int).Sub(balance, amount)
	a.balances[key(to)] = new(big.Int).Add(a.balance(to), amount)
	return true
}

// Approve grants the spender permission to move up to amount from the owner.
func (a *Asset) Approve(owner, spender crypto.Address, amount *big.Int) {
	if a == nil {
		return
	}
	granted := big.NewInt(0)
	if amount != nil && amount.Sign() > 0 {
		granted = new(big.Int).Set(amount)
	}
	a.mu.Lock()
	a.allowances[allowanceKey(owner, spender)] = granted
	a.mu.Unlock()
}

func (a *Asset) BalanceOf(addr crypto.Address) *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return new(big.Int).Set(a.balance(addr))
}

func (a *Asset) balance(addr crypto.Address) *big.Int {
	if b, ok := a.balances[key(addr)]; ok {
		return b
	}
	return big.NewInt(0)
}

func (a *Asset) allowance(owner, spender crypto.Address) *big.Int {
	if b, ok := a.allowances[allowanceKey(owner, spender)]; ok {
		return b
	}
	return big.NewInt(0)
}

func key(addr crypto.Address) string {
	return string(addr.Bytes())
}

func allowanceKey(owner, spender crypto.Address) string {
	return string(owner.Bytes()) + "/" + string(spender.Bytes())
}
