package token

import (
	"errors"
	"math/big"
	"testing"

	"synthd/crypto"
)

func makeAddress(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.NewAddress(crypto.SynPrefix, raw)
}

func TestLedgerMintOwnerGated(t *testing.T) {
	owner := makeAddress(0x01)
	stranger := makeAddress(0x02)
	holder := makeAddress(0x03)

	ledger := NewLedger(owner)
	if ledger.Mint(stranger, holder, big.NewInt(100)) {
		t.Fatalf("expected mint by non-owner to fail")
	}
	if !ledger.Mint(owner, holder, big.NewInt(100)) {
		t.Fatalf("expected mint by owner to succeed")
	}
	if got := ledger.BalanceOf(holder); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected balance: %s", got)
	}
	if got := ledger.TotalSupply(); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected supply: %s", got)
	}
}

func TestLedgerMintRejectsNonPositive(t *testing.T) {
	owner := makeAddress(0x01)
	holder := makeAddress(0x02)
	ledger := NewLedger(owner)
	if ledger.Mint(owner, holder, big.NewInt(0)) {
		t.Fatalf("expected zero mint to fail")
	}
	if ledger.Mint(owner, holder, nil) {
		t.Fatalf("expected nil mint to fail")
	}
}

func TestLedgerBurn(t *testing.T) {
	owner := makeAddress(0x01)
	holder := makeAddress(0x02)
	ledger := NewLedger(owner)
	if !ledger.Mint(owner, holder, big.NewInt(50)) {
		t.Fatalf("mint failed")
	}

	if err := ledger.Burn(holder, holder, big.NewInt(10)); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := ledger.Burn(owner, holder, big.NewInt(60)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Burn(owner, holder, big.NewInt(50)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := ledger.BalanceOf(holder); got.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", got)
	}
	if got := ledger.TotalSupply(); got.Sign() != 0 {
		t.Fatalf("expected zero supply, got %s", got)
	}
}

func TestAssetTransferFromRequiresAllowance(t *testing.T) {
	holder := makeAddress(0x01)
	spender := makeAddress(0x02)
	custody := makeAddress(0x03)

	asset := NewAsset("WETH")
	asset.Credit(holder, big.NewInt(1000))

	if asset.TransferFrom(spender, holder, custody, big.NewInt(100)) {
		t.Fatalf("expected transferFrom without allowance to fail")
	}

	asset.Approve(holder, spender, big.NewInt(100))
	if asset.TransferFrom(spender, holder, custody, big.NewInt(101)) {
		t.Fatalf("expected transferFrom beyond allowance to fail")
	}
	if !asset.TransferFrom(spender, holder, custody, big.NewInt(100)) {
		t.Fatalf("expected transferFrom within allowance to succeed")
	}
	if got := asset.BalanceOf(custody); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected custody balance: %s", got)
	}
	// Allowance is consumed.
	if asset.TransferFrom(spender, holder, custody, big.NewInt(1)) {
		t.Fatalf("expected exhausted allowance to fail")
	}
}

func TestAssetTransferInsufficientBalance(t *testing.T) {
	holder := makeAddress(0x01)
	recipient := makeAddress(0x02)
	asset := NewAsset("WBTC")
	asset.Credit(holder, big.NewInt(10))
	if asset.Transfer(holder, recipient, big.NewInt(11)) {
		t.Fatalf("expected transfer above balance to fail")
	}
	if !asset.Transfer(holder, recipient, big.NewInt(10)) {
		t.Fatalf("expected transfer to succeed")
	}
}
