package vault

import (
	"errors"
	"math/big"
	"testing"
)

func maxUint256() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}

func TestLedgerImplicitPosition(t *testing.T) {
	ledger := NewLedger(newMockState())
	addr := makeAddress(0x11)

	pos, err := ledger.Position(addr)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos == nil || pos.Collateral == nil || pos.Issued == nil {
		t.Fatalf("expected fully defaulted position, got %+v", pos)
	}
	if pos.Issued.Sign() != 0 {
		t.Fatalf("fresh position must carry no debt, got %s", pos.Issued)
	}
}

func TestLedgerCollateralRoundTrip(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	addr := makeAddress(0x11)

	if err := ledger.AddCollateral(addr, testAsset, wadAmount(3)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ledger.AddCollateral(addr, testAsset, wadAmount(2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ledger.RemoveCollateral(addr, testAsset, wadAmount(4)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	pos, err := ledger.Position(addr)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.CollateralFor(testAsset).Cmp(wadAmount(1)) != 0 {
		t.Fatalf("unexpected balance: %s", pos.CollateralFor(testAsset))
	}

	if err := ledger.RemoveCollateral(addr, testAsset, wadAmount(2)); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ledger := NewLedger(newMockState())
	addr := makeAddress(0x11)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if err := ledger.AddCollateral(addr, testAsset, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("add %v: expected ErrInvalidAmount, got %v", amount, err)
		}
		if err := ledger.IncreaseIssued(addr, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("issue %v: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestLedgerCollateralOverflow(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	addr := makeAddress(0x11)

	if err := ledger.AddCollateral(addr, testAsset, maxUint256()); err != nil {
		t.Fatalf("add at limit: %v", err)
	}
	if err := ledger.AddCollateral(addr, testAsset, big.NewInt(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	pos, err := ledger.Position(addr)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.CollateralFor(testAsset).Cmp(maxUint256()) != 0 {
		t.Fatalf("balance must be unchanged after overflow, got %s", pos.CollateralFor(testAsset))
	}
}

func TestLedgerIssuedOverflow(t *testing.T) {
	ledger := NewLedger(newMockState())
	addr := makeAddress(0x11)

	if err := ledger.IncreaseIssued(addr, maxUint256()); err != nil {
		t.Fatalf("issue at limit: %v", err)
	}
	if err := ledger.IncreaseIssued(addr, big.NewInt(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestLedgerDebtRoundTrip(t *testing.T) {
	ledger := NewLedger(newMockState())
	addr := makeAddress(0x11)

	if err := ledger.IncreaseIssued(addr, wadAmount(100)); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := ledger.DecreaseIssued(addr, wadAmount(40)); err != nil {
		t.Fatalf("retire: %v", err)
	}
	pos, err := ledger.Position(addr)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Issued.Cmp(wadAmount(60)) != 0 {
		t.Fatalf("unexpected debt: %s", pos.Issued)
	}
	if err := ledger.DecreaseIssued(addr, wadAmount(61)); !errors.Is(err, ErrInsufficientDebt) {
		t.Fatalf("expected ErrInsufficientDebt, got %v", err)
	}
}

func TestLedgerRestore(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	addr := makeAddress(0x11)

	if err := ledger.AddCollateral(addr, testAsset, wadAmount(5)); err != nil {
		t.Fatalf("add: %v", err)
	}
	snapshot, err := ledger.Position(addr)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	snapshot = snapshot.Clone()

	if err := ledger.AddCollateral(addr, testAsset, wadAmount(7)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ledger.IncreaseIssued(addr, wadAmount(9)); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := ledger.restore(addr, snapshot); err != nil {
		t.Fatalf("restore: %v", err)
	}

	pos, err := ledger.Position(addr)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.CollateralFor(testAsset).Cmp(wadAmount(5)) != 0 {
		t.Fatalf("collateral not restored: %s", pos.CollateralFor(testAsset))
	}
	if pos.Issued.Sign() != 0 {
		t.Fatalf("debt not restored: %s", pos.Issued)
	}
}
