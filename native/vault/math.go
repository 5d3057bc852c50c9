package vault

import "math/big"

var (
	// wad is the 18-decimal fixed-point unit shared by amounts, USD values and
	// health factors.
	wad     = mustBigInt("1000000000000000000")
	percent = big.NewInt(100)
	ten     = big.NewInt(10)
)

const wadDecimals = 18

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// feedNormalization returns 10^(18-decimals), the multiplier that lifts a feed
// reading to 18-decimal precision before it is combined with asset amounts.
// Feeds reporting more than 18 decimals are not supported.
func feedNormalization(decimals uint8) *big.Int {
	if decimals >= wadDecimals {
		return big.NewInt(1)
	}
	exp := big.NewInt(int64(wadDecimals - decimals))
	return new(big.Int).Exp(ten, exp, nil)
}

// pctShare returns amount * pct / 100.
func pctShare(amount *big.Int, pct uint64) *big.Int {
	if amount == nil || amount.Sign() == 0 || pct == 0 {
		return big.NewInt(0)
	}
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(pct))
	return share.Quo(share, percent)
}
