package math

import (
	"math/big"
	"sync"
)

// Scale is the shared fixed-point scale: prices, token amounts, and quote
// values all carry 6 decimal places, matching the venue's 6-decimal
// collateral precision.
const Scale int64 = 1_000_000

// SplitPrice is the protocol-constant price of each outcome token minted
// by a Split or burned by a Merge: exactly $0.50. Never market-derived.
const SplitPrice int64 = 500_000

// Int128 pool for intermediate calculations
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	int128Pool.Put(v)
}

// MulDiv computes a * b / denom using int128 intermediates, truncating
// toward zero. Truncation is the ledger-wide rounding rule: every formula
// in the replay path uses integer division, so replays are bit-identical.
func MulDiv(a, b, denom int64) int64 {
	num := getInt128()
	num.Mul(big.NewInt(a), big.NewInt(b))

	q := getInt128()
	q.Quo(num, big.NewInt(denom))
	result := q.Int64()

	putInt128(num)
	putInt128(q)

	return result
}

// WeightedAvgPrice recomputes a position's average acquisition price after
// a buy of fillAmount at fillPrice. Prices are signed: a Convert's
// synthetic YES buy can carry a negative price and must average normally.
func WeightedAvgPrice(oldAmount, oldAvgPrice, fillAmount, fillPrice int64) int64 {
	if oldAmount == 0 {
		return fillPrice
	}

	// numerator = oldAmount*oldAvgPrice + fillAmount*fillPrice
	term1 := getInt128()
	term1.Mul(big.NewInt(oldAmount), big.NewInt(oldAvgPrice))
	term2 := getInt128()
	term2.Mul(big.NewInt(fillAmount), big.NewInt(fillPrice))

	num := getInt128()
	num.Add(term1, term2)

	q := getInt128()
	q.Quo(num, big.NewInt(oldAmount+fillAmount))
	result := q.Int64()

	putInt128(term1)
	putInt128(term2)
	putInt128(num)
	putInt128(q)

	return result
}

// SellPnL computes the realized P&L of selling amount tokens acquired at
// avgPrice for sellPrice: amount * (sellPrice - avgPrice) / Scale.
// The caller is responsible for capping amount at tracked inventory.
func SellPnL(amount, sellPrice, avgPrice int64) int64 {
	return MulDiv(amount, sellPrice-avgPrice, Scale)
}

// PayoutPrice converts a resolution payout ratio into a fixed-point price.
func PayoutPrice(numerator, denominator int64) int64 {
	return MulDiv(numerator, Scale, denominator)
}

// FillPrice derives a trade price from a fill's collateral and token legs:
// quoteAmount * Scale / baseAmount, truncating.
func FillPrice(quoteAmount, baseAmount int64) int64 {
	return MulDiv(quoteAmount, Scale, baseAmount)
}
