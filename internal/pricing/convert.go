package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenAmountToUSD converts a raw on-chain token amount (smallest unit) into a
// USD value at the given spot price. Decimal arithmetic avoids float drift on
// the division before the final rounding.
func TokenAmountToUSD(raw *big.Int, tokenDecimals int32, usdPrice float64) float64 {
	if raw == nil || raw.Sign() <= 0 {
		return 0
	}
	tokens := decimal.NewFromBigInt(raw, -tokenDecimals)
	usd := tokens.Mul(decimal.NewFromFloat(usdPrice))
	return usd.InexactFloat64()
}

// LamportsToUSD is TokenAmountToUSD for Solana's 9-decimal denomination, which
// both the LTAI SPL token and native SOL use.
func LamportsToUSD(raw uint64, usdPrice float64) float64 {
	return TokenAmountToUSD(new(big.Int).SetUint64(raw), 9, usdPrice)
}
