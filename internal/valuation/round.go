package valuation

import (
	"math"

	"github.com/shopspring/decimal"
)

// exactExponent asks for every decimal digit of a float64, so conversion
// does not round before Round2 does.
const exactExponent = -1100

// Round2 rounds v to two decimals the way Python's round(v, 2) does: the
// exact binary value is rounded, halves to even. 2.675 is stored as
// 2.67499... and rounds to 2.67; 0.125 is an exact half and rounds to 0.12.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloatWithExponent(v, exactExponent).RoundBank(2).InexactFloat64()
}
