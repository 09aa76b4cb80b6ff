package service

import (
	"math"

	"github.com/shopspring/decimal"
)

// ScaleScore maps rawScore out of rawMaximum onto targetMaximum, rounded to
// two decimals. A zero rawMaximum yields zero, as does any non-finite input
// or a result that overflows.
func ScaleScore(rawScore, rawMaximum, targetMaximum float64) float64 {
	if rawMaximum == 0 || !finite(rawScore, rawMaximum, targetMaximum) {
		return 0
	}

	scaled := rawScore / rawMaximum * targetMaximum
	if !finite(scaled) {
		return 0
	}

	exact := decimal.NewFromFloat(rawScore).
		Div(decimal.NewFromFloat(rawMaximum)).
		Mul(decimal.NewFromFloat(targetMaximum))

	return exact.Round(2).InexactFloat64()
}

func roundScore(value float64) float64 {
	if !finite(value) {
		return 0
	}
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

func finite(values ...float64) bool {
	for _, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
	}
	return true
}
