package jollyseber

import "math"

func logit(x float64) float64 {
	return math.Log(x / (1 - x))
}

func expit(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// softplus returns log(1 + exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// logExpitDeriv returns the log of the derivative of expit at x,
// log(expit(x) * (1 - expit(x))).
func logExpitDeriv(x float64) float64 {
	return -softplus(-x) - softplus(x)
}
