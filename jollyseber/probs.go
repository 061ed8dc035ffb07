package jollyseber

import (
	"fmt"
)

// Probs holds the individual by occasion survival, detection and
// uncaptured probabilities implied by one value of the
// hyperparameters.
type Probs struct {

	// Phi[i][t] is the probability that individual i survives from
	// occasion t to occasion t+1.  There are ntime-1 columns.
	Phi [][]float64

	// P[i][t] is the probability that individual i is detected at
	// occasion t, given that it is alive and has entered.
	P [][]float64

	// Chi[i][t] is the probability that individual i, alive and
	// present at occasion t, is not detected at any later occasion.
	Chi [][]float64
}

// NewProbs allocates workspace for nind individuals observed at
// ntime occasions.
func NewProbs(nind, ntime int) *Probs {
	return &Probs{
		Phi: makeFloatArray(nind, ntime-1),
		P:   makeFloatArray(nind, ntime),
		Chi: makeFloatArray(nind, ntime),
	}
}

// Set computes the survival and detection probabilities from the
// hyperparameters, then the uncaptured probabilities.  Survival and
// detection do not vary over individuals; survival varies over
// intervals through the occasion effects Epsilon.
func (pr *Probs) Set(par *Params) {

	ntime := len(pr.P[0])
	par.Check(ntime)

	lphi := logit(par.MeanPhi)
	for i := range pr.Phi {
		phi := pr.Phi[i]
		for t := range phi {
			phi[t] = expit(lphi + par.Epsilon[t])
		}
		p := pr.P[i]
		for t := range p {
			p[t] = par.MeanP
		}
	}

	pr.setChi()
}

// setChi calculates the uncaptured probabilities by a backward
// recursion over occasions.
func (pr *Probs) setChi() {

	for i := range pr.Chi {
		chi := pr.Chi[i]
		phi := pr.Phi[i]
		p := pr.P[i]
		last := len(chi) - 1

		// Nothing can be observed after the last occasion.
		chi[last] = 1

		for t := last - 1; t >= 0; t-- {
			chi[t] = (1 - phi[t]) + phi[t]*(1-p[t+1])*chi[t+1]
			checkProb("chi", i, t, chi[t])
		}
	}
}

// checkProb panics if x is not a probability.  Comparisons with NaN
// are false, so NaN values also panic.
func checkProb(name string, i, t int, x float64) {
	if !(x >= 0 && x <= 1) {
		msg := fmt.Sprintf("%s[%d, %d]=%v is not a probability\n", name, i+1, t+1, x)
		panic(msg)
	}
}

// makeFloatArray makes a collection of r slices
// of length c, packed contiguously.
func makeFloatArray(r, c int) [][]float64 {

	bka := make([]float64, r*c)
	x := make([][]float64, r)
	ii := 0
	for j := 0; j < r; j++ {
		x[j] = bka[ii : ii+c]
		ii += c
	}

	return x
}
