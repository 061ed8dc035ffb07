package jollyseber

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SimulateStates draws the latent states z[i][t], which are 1 if
// individual i is alive and has entered the population at occasion
// t.  An individual that is alive survives to the next occasion with
// probability Phi, an individual that has never been alive enters with
// probability gamma[t].  The draws do not condition on the observed
// encounter histories.
func SimulateStates(pr *Probs, gamma []float64, src rand.Source) [][]uint8 {

	nind := len(pr.P)
	ntime := len(gamma)
	z := makeByteArray(nind, ntime)

	bern := distuv.Bernoulli{Src: src}

	for i := range z {
		zi := z[i]
		phi := pr.Phi[i]

		// 1 until the individual enters
		notEntered := 1.0

		bern.P = gamma[0]
		zi[0] = uint8(bern.Rand())
		notEntered *= float64(1 - zi[0])

		for t := 1; t < ntime; t++ {
			mu := phi[t-1]*float64(zi[t-1]) + gamma[t]*notEntered
			checkProb("mu", i, t, mu)
			bern.P = mu
			zi[t] = uint8(bern.Rand())
			notEntered *= float64(1 - zi[t])
		}
	}

	return z
}

// makeByteArray makes a collection of r slices
// of length c, packed contiguously.
func makeByteArray(r, c int) [][]uint8 {

	bka := make([]uint8, r*c)
	x := make([][]uint8, r)
	ii := 0
	for j := 0; j < r; j++ {
		x[j] = bka[ii : ii+c]
		ii += c
	}

	return x
}
