package jollyseber

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	unitPrior  = distuv.Uniform{Min: 0, Max: 1}
	sigmaPrior = distuv.Uniform{Min: 0, Max: SigmaMax}
)

// LogPrior returns the log prior density of the hyperparameters:
// uniform priors on MeanPhi, MeanP and each Gamma[t], a uniform prior
// on Sigma over (0, SigmaMax), and independent Normal(0, Sigma)
// priors on the occasion effects.
func LogPrior(par *Params) float64 {

	lp := unitPrior.LogProb(par.MeanPhi) + unitPrior.LogProb(par.MeanP)
	for _, g := range par.Gamma {
		lp += unitPrior.LogProb(g)
	}

	lp += sigmaPrior.LogProb(par.Sigma)

	eps := distuv.Normal{Mu: 0, Sigma: par.Sigma}
	for _, e := range par.Epsilon {
		lp += eps.LogProb(e)
	}

	return lp
}

// LogPosterior returns the unnormalized log posterior density of the
// unconstrained parameter vector x (see Pack), including the Jacobian
// of the transformation.  Vectors that map outside of the support of
// the hyperparameters, which can happen when the logistic transform
// saturates, have log density -Inf.
func (m *Model) LogPosterior(x []float64) float64 {

	par := Unpack(x)
	if len(par.Gamma) != m.ntime {
		panic("LogPosterior: parameter vector does not match the number of occasions\n")
	}
	if !par.inSupport() {
		return math.Inf(-1)
	}

	return m.LogLike(par) + LogPrior(par) + logJacobian(x)
}
