package jollyseber

import (
	"fmt"
	"math"
)

// SigmaMax is the upper bound of the support of the standard deviation
// of the occasion random effects on logit survival.
const SigmaMax = 5

// Params is one value of the model hyperparameters, for example one
// posterior draw.
type Params struct {

	// Mean survival probability between consecutive occasions.
	MeanPhi float64

	// Mean detection probability.
	MeanP float64

	// Gamma[t] is the probability that an individual that has not
	// yet entered the population enters at occasion t (removal
	// entry probability).
	Gamma []float64

	// Epsilon[t] is the deviation of logit survival from
	// logit(MeanPhi) for the interval between occasions t and t+1.
	Epsilon []float64

	// Standard deviation of Epsilon.
	Sigma float64
}

// NewParams returns a parameter value for ntime occasions with no
// occasion effects on survival and a common entry probability.
func NewParams(ntime int, meanPhi, meanP, gamma, sigma float64) *Params {

	par := &Params{
		MeanPhi: meanPhi,
		MeanP:   meanP,
		Gamma:   make([]float64, ntime),
		Epsilon: make([]float64, ntime-1),
		Sigma:   sigma,
	}

	for t := range par.Gamma {
		par.Gamma[t] = gamma
	}

	return par
}

// Clone returns a deep copy of the parameter value.
func (par *Params) Clone() *Params {

	q := *par
	q.Gamma = make([]float64, len(par.Gamma))
	copy(q.Gamma, par.Gamma)
	q.Epsilon = make([]float64, len(par.Epsilon))
	copy(q.Epsilon, par.Epsilon)

	return &q
}

// Sigma2 returns the variance of the occasion effects on logit survival.
func (par *Params) Sigma2() float64 {
	return par.Sigma * par.Sigma
}

func inUnit(x float64) bool {
	return x > 0 && x < 1
}

// Check panics if any hyperparameter lies outside of its support, or
// if the lengths of Gamma and Epsilon do not agree with the number of
// occasions.
func (par *Params) Check(ntime int) {

	if !inUnit(par.MeanPhi) {
		panic(fmt.Sprintf("Params: MeanPhi=%v is not in (0, 1)\n", par.MeanPhi))
	}
	if !inUnit(par.MeanP) {
		panic(fmt.Sprintf("Params: MeanP=%v is not in (0, 1)\n", par.MeanP))
	}
	if !(par.Sigma > 0 && par.Sigma < SigmaMax) {
		panic(fmt.Sprintf("Params: Sigma=%v is not in (0, %d)\n", par.Sigma, SigmaMax))
	}

	if len(par.Gamma) != ntime {
		msg := fmt.Sprintf("Params: Gamma has length %d, but there are %d occasions\n", len(par.Gamma), ntime)
		panic(msg)
	}
	for t, g := range par.Gamma {
		if !inUnit(g) {
			panic(fmt.Sprintf("Params: Gamma[%d]=%v is not in (0, 1)\n", t+1, g))
		}
	}

	if len(par.Epsilon) != ntime-1 {
		msg := fmt.Sprintf("Params: Epsilon has length %d, but there are %d intervals\n", len(par.Epsilon), ntime-1)
		panic(msg)
	}
	for t, e := range par.Epsilon {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			panic(fmt.Sprintf("Params: Epsilon[%d]=%v is not finite\n", t+1, e))
		}
	}
}

// inSupport is the non-panicking version of Check.
func (par *Params) inSupport() bool {

	if !inUnit(par.MeanPhi) || !inUnit(par.MeanP) || !(par.Sigma > 0 && par.Sigma < SigmaMax) {
		return false
	}
	for _, g := range par.Gamma {
		if !inUnit(g) {
			return false
		}
	}
	for _, e := range par.Epsilon {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return false
		}
	}

	return true
}

// NumVec returns the length of the unconstrained parameter vector for
// ntime occasions.
func NumVec(ntime int) int {
	return 2*ntime + 2
}

// ParamNames returns the names of the elements of the unconstrained
// parameter vector, in the order used by Pack and Unpack.
func ParamNames(ntime int) []string {

	names := []string{"mean_phi", "mean_p"}
	for t := 1; t <= ntime; t++ {
		names = append(names, fmt.Sprintf("gamma[%d]", t))
	}
	for t := 1; t < ntime; t++ {
		names = append(names, fmt.Sprintf("epsilon[%d]", t))
	}
	names = append(names, "sigma")

	return names
}

// Pack maps the parameters to an unconstrained vector.  Probabilities
// are logit transformed, Sigma is mapped to logit(Sigma/SigmaMax).
func (par *Params) Pack() []float64 {

	ntime := len(par.Gamma)
	x := make([]float64, 0, NumVec(ntime))
	x = append(x, logit(par.MeanPhi), logit(par.MeanP))
	for _, g := range par.Gamma {
		x = append(x, logit(g))
	}
	x = append(x, par.Epsilon...)
	x = append(x, logit(par.Sigma/SigmaMax))

	return x
}

// Unpack is the inverse of Pack.
func Unpack(x []float64) *Params {

	if len(x)%2 != 0 || len(x) < NumVec(2) {
		msg := fmt.Sprintf("Unpack: invalid parameter vector length %d\n", len(x))
		panic(msg)
	}

	ntime := (len(x) - 2) / 2
	par := &Params{
		MeanPhi: expit(x[0]),
		MeanP:   expit(x[1]),
		Gamma:   make([]float64, ntime),
		Epsilon: make([]float64, ntime-1),
		Sigma:   SigmaMax * expit(x[len(x)-1]),
	}

	for t := range par.Gamma {
		par.Gamma[t] = expit(x[2+t])
	}
	copy(par.Epsilon, x[2+ntime:])

	return par
}

// logJacobian returns the log absolute Jacobian determinant of Unpack.
func logJacobian(x []float64) float64 {

	ntime := (len(x) - 2) / 2

	lj := logExpitDeriv(x[0]) + logExpitDeriv(x[1])
	for t := 0; t < ntime; t++ {
		lj += logExpitDeriv(x[2+t])
	}
	lj += math.Log(SigmaMax) + logExpitDeriv(x[len(x)-1])

	return lj
}
