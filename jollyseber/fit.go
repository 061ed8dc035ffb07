package jollyseber

import (
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/rlugojr/example-models/statmodel"
)

// Results describes the posterior mode of a Jolly-Seber model.  The
// parameter estimates and their covariance matrix are on the
// unconstrained scale (see Pack), and exclude Sigma which is held
// fixed.
type Results struct {
	statmodel.BaseResults

	sigma float64
}

var _ statmodel.BaseResultser = (*Results)(nil)

// Sigma returns the value at which the occasion effect standard
// deviation was held.
func (rslt *Results) Sigma() float64 {
	return rslt.sigma
}

// Mode returns the posterior mode as a parameter value.
func (rslt *Results) Mode() *Params {
	x := append(append([]float64{}, rslt.Params()...), logit(rslt.sigma/SigmaMax))
	par := Unpack(x)
	par.Sigma = rslt.sigma
	return par
}

func (m *Model) fullVec(xfree []float64, lsig float64) []float64 {
	x := make([]float64, len(xfree)+1)
	copy(x, xfree)
	x[len(xfree)] = lsig
	return x
}

func (m *Model) defaultStart() *Params {
	par := NewParams(m.ntime, 0.7, 0.5, 0.1, m.config.SigmaFixed)
	if m.config.Start != nil {
		par = m.config.Start.Clone()
		par.Sigma = m.config.SigmaFixed
	}
	return par
}

// Fit locates the posterior mode of all parameters except Sigma, which
// is held at SigmaFixed.  The joint mode in Sigma does not exist, the
// posterior density increases without bound as Sigma and the occasion
// effects approach zero.
func (m *Model) Fit() (*Results, error) {

	start := m.defaultStart()
	start.Check(m.ntime)

	x0 := start.Pack()
	lsig := x0[len(x0)-1]
	x0 = x0[0 : len(x0)-1]

	f := func(x []float64) float64 {
		return m.LogPosterior(m.fullVec(x, lsig))
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -f(x)
		},
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
			for j := range grad {
				grad[j] = -grad[j]
			}
		},
	}

	settings := m.config.OptSettings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-5,
		}
	}

	if m.config.Log != nil {
		m.config.Log.Printf("Fitting with sigma fixed at %f, %d free parameters\n",
			m.config.SigmaFixed, len(x0))
	}

	names := ParamNames(m.ntime)
	names = names[0 : len(names)-1]

	optrslt, err := optimize.Minimize(p, x0, settings, m.config.OptMethod)
	if err != nil {
		if optrslt == nil {
			return nil, err
		}

		// Return a partial results with an error
		results := &Results{
			BaseResults: statmodel.NewBaseResults(m, -optrslt.F, optrslt.X, names, nil),
			sigma:       m.config.SigmaFixed,
		}
		m.failMessage(optrslt, names)
		return results, err
	}
	if err = optrslt.Status.Err(); err != nil {
		return nil, err
	}

	if m.config.Log != nil {
		m.config.Log.Printf("Optimization status %v after %d iterations, log posterior %f\n",
			optrslt.Status, optrslt.Stats.MajorIterations, -optrslt.F)
	}

	param := make([]float64, len(optrslt.X))
	copy(param, optrslt.X)

	vcov, err := statmodel.GetVcov(f, param)
	if err != nil && m.config.Log != nil {
		m.config.Log.Printf("No covariance matrix: %v\n", err)
	}

	results := &Results{
		BaseResults: statmodel.NewBaseResults(m, -optrslt.F, param, names, vcov),
		sigma:       m.config.SigmaFixed,
	}

	return results, nil
}

// failMessage prints information that can help diagnose optimization failures.
func (m *Model) failMessage(optrslt *optimize.Result, names []string) {

	os.Stderr.WriteString("Current point and gradient:\n")
	for j, x := range optrslt.X {
		var g float64
		if j < len(optrslt.Gradient) {
			g = optrslt.Gradient[j]
		}
		os.Stderr.WriteString(fmt.Sprintf("%16.8f %16.8f %s\n", x, g, names[j]))
	}

	os.Stderr.WriteString("\nOccasion    Detected\n")
	for t, n := range m.hist.Captures() {
		os.Stderr.WriteString(fmt.Sprintf("%8d %11d\n", t+1, n))
	}
}

// LaplaceDraws returns n draws from the normal approximation to the
// posterior at its mode.  Sigma is fixed in every draw.
func (rslt *Results) LaplaceDraws(n int, src rand.Source) ([]*Params, error) {

	vcov := rslt.VCov()
	if vcov == nil {
		return nil, fmt.Errorf("LaplaceDraws: the fit has no covariance matrix")
	}

	mode := rslt.Params()
	k := len(mode)

	// Symmetrize to remove rounding differences
	cov := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			cov.SetSym(i, j, (vcov[i*k+j]+vcov[j*k+i])/2)
		}
	}

	mvn, ok := distmv.NewNormal(mode, cov, src)
	if !ok {
		return nil, fmt.Errorf("LaplaceDraws: covariance matrix is not positive definite")
	}

	lsig := logit(rslt.sigma / SigmaMax)
	x := make([]float64, k+1)
	draws := make([]*Params, n)
	for i := range draws {
		mvn.Rand(x[0:k])
		x[k] = lsig
		draws[i] = Unpack(x)
		draws[i].Sigma = rslt.sigma
	}

	return draws, nil
}

// Summary displays a summary table of the posterior mode.
func (rslt *Results) Summary() *Summary {
	return &Summary{
		results: rslt,
	}
}

// Summary summarizes the posterior mode of a Jolly-Seber model.
type Summary struct {

	// The results structure
	results *Results

	// Messages that are appended to the table
	messages []string
}

// AddMessage appends a message to the summary table.
func (s *Summary) AddMessage(msg string) *Summary {
	s.messages = append(s.messages, msg)
	return s
}

// String returns a string representation of a summary table for the
// model.  Estimates and approximate 95% intervals are shown on the
// probability scale for the survival, detection and entry parameters.
func (s *Summary) String() string {

	rslt := s.results
	m := rslt.Model().(*Model)

	sum := &statmodel.SummaryTable{
		Msg:   s.messages,
		Title: "Jolly-Seber restricted occupancy model, posterior mode",
	}

	sum.Top = []string{
		fmt.Sprintf("Rows:          %d", m.nind),
		fmt.Sprintf("Occasions:     %d", m.ntime),
		fmt.Sprintf("Detected:      %d", m.hist.NumDetected()),
		fmt.Sprintf("Augmented:     %d", m.hist.NumAugmented()),
		fmt.Sprintf("Log posterior: %.4f", rslt.LogLike()),
		fmt.Sprintf("Sigma (fixed): %.4f", rslt.sigma),
	}

	pa := rslt.Params()
	se := rslt.StdErr()

	// Survival, detection and entry are on the logit scale, the
	// occasion effects are not transformed.
	xf := func(j int, v float64) float64 {
		if j < 2+m.ntime {
			return expit(v)
		}
		return v
	}

	var est, lcb, ucb []float64
	for j := range pa {
		est = append(est, xf(j, pa[j]))
	}

	if se != nil {
		for j := range pa {
			lcb = append(lcb, xf(j, pa[j]-2*se[j]))
			ucb = append(ucb, xf(j, pa[j]+2*se[j]))
		}
		sum.ColNames = []string{"Parameter   ", "Estimate", "SE", "LCB", "UCB"}
		sum.ColFmt = []statmodel.Fmter{statmodel.StringFmt, statmodel.FloatFmt, statmodel.FloatFmt,
			statmodel.FloatFmt, statmodel.FloatFmt}
		sum.Cols = []interface{}{rslt.Names(), est, se, lcb, ucb}
		sum.Msg = append(sum.Msg, "SE is on the logit scale for probabilities")
	} else {
		sum.ColNames = []string{"Parameter   ", "Estimate"}
		sum.ColFmt = []statmodel.Fmter{statmodel.StringFmt, statmodel.FloatFmt}
		sum.Cols = []interface{}{rslt.Names(), est}
	}

	return sum.String()
}
