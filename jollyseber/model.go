// Package jollyseber implements the Jolly-Seber capture-recapture model,
// written as a restricted occupancy model with data augmentation.
//
// The encounter histories are padded with all-zero pseudo-individuals,
// so that the number of rows M bounds the size of the superpopulation.
// Each row is alive and present at occasion t with some probability;
// individuals that have not yet entered enter at occasion t with
// probability Gamma[t], alive individuals survive to the next occasion
// with probability Phi, and alive individuals are detected with
// probability P.  The occasion of entry is summed out of the
// likelihood.  Population sizes, numbers of entrants and the
// superpopulation size are derived from each draw of the
// hyperparameters by simulating the latent alive states.
package jollyseber

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/rlugojr/example-models/encounter"
)

// ModelConfig defines configuration parameters for a Jolly-Seber model.
type ModelConfig struct {

	// A logger to which logging information is written, optional.
	Log *log.Logger

	// The log-likelihood is computed concurrently when the number
	// of individuals is at least this value.
	Concurrent int

	// The number of goroutines used for concurrent calculations.
	// Defaults to GOMAXPROCS.
	Workers int

	// Fit holds the occasion effect standard deviation at this
	// value when locating the posterior mode.
	SigmaFixed float64

	// Start contains starting values for Fit, optional.
	Start *Params

	// OptMethod is the Gonum optimization used to fit the model.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.
	OptSettings *optimize.Settings
}

// DefaultModelConfig returns a default configuration struct for a
// Jolly-Seber model.
func DefaultModelConfig() *ModelConfig {

	return &ModelConfig{
		Concurrent: 1000,
		Workers:    runtime.GOMAXPROCS(0),
		SigmaFixed: 0.5,
		OptMethod: &optimize.BFGS{
			Linesearcher: &optimize.MoreThuente{},
		},
	}
}

// Model is a Jolly-Seber model for a fixed set of (augmented)
// encounter histories.
type Model struct {

	// The encounter histories, including pseudo-individuals.
	hist *encounter.History

	// First and last detection occasions, 1-based, 0 if never
	// detected.
	first []int
	last  []int

	nind  int
	ntime int

	config *ModelConfig
}

// NewModel returns a Model for the given augmented encounter histories.
func NewModel(hist *encounter.History, config *ModelConfig) (*Model, error) {

	if hist == nil || hist.NumInd() == 0 {
		return nil, encounter.ErrEmpty
	}
	if hist.NumOccasions() < 2 {
		return nil, fmt.Errorf("%w: found %d", encounter.ErrTooFewOccasions, hist.NumOccasions())
	}

	if config == nil {
		config = DefaultModelConfig()
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if !(config.SigmaFixed > 0 && config.SigmaFixed < SigmaMax) {
		return nil, fmt.Errorf("NewModel: SigmaFixed=%v is not in (0, %d)", config.SigmaFixed, SigmaMax)
	}

	b := hist.Bounds()

	m := &Model{
		hist:   hist,
		first:  b.First,
		last:   b.Last,
		nind:   hist.NumInd(),
		ntime:  hist.NumOccasions(),
		config: config,
	}

	if config.Log != nil {
		config.Log.Printf("Jolly-Seber model: %d rows, %d detected, %d occasions\n",
			m.nind, hist.NumDetected(), m.ntime)
	}

	return m, nil
}

// NumObs returns the number of rows, including pseudo-individuals.
func (m *Model) NumObs() int {
	return m.nind
}

// NumOccasions returns the number of sampling occasions.
func (m *Model) NumOccasions() int {
	return m.ntime
}

// NumParams returns the length of the unconstrained parameter vector.
func (m *Model) NumParams() int {
	return NumVec(m.ntime)
}

// History returns the encounter histories used by the model.
func (m *Model) History() *encounter.History {
	return m.hist
}

// Probs returns the survival, detection and uncaptured probabilities
// for the given parameter value.
func (m *Model) Probs(par *Params) *Probs {
	pr := NewProbs(m.nind, m.ntime)
	pr.Set(par)
	return pr
}

// LogLike returns the log-likelihood of all encounter histories at the
// given parameter value.  The occasion of entry of each individual is
// summed out.  Priors are not included.
func (m *Model) LogLike(par *Params) float64 {
	pr := m.Probs(par)
	return m.LogLikeProbs(pr, par.Gamma)
}

// entryTerms holds quantities of the entry process that are shared
// by all individuals.
type entryTerms struct {

	// lgam[t] = log(gamma[t])
	lgam []float64

	// lqgam[t] is the sum of log(1 - gamma[k]) for k < t,
	// there are ntime + 1 values.
	lqgam []float64
}

func newEntryTerms(gamma []float64) *entryTerms {

	et := &entryTerms{
		lgam:  make([]float64, len(gamma)),
		lqgam: make([]float64, len(gamma)+1),
	}

	for t, g := range gamma {
		checkProb("gamma", 0, t, g)
		et.lgam[t] = math.Log(g)
		et.lqgam[t+1] = et.lqgam[t] + math.Log1p(-g)
	}

	return et
}

// LogLikeProbs returns the log-likelihood given precomputed survival,
// detection and uncaptured probabilities, and the entry
// probabilities gamma.
func (m *Model) LogLikeProbs(pr *Probs, gamma []float64) float64 {

	if len(gamma) != m.ntime || len(pr.P) != m.nind {
		msg := fmt.Sprintf("LogLikeProbs: got %d entry probabilities and %d rows, expected %d and %d\n",
			len(gamma), len(pr.P), m.ntime, m.nind)
		panic(msg)
	}

	et := newEntryTerms(gamma)
	llf := make([]float64, m.nind)

	if m.nind < m.config.Concurrent || m.config.Workers < 2 {
		m.logLikeRange(0, m.nind, pr, et, llf)
		return floats.Sum(llf)
	}

	var wg sync.WaitGroup
	chunk := (m.nind + m.config.Workers - 1) / m.config.Workers
	for i0 := 0; i0 < m.nind; i0 += chunk {
		i1 := i0 + chunk
		if i1 > m.nind {
			i1 = m.nind
		}
		wg.Add(1)
		go func(i0, i1 int) {
			defer wg.Done()
			m.logLikeRange(i0, i1, pr, et, llf)
		}(i0, i1)
	}
	wg.Wait()

	return floats.Sum(llf)
}

// logLikeRange places the log-likelihood contributions of individuals
// i0, ..., i1-1 into llf.
func (m *Model) logLikeRange(i0, i1 int, pr *Probs, et *entryTerms, llf []float64) {

	// Due to concurrency, each range needs its own workspace
	terms := make([]float64, m.ntime+1)

	for i := i0; i < i1; i++ {
		llf[i] = m.indLogLike(i, pr, et, terms)
	}
}

// IndLogLike returns the log-likelihood contribution of individual i
// (zero-based).
func (m *Model) IndLogLike(i int, pr *Probs, gamma []float64) float64 {
	et := newEntryTerms(gamma)
	terms := make([]float64, m.ntime+1)
	return m.indLogLike(i, pr, et, terms)
}

func (m *Model) indLogLike(i int, pr *Probs, et *entryTerms, terms []float64) float64 {
	if m.first[i] == 0 {
		return m.undetectedLogLike(i, pr, et, terms)
	}
	return m.detectedLogLike(i, pr, et, terms)
}

// detectedLogLike is the contribution of an individual detected at
// least once.
func (m *Model) detectedLogLike(i int, pr *Probs, et *entryTerms, terms []float64) float64 {

	// Zero-based first and last detection occasions
	f := m.first[i] - 1
	l := m.last[i] - 1

	phi := pr.Phi[i]
	p := pr.P[i]
	y := m.hist.Row(i)

	lpf := math.Log(p[f])

	// Entry at occasion t <= f: not entered before t, entered at t,
	// survived and undetected through f-1, detected at f.  The
	// survive-and-undetected sum is empty when t == f.
	var s float64
	for t := f; t >= 0; t-- {
		if t < f {
			s += math.Log1p(-p[t]) + math.Log(phi[t])
		}
		terms[t] = et.lqgam[t] + et.lgam[t] + s + lpf
	}

	var ll float64
	if f == 0 {
		// Must have entered at the first occasion.
		ll = terms[0]
	} else {
		ll = floats.LogSumExp(terms[0 : f+1])
	}

	// Between the first and last detections the individual is
	// known to be alive.
	for t := f + 1; t <= l; t++ {
		ll += math.Log(phi[t-1])
		if y[t] == 1 {
			ll += math.Log(p[t])
		} else {
			ll += math.Log1p(-p[t])
		}
	}

	// Never seen again after the last detection
	ll += math.Log(pr.Chi[i][l])

	return ll
}

// undetectedLogLike is the contribution of an individual never detected.
func (m *Model) undetectedLogLike(i int, pr *Probs, et *entryTerms, terms []float64) float64 {

	p := pr.P[i]
	chi := pr.Chi[i]

	// Entered at occasion t and never detected
	for t := 0; t < m.ntime; t++ {
		terms[t] = et.lqgam[t] + et.lgam[t] + math.Log1p(-p[t]) + math.Log(chi[t])
	}

	// Never entered
	terms[m.ntime] = et.lqgam[m.ntime]

	return floats.LogSumExp(terms[0 : m.ntime+1])
}
