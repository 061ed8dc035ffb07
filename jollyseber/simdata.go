package jollyseber

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rlugojr/example-models/encounter"
)

// SimConfig describes a Jolly-Seber population for simulating
// encounter histories.
type SimConfig struct {

	// Size of the superpopulation, the number of individuals that
	// are ever alive during the study.
	NSuper int

	// Phi[t] is the survival probability from occasion t to t+1.
	Phi []float64

	// P[t] is the detection probability at occasion t.
	P []float64

	// Entry[t] is the probability that a member of the
	// superpopulation enters at occasion t.  The values must sum
	// to 1.
	Entry []float64
}

// SimTruth holds the true population quantities behind simulated
// encounter histories.
type SimTruth struct {

	// N[t] is the number alive at occasion t.
	N []int

	// B[t] is the number entering at occasion t.
	B []int

	// The size of the superpopulation.
	NSuper int
}

func (cfg *SimConfig) check() error {

	ntime := len(cfg.P)
	if ntime < 2 {
		return fmt.Errorf("%w: found %d", encounter.ErrTooFewOccasions, ntime)
	}
	if len(cfg.Phi) != ntime-1 || len(cfg.Entry) != ntime {
		return fmt.Errorf("SimConfig: %d detection probabilities, %d survival probabilities and %d entry probabilities",
			ntime, len(cfg.Phi), len(cfg.Entry))
	}
	if cfg.NSuper <= 0 {
		return fmt.Errorf("SimConfig: NSuper=%d must be positive", cfg.NSuper)
	}

	for _, v := range [][]float64{cfg.Phi, cfg.P, cfg.Entry} {
		for _, x := range v {
			if !(x >= 0 && x <= 1) {
				return fmt.Errorf("SimConfig: %v is not a probability", x)
			}
		}
	}
	if s := floats.Sum(cfg.Entry); math.Abs(s-1) > 1e-8 {
		return fmt.Errorf("SimConfig: entry probabilities sum to %v", s)
	}

	return nil
}

// SimulateHistories simulates a Jolly-Seber population and returns
// the encounter histories of the individuals detected at least once,
// together with the true population quantities.
func SimulateHistories(cfg *SimConfig, src rand.Source) (*encounter.History, *SimTruth, error) {

	if err := cfg.check(); err != nil {
		return nil, nil, err
	}

	ntime := len(cfg.P)
	truth := &SimTruth{
		N:      make([]int, ntime),
		B:      make([]int, ntime),
		NSuper: cfg.NSuper,
	}

	entry := distuv.NewCategorical(cfg.Entry, src)
	bern := distuv.Bernoulli{Src: src}

	var y [][]int
	for i := 0; i < cfg.NSuper; i++ {

		t0 := int(entry.Rand())
		truth.B[t0]++

		row := make([]int, ntime)
		var seen bool
		for t := t0; t < ntime; t++ {
			if t > t0 {
				bern.P = cfg.Phi[t-1]
				if bern.Rand() == 0 {
					break
				}
			}
			truth.N[t]++

			bern.P = cfg.P[t]
			if bern.Rand() == 1 {
				row[t] = 1
				seen = true
			}
		}

		if seen {
			y = append(y, row)
		}
	}

	hist, err := encounter.New(y)
	if err != nil {
		return nil, truth, err
	}

	return hist, truth, nil
}
