package jollyseber

import (
	"sync"

	"golang.org/x/exp/rand"
)

// Derive passes one draw of the hyperparameters through the
// parameterization, simulates the latent states using src, and
// returns the derived demographic quantities.
func (m *Model) Derive(par *Params, src rand.Source) *Derived {

	pr := m.Probs(par)
	z := SimulateStates(pr, par.Gamma, src)

	d := Aggregate(z, par.Gamma)
	d.Sigma2 = par.Sigma2()

	return d
}

// ProcessDraws returns the derived demographic quantities for each of
// the given draws of the hyperparameters.  Each draw receives its own
// random source, seeded from src before any work starts, so the
// results depend only on src and not on scheduling.  Draws are
// processed concurrently.
func (m *Model) ProcessDraws(draws []*Params, src rand.Source) []*Derived {

	rng := rand.New(src)
	seeds := make([]uint64, len(draws))
	for k := range seeds {
		seeds[k] = rng.Uint64()
	}

	if m.config.Log != nil {
		m.config.Log.Printf("Processing %d draws with %d workers\n", len(draws), m.config.Workers)
	}

	out := make([]*Derived, len(draws))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < m.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				out[k] = m.Derive(draws[k], rand.NewSource(seeds[k]))
			}
		}()
	}

	for k := range draws {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	return out
}
