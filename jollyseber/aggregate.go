package jollyseber

import (
	"fmt"
)

// Derived contains the demographic quantities derived from one draw
// of the hyperparameters and the latent states simulated from it.
type Derived struct {

	// Variance of the occasion effects on logit survival.
	Sigma2 float64

	// Inclusion probability, the probability that a row of the
	// augmented data ever enters the population.
	Psi float64

	// Entry[t] is the probability of entering at occasion t, given
	// that the individual enters at some occasion.
	Entry []float64

	// N[t] is the population size at occasion t.
	N []int

	// B[t] is the number of individuals entering at occasion t.
	B []int

	// Nind[i] is the number of occasions at which individual i is
	// alive.
	Nind []int

	// Nsuper is the number of individuals that are alive at one
	// or more occasions.
	Nsuper int
}

// Aggregate reduces the latent states z (individuals by occasions)
// and the entry probabilities gamma to demographic quantities.  The
// Sigma2 field is not set.
func Aggregate(z [][]uint8, gamma []float64) *Derived {

	ntime := len(gamma)

	d := &Derived{
		Entry: make([]float64, ntime),
		N:     make([]int, ntime),
		B:     make([]int, ntime),
		Nind:  make([]int, len(z)),
	}

	// Probability of entering at t, unconditionally
	notEntered := 1.0
	for t, g := range gamma {
		d.Entry[t] = g * notEntered
		notEntered *= 1 - g
		d.Psi += d.Entry[t]
	}
	for t := range d.Entry {
		d.Entry[t] /= d.Psi
	}

	for i, zi := range z {
		if len(zi) != ntime {
			msg := fmt.Sprintf("Aggregate: row %d has %d occasions, expected %d\n", i+1, len(zi), ntime)
			panic(msg)
		}
		for t, v := range zi {
			d.N[t] += int(v)
			d.Nind[i] += int(v)

			// An individual that is alive now but not at the
			// previous occasion is a new entrant.
			if v == 1 && (t == 0 || zi[t-1] == 0) {
				d.B[t]++
			}
		}
		if d.Nind[i] > 0 {
			d.Nsuper++
		}
	}

	return d
}

// DerivedNames returns the names of the values returned by
// Derived.Values for ntime occasions.
func DerivedNames(ntime int) []string {

	names := []string{"sigma2", "psi"}
	for t := 1; t <= ntime; t++ {
		names = append(names, fmt.Sprintf("b[%d]", t))
	}
	names = append(names, "Nsuper")
	for t := 1; t <= ntime; t++ {
		names = append(names, fmt.Sprintf("N[%d]", t))
	}
	for t := 1; t <= ntime; t++ {
		names = append(names, fmt.Sprintf("B[%d]", t))
	}

	return names
}

// Values returns the derived quantities as a flat vector, in the
// order given by DerivedNames.
func (d *Derived) Values() []float64 {

	x := []float64{d.Sigma2, d.Psi}
	x = append(x, d.Entry...)
	x = append(x, float64(d.Nsuper))
	for _, n := range d.N {
		x = append(x, float64(n))
	}
	for _, b := range d.B {
		x = append(x, float64(b))
	}

	return x
}

// DerivedColumns arranges a collection of draws as columns, one per
// name in DerivedNames.
func DerivedColumns(draws []*Derived) [][]float64 {

	if len(draws) == 0 {
		return nil
	}

	ncol := len(draws[0].Values())
	cols := make([][]float64, ncol)
	for j := range cols {
		cols[j] = make([]float64, len(draws))
	}

	for i, d := range draws {
		for j, v := range d.Values() {
			cols[j][i] = v
		}
	}

	return cols
}
