// Package posterior summarizes collections of posterior draws: means,
// standard deviations, equal-tailed intervals, and the split-Rhat
// convergence diagnostic.
package posterior

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rlugojr/example-models/statmodel"
)

// DefaultRhat is the conventional upper bound on Rhat for declaring
// that a set of chains has converged.
const DefaultRhat = 1.1

// Row summarizes the draws of one quantity.
type Row struct {
	Name string

	// The number of draws, pooled over chains.
	N int

	Mean float64
	SD   float64

	// Quantiles at 2.5%, 50% and 97.5%
	Q025   float64
	Median float64
	Q975   float64

	// Split-Rhat, NaN when the chains are too short.
	Rhat float64
}

// Summarize returns summary statistics for the draws of one quantity.
// Each element of chains contains the draws of one chain.
func Summarize(name string, chains [][]float64) Row {

	var pool []float64
	for _, c := range chains {
		pool = append(pool, c...)
	}
	if len(pool) == 0 {
		msg := fmt.Sprintf("Summarize: no draws for '%s'\n", name)
		panic(msg)
	}

	sort.Float64s(pool)

	row := Row{
		Name:   name,
		N:      len(pool),
		Mean:   stat.Mean(pool, nil),
		Q025:   stat.Quantile(0.025, stat.Empirical, pool, nil),
		Median: stat.Quantile(0.5, stat.Empirical, pool, nil),
		Q975:   stat.Quantile(0.975, stat.Empirical, pool, nil),
		Rhat:   Rhat(chains),
	}
	if len(pool) > 1 {
		row.SD = math.Sqrt(stat.Variance(pool, nil))
	}

	return row
}

// SummarizeColumns summarizes a single chain of draws for each named
// quantity.  cols[j] holds the draws of names[j].
func SummarizeColumns(names []string, cols [][]float64) []Row {

	if len(names) != len(cols) {
		msg := fmt.Sprintf("SummarizeColumns: %d names and %d columns\n", len(names), len(cols))
		panic(msg)
	}

	rows := make([]Row, len(cols))
	for j, c := range cols {
		rows[j] = Summarize(names[j], [][]float64{c})
	}

	return rows
}

// Rhat returns the split-Rhat statistic of Gelman et al.  Each chain
// is split into a first and second half, dropping the middle draw of
// chains with an odd length, and the potential scale reduction factor
// is computed from the resulting half-chains.  All chains must have
// the same length.  NaN is returned if the half-chains have fewer than
// two draws.  Rhat is 1 when every draw is identical.
func Rhat(chains [][]float64) float64 {

	if len(chains) == 0 {
		return math.NaN()
	}

	n := len(chains[0]) / 2
	for _, c := range chains {
		if len(c) != len(chains[0]) {
			msg := fmt.Sprintf("Rhat: chains of length %d and %d\n", len(chains[0]), len(c))
			panic(msg)
		}
	}
	if n < 2 {
		return math.NaN()
	}

	var halves [][]float64
	for _, c := range chains {
		halves = append(halves, c[0:n], c[len(c)-n:])
	}

	means := make([]float64, len(halves))
	vars := make([]float64, len(halves))
	for k, h := range halves {
		means[k], vars[k] = stat.MeanVariance(h, nil)
	}

	// Within and between chain variances
	w := floats.Sum(vars) / float64(len(vars))
	b := float64(n) * stat.Variance(means, nil)

	if w == 0 {
		if b == 0 {
			return 1
		}
		return math.Inf(1)
	}

	vplus := float64(n-1)/float64(n)*w + b/float64(n)

	return math.Sqrt(vplus / w)
}

// Converged returns true if every row has Rhat below threshold.  Rows
// with an undefined Rhat are not converged.
func Converged(rows []Row, threshold float64) bool {

	for _, r := range rows {
		if !(r.Rhat < threshold) {
			return false
		}
	}

	return true
}

// Table arranges the summaries in a text table.
func Table(rows []Row, title string) *statmodel.SummaryTable {

	var names []string
	var mean, sd, q1, q2, q3, rhat []float64
	for _, r := range rows {
		names = append(names, r.Name)
		mean = append(mean, r.Mean)
		sd = append(sd, r.SD)
		q1 = append(q1, r.Q025)
		q2 = append(q2, r.Median)
		q3 = append(q3, r.Q975)
		rhat = append(rhat, r.Rhat)
	}

	tab := &statmodel.SummaryTable{
		Title:    title,
		ColNames: []string{"Quantity  ", "Mean", "SD", "2.5%", "50%", "97.5%", "Rhat"},
		ColFmt: []statmodel.Fmter{statmodel.StringFmt, statmodel.FloatFmt, statmodel.FloatFmt,
			statmodel.FloatFmt, statmodel.FloatFmt, statmodel.FloatFmt, statmodel.FloatFmt},
		Cols: []interface{}{names, mean, sd, q1, q2, q3, rhat},
	}

	if len(rows) > 0 {
		tab.Top = []string{fmt.Sprintf("Draws: %d", rows[0].N)}
	}

	if !Converged(rows, DefaultRhat) {
		tab.Msg = append(tab.Msg, fmt.Sprintf("Rhat exceeds %.2f for some quantities", DefaultRhat))
	}

	return tab
}
