package jollyseber

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/rlugojr/example-models/encounter"
)

func scalarClose(x, y, eps float64) bool {
	if math.Abs(x-y) > eps {
		return false
	}
	return true
}

func newModel(t *testing.T, y [][]int, config *ModelConfig) *Model {

	hist, err := encounter.New(y)
	if err != nil {
		t.Fatal(err)
	}

	model, err := NewModel(hist, config)
	if err != nil {
		t.Fatal(err)
	}

	return model
}

// randomParams returns a parameter value with varying entry
// probabilities and occasion effects.
func randomParams(ntime int, rng *rand.Rand) *Params {

	par := &Params{
		MeanPhi: 0.3 + 0.6*rng.Float64(),
		MeanP:   0.2 + 0.6*rng.Float64(),
		Gamma:   make([]float64, ntime),
		Epsilon: make([]float64, ntime-1),
		Sigma:   1,
	}
	for t := range par.Gamma {
		par.Gamma[t] = 0.05 + 0.9*rng.Float64()
	}
	for t := range par.Epsilon {
		par.Epsilon[t] = rng.NormFloat64()
	}

	return par
}

// bruteLogLike sums the joint probability of the latent states and
// the observations over every latent state path.
func bruteLogLike(y []uint8, phi, p, gamma []float64) float64 {

	ntime := len(y)
	var total float64
	for mask := 0; mask < 1<<uint(ntime); mask++ {

		pr := 1.0
		entered := false
		prev := 0
		for t := 0; t < ntime; t++ {
			z := (mask >> uint(t)) & 1

			var mu float64
			if t == 0 {
				mu = gamma[0]
			} else {
				mu = phi[t-1] * float64(prev)
				if !entered {
					mu += gamma[t]
				}
			}

			if z == 1 {
				pr *= mu
				entered = true
				if y[t] == 1 {
					pr *= p[t]
				} else {
					pr *= 1 - p[t]
				}
			} else {
				pr *= 1 - mu
				if y[t] == 1 {
					pr = 0
				}
			}
			prev = z
		}
		total += pr
	}

	return math.Log(total)
}

// Hand calculation for two occasions and three individuals.
func TestToy(t *testing.T) {

	y := [][]int{{1, 0}, {0, 1}, {0, 0}}
	model := newModel(t, y, nil)

	par := &Params{
		MeanPhi: 0.8,
		MeanP:   0.6,
		Gamma:   []float64{0.5, 0.5},
		Epsilon: []float64{0},
		Sigma:   1,
	}

	// chi[1] = 0.2 + 0.8 * 0.4 = 0.52
	// Individual 1: gamma1 * p * chi1
	ll1 := math.Log(0.5 * 0.6 * 0.52)
	// Individual 2: entry at 1 or 2
	ll2 := math.Log(0.5*0.4*0.8*0.6 + 0.5*0.5*0.6)
	// Individual 3: entry at 1, at 2, or never
	ll3 := math.Log(0.5*0.4*0.52 + 0.5*0.5*0.4 + 0.5*0.5)

	pr := model.Probs(par)
	for i, e := range []float64{ll1, ll2, ll3} {
		if !scalarClose(model.IndLogLike(i, pr, par.Gamma), e, 1e-12) {
			t.Errorf("individual %d: got %f, expected %f", i+1, model.IndLogLike(i, pr, par.Gamma), e)
		}
	}

	ll := model.LogLike(par)
	if !scalarClose(ll, ll1+ll2+ll3, 1e-12) {
		t.Errorf("got %f, expected %f", ll, ll1+ll2+ll3)
	}
}

func TestChi(t *testing.T) {

	rng := rand.New(rand.NewSource(3924))
	for _, ntime := range []int{2, 3, 7} {
		par := randomParams(ntime, rng)
		pr := NewProbs(4, ntime)
		pr.Set(par)

		for i := range pr.Chi {
			if pr.Chi[i][ntime-1] != 1 {
				t.Errorf("chi at the last occasion is %f", pr.Chi[i][ntime-1])
			}
			for tt := 0; tt < ntime-1; tt++ {
				phi := pr.Phi[i][tt]
				e := 1 - phi + phi*(1-par.MeanP)*pr.Chi[i][tt+1]
				if !scalarClose(pr.Chi[i][tt], e, 1e-14) {
					t.Fail()
				}
			}
		}
	}
}

func TestProbsIdempotent(t *testing.T) {

	rng := rand.New(rand.NewSource(12))
	par := randomParams(6, rng)

	pr1 := NewProbs(5, 6)
	pr1.Set(par)
	pr2 := NewProbs(5, 6)
	pr2.Set(par)
	pr2.Set(par)

	for i := 0; i < 5; i++ {
		if !floats.Equal(pr1.Phi[i], pr2.Phi[i]) || !floats.Equal(pr1.P[i], pr2.P[i]) ||
			!floats.Equal(pr1.Chi[i], pr2.Chi[i]) {
			t.Errorf("row %d differs between calls", i)
		}
	}

	// Survival is constant over individuals, with occasion effects.
	for tt, e := range par.Epsilon {
		if !scalarClose(pr1.Phi[3][tt], expit(logit(par.MeanPhi)+e), 1e-14) {
			t.Fail()
		}
	}
}

// First detection at occasions 1 and 2 exercise the smallest entry
// sums, the other rows exercise the between and after terms.
func TestBruteForce(t *testing.T) {

	y := [][]int{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{1, 1, 0, 0},
		{0, 1, 0, 1},
		{0, 0, 0, 1},
		{1, 0, 1, 0},
		{0, 0, 1, 1},
		{1, 1, 1, 1},
		{0, 0, 0, 0},
	}
	model := newModel(t, y, nil)

	rng := rand.New(rand.NewSource(5741))
	for k := 0; k < 5; k++ {
		par := randomParams(4, rng)
		pr := model.Probs(par)

		var total float64
		for i := range y {
			ll := model.IndLogLike(i, pr, par.Gamma)
			e := bruteLogLike(model.History().Row(i), pr.Phi[i], pr.P[i], par.Gamma)
			if !scalarClose(ll, e, 1e-10) {
				t.Errorf("draw %d, individual %d: got %f, expected %f", k, i, ll, e)
			}
			total += e
		}

		if !scalarClose(model.LogLike(par), total, 1e-10) {
			t.Errorf("total %f, expected %f", model.LogLike(par), total)
		}
	}
}

func TestReorder(t *testing.T) {

	y := [][]int{
		{1, 0, 1, 0, 0},
		{0, 1, 0, 0, 0},
		{0, 0, 0, 0, 1},
		{0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0},
	}

	yr := [][]int{y[3], y[5], y[0], y[4], y[2], y[1]}

	m1 := newModel(t, y, nil)
	m2 := newModel(t, yr, nil)

	rng := rand.New(rand.NewSource(88))
	for k := 0; k < 3; k++ {
		par := randomParams(5, rng)
		if !scalarClose(m1.LogLike(par), m2.LogLike(par), 1e-10) {
			t.Errorf("log-likelihood changes when individuals are reordered")
		}
	}
}

func TestConcurrent(t *testing.T) {

	rng := rand.New(rand.NewSource(441))

	var y [][]int
	for i := 0; i < 300; i++ {
		row := make([]int, 6)
		if i < 100 {
			for j := range row {
				if rng.Float64() < 0.3 {
					row[j] = 1
				}
			}
		}
		y = append(y, row)
	}

	seq := DefaultModelConfig()
	seq.Concurrent = 1000000

	con := DefaultModelConfig()
	con.Concurrent = 1
	con.Workers = 7

	m1 := newModel(t, y, seq)
	m2 := newModel(t, y, con)

	par := randomParams(6, rng)
	if m1.LogLike(par) != m2.LogLike(par) {
		t.Errorf("sequential %v, concurrent %v", m1.LogLike(par), m2.LogLike(par))
	}
}

func TestCheckPanics(t *testing.T) {

	bad := []func(par *Params){
		func(par *Params) { par.MeanPhi = 1 },
		func(par *Params) { par.MeanP = 0 },
		func(par *Params) { par.Gamma[2] = 1.2 },
		func(par *Params) { par.Epsilon[0] = math.NaN() },
		func(par *Params) { par.Sigma = 5 },
		func(par *Params) { par.Gamma = par.Gamma[0:2] },
	}

	model := newModel(t, [][]int{{1, 0, 0}, {0, 0, 0}}, nil)

	for k, f := range bad {
		par := NewParams(3, 0.5, 0.5, 0.2, 1)
		f(par)
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("case %d: expected a panic", k)
				}
			}()
			model.LogLike(par)
		}()
	}
}

func TestPackUnpack(t *testing.T) {

	rng := rand.New(rand.NewSource(7))
	par := randomParams(5, rng)
	par.Sigma = 2.5

	x := par.Pack()
	if len(x) != NumVec(5) || len(ParamNames(5)) != NumVec(5) {
		t.Fail()
	}

	q := Unpack(x)
	if !scalarClose(q.MeanPhi, par.MeanPhi, 1e-12) || !scalarClose(q.MeanP, par.MeanP, 1e-12) ||
		!scalarClose(q.Sigma, par.Sigma, 1e-12) {
		t.Fail()
	}
	if !floats.EqualApprox(q.Gamma, par.Gamma, 1e-12) || !floats.EqualApprox(q.Epsilon, par.Epsilon, 1e-12) {
		t.Fail()
	}
}

func TestNewModelErrors(t *testing.T) {

	if _, err := NewModel(nil, nil); err == nil {
		t.Errorf("expected an error for missing data")
	}

	hist, err := encounter.New([][]int{{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	config := DefaultModelConfig()
	config.SigmaFixed = 0
	if _, err := NewModel(hist, config); err == nil {
		t.Errorf("expected an error for SigmaFixed=0")
	}
}
