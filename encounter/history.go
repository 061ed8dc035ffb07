// Package encounter holds individual capture (encounter) histories for
// capture-recapture analysis.
//
// A History is an M x T binary matrix: one row per individual and one
// column per sampling occasion, with a 1 where the individual was
// detected.  Rows may be padded with all-zero pseudo-individuals (data
// augmentation) so that the number of rows bounds the size of the
// superpopulation.
package encounter

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned when a history has no individuals.
	ErrEmpty = errors.New("encounter: no individuals")

	// ErrTooFewOccasions is returned when there are fewer than two occasions.
	ErrTooFewOccasions = errors.New("encounter: at least two occasions are required")

	// ErrRagged is returned when the rows have different lengths.
	ErrRagged = errors.New("encounter: rows have different numbers of occasions")

	// ErrNotBinary is returned when an entry is not 0 or 1.
	ErrNotBinary = errors.New("encounter: entries must be 0 or 1")
)

// History is an immutable collection of encounter histories.
type History struct {

	// y[i][t] is 1 if individual i was detected at occasion t.
	y [][]uint8

	// Number of occasions
	ntime int

	// Number of rows added by Augment
	naug int
}

// New returns a History for the given M x T matrix of detections.
// The data are copied.
func New(y [][]int) (*History, error) {

	if len(y) == 0 {
		return nil, ErrEmpty
	}

	ntime := len(y[0])
	if ntime < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrTooFewOccasions, ntime)
	}

	rows := makeByteArray(len(y), ntime)
	for i, r := range y {
		if len(r) != ntime {
			return nil, fmt.Errorf("%w: row %d has %d occasions, expected %d",
				ErrRagged, i+1, len(r), ntime)
		}
		for t, v := range r {
			switch v {
			case 0:
			case 1:
				rows[i][t] = 1
			default:
				return nil, fmt.Errorf("%w: row %d, occasion %d has value %d",
					ErrNotBinary, i+1, t+1, v)
			}
		}
	}

	return &History{
		y:     rows,
		ntime: ntime,
	}, nil
}

// NumInd returns the number of individuals (rows), including
// augmented pseudo-individuals.
func (h *History) NumInd() int {
	return len(h.y)
}

// NumOccasions returns the number of sampling occasions.
func (h *History) NumOccasions() int {
	return h.ntime
}

// NumAugmented returns the number of rows added by Augment.
func (h *History) NumAugmented() int {
	return h.naug
}

// NumDetected returns the number of individuals detected at least once.
func (h *History) NumDetected() int {
	var n int
	for _, r := range h.y {
		for _, v := range r {
			if v == 1 {
				n++
				break
			}
		}
	}
	return n
}

// At returns the detection indicator for individual i at occasion t,
// both zero-based.
func (h *History) At(i, t int) uint8 {
	return h.y[i][t]
}

// Row returns the encounter history of individual i (zero-based).
// The returned slice must not be modified.
func (h *History) Row(i int) []uint8 {
	return h.y[i]
}

// Captures returns the number of individuals detected at each occasion.
func (h *History) Captures() []int {
	c := make([]int, h.ntime)
	for _, r := range h.y {
		for t, v := range r {
			c[t] += int(v)
		}
	}
	return c
}

// Augment returns a new History with nz all-zero pseudo-individuals
// appended to the rows of h.  The rows of h are shared with the
// returned value.
func (h *History) Augment(nz int) *History {

	if nz < 0 {
		msg := fmt.Sprintf("Augment: the number of pseudo-individuals must be non-negative, got %d\n", nz)
		panic(msg)
	}

	y := make([][]uint8, len(h.y), len(h.y)+nz)
	copy(y, h.y)
	y = append(y, makeByteArray(nz, h.ntime)...)

	return &History{
		y:     y,
		ntime: h.ntime,
		naug:  h.naug + nz,
	}
}

// Bounds contains the first and last detection occasions of each
// individual.  Occasions are numbered from 1, a value of 0 means the
// individual was never detected.
type Bounds struct {
	First []int
	Last  []int
}

// Bounds returns the first and last occasions at which each
// individual was detected.
func (h *History) Bounds() *Bounds {

	b := &Bounds{
		First: make([]int, len(h.y)),
		Last:  make([]int, len(h.y)),
	}

	for i, r := range h.y {
		for t, v := range r {
			if v == 0 {
				continue
			}
			if b.First[i] == 0 {
				b.First[i] = t + 1
			}
			b.Last[i] = t + 1
		}
	}

	return b
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
