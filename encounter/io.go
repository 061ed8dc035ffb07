package encounter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rlugojr/example-models/statmodel"
)

// ReadCSV reads encounter histories from CSV text, one row per
// individual and one column per occasion.  If header is true, the
// first record names the occasions and is skipped.
func ReadCSV(r io.Reader, header bool) (*History, error) {

	rd := csv.NewReader(r)
	rd.TrimLeadingSpace = true
	rd.FieldsPerRecord = -1

	if header {
		if _, err := rd.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmpty
			}
			return nil, fmt.Errorf("encounter: reading header: %w", err)
		}
	}

	var y [][]int
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("encounter: reading CSV: %w", err)
		}

		row := make([]int, len(rec))
		for j, f := range rec {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, occasion %d has value %q",
					ErrNotBinary, len(y)+1, j+1, f)
			}
			row[j] = v
		}
		y = append(y, row)
	}

	return New(y)
}

// WriteCSV writes the histories as CSV text with a header naming the
// occasions y1, y2, ...
func (h *History) WriteCSV(w io.Writer) error {

	wr := csv.NewWriter(w)

	rec := make([]string, h.ntime)
	for t := range rec {
		rec[t] = fmt.Sprintf("y%d", t+1)
	}
	if err := wr.Write(rec); err != nil {
		return err
	}

	for _, r := range h.y {
		for t, v := range r {
			rec[t] = strconv.Itoa(int(v))
		}
		if err := wr.Write(rec); err != nil {
			return err
		}
	}

	wr.Flush()
	return wr.Error()
}

// FromDataset returns the encounter histories held in a column
// dataset.  Each name in occasions identifies the column of
// detections for one occasion, in temporal order.
func FromDataset(ds statmodel.Dataset, occasions []string) (*History, error) {

	pos := make(map[string]int)
	for j, na := range ds.Names() {
		pos[na] = j
	}

	data := ds.Data()
	var cols [][]statmodel.Dtype
	for _, na := range occasions {
		j, ok := pos[na]
		if !ok {
			return nil, fmt.Errorf("encounter: occasion variable '%s' not found in dataset", na)
		}
		cols = append(cols, data[j])
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: found 0", ErrTooFewOccasions)
	}

	y := make([][]int, len(cols[0]))
	for i := range y {
		y[i] = make([]int, len(cols))
		for t, c := range cols {
			switch c[i] {
			case 0:
			case 1:
				y[i][t] = 1
			default:
				return nil, fmt.Errorf("%w: row %d, occasion '%s' has value %v",
					ErrNotBinary, i+1, occasions[t], c[i])
			}
		}
	}

	return New(y)
}
