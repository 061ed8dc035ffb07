package drawstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "draws.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRoundTrip(t *testing.T) {

	ctx := context.Background()
	store := openTemp(t)

	names := []string{"psi", "Nsuper", "N[1]"}
	rows := [][]float64{
		{0.5, 120, 40},
		{0.25, 131, 38},
		{0.75, 99, 41},
	}

	if err := store.Write(ctx, "b", names, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, "a", names[0:1], [][]float64{{1}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	gnames, grows, err := store.Read(ctx, "b")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(gnames) != len(names) || len(grows) != len(rows) {
		t.Fatalf("got %d names and %d draws", len(gnames), len(grows))
	}
	for j := range names {
		if gnames[j] != names[j] {
			t.Errorf("name %d: got %s, expected %s", j, gnames[j], names[j])
		}
	}
	for k := range rows {
		if !floats.Equal(grows[k], rows[k]) {
			t.Errorf("draw %d: got %v, expected %v", k, grows[k], rows[k])
		}
	}

	runs, err := store.Runs(ctx)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0] != "a" || runs[1] != "b" {
		t.Errorf("runs=%v", runs)
	}

	cols := Columns(grows)
	if !floats.Equal(cols[1], []float64{120, 131, 99}) {
		t.Errorf("column 1 is %v", cols[1])
	}
}

func TestReplaceRun(t *testing.T) {

	ctx := context.Background()
	store := openTemp(t)

	if err := store.Write(ctx, "r", []string{"x"}, [][]float64{{1}, {2}, {3}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, "r", []string{"x"}, [][]float64{{4}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, rows, err := store.Read(ctx, "r")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != 4 {
		t.Errorf("rows=%v", rows)
	}
}

func TestErrors(t *testing.T) {

	ctx := context.Background()
	store := openTemp(t)

	if _, _, err := store.Read(ctx, "missing"); !errors.Is(err, ErrNoRun) {
		t.Errorf("expected ErrNoRun, got %v", err)
	}

	if err := store.Write(ctx, "r", []string{"x", "y"}, [][]float64{{1}}); err == nil {
		t.Errorf("expected an error for a short draw")
	}

	if _, err := Open(ctx, ""); err == nil {
		t.Errorf("expected an error for an empty path")
	}
}

func TestReopen(t *testing.T) {

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "draws.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Write(ctx, "r", []string{"x"}, [][]float64{{3.5}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	_, rows, err := store.Read(ctx, "r")
	if err != nil || len(rows) != 1 || rows[0][0] != 3.5 {
		t.Errorf("rows=%v, err=%v", rows, err)
	}
}
