// jsfit simulates capture-recapture data, fits Jolly-Seber models
// and summarizes the derived population quantities.
//
// Usage:
//
//	jsfit simulate -o hist.csv
//	jsfit fit hist.csv --augment 500 --draws 1000 --db draws.db
//	jsfit summary --db draws.db --run <run>
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jsfit:", err)
		os.Exit(1)
	}
}
