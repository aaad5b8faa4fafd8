// Command msmcount counts state-to-state transitions on every rank of a run
// and sums them into one sparse matrix on the coordinator.
//
//	msmcount run --config rank1.yaml
//	msmcount simulate --ranks 4 --num-states 50 --length 10000 --seed 7
//	msmcount show --store /var/lib/msmcount [run-id]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "msmcount:", err)
		os.Exit(1)
	}
}
