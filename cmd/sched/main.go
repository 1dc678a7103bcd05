// Command sched is a small CLI over the scheduling engine: it manages
// study tasks against the local store and syncs against a remote
// document store when one is configured.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sched: %v\n", err)
		os.Exit(1)
	}
}
