// Command eslog writes, reads and manages day-bucketed logs in an
// Elasticsearch-compatible document store, and can run an in-memory store
// for local development.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
