// Command filmfluent parses subtitle files, analyzes their vocabulary and
// optionally stores the results or queues files for the worker.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
