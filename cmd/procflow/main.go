// Command procflow runs the process orchestration engine: a REST server
// with the background job scheduler, or a one-shot workflow run.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
