// Package main is the entry point for the tunecast application.
package main

import (
	"os"

	"github.com/jmylchreest/tunecast/cmd/tunecast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
