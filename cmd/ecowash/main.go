// Package main provides the ecowash command line tool. It runs the same
// correction pipeline as the server against a local recipe directory, without
// touching the calculation history.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
