// Package main is the scrapbook service entry point.
package main

import (
	"fmt"
	"os"

	"github.com/ferntrail/scrapbook/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
