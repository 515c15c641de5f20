// Package main is the entry point for the sqlpager CLI tool.
package main

import (
	"os"

	"github.com/Alp4ka/sqlpager/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
