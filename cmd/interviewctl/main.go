// Package main is the interviewctl operator CLI.
package main

import (
	"os"

	"github.com/aura-interview/backend/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
