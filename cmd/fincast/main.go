package main

import (
	"fmt"
	"os"

	"fincast/internal/cli"
	apperrors "fincast/internal/errors"
)

// Exit codes
const (
	exitError        = 1
	exitMissingInput = 2
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if apperrors.IsMissingInput(err) {
			os.Exit(exitMissingInput)
		}
		os.Exit(exitError)
	}
}
