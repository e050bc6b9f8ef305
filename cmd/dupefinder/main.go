package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dupefinder/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates usage and configuration problems from scan failures so
// scripts can tell them apart.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, services.ErrCancelled):
		return 130
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return 2
	default:
		return 1
	}
}
