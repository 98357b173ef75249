package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	ctx := context.Background()

	// Pass in the command line arguments, environment lookup and standard output
	// so run can be tested without relying on the process state.
	if err := run(ctx, os.Args, os.Getenv, os.Stdout); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
