package main

import (
	"context"
	"errors"
	"os"

	"github.com/bluefunda/greenapi-console/form"
)

// Main function
func main() {
	ctx, cancel := setupSignalHandling(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if code, ok := signalExitCode(); ok {
		if logger != nil {
			_ = logger.Sync()
		}
		os.Exit(code)
	}

	if err != nil {
		exitWithError(err, exitCodeFor(err))
	}
}

// exitCodeFor maps command errors to POSIX exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, form.ErrValidation), errors.Is(err, errUsage):
		return ExitMisuse
	default:
		return ExitGeneralError
	}
}
