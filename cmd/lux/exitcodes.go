package main

import "os"

// Exit codes for different error types. These enable scripts to
// distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitGeneral indicates a general error.
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error.
	ExitUsage = 2

	// ExitPackageNotFound indicates a requested package could not be resolved.
	ExitPackageNotFound = 3

	// ExitNetwork indicates a network error while contacting the registry.
	ExitNetwork = 4

	// ExitInstallFailed indicates the build pipeline failed.
	ExitInstallFailed = 5

	// ExitCancelled indicates the operation was cancelled via SIGINT/SIGTERM.
	ExitCancelled = 6
)

// exitWithCode exits with the specified exit code.
func exitWithCode(code int) {
	os.Exit(code)
}
