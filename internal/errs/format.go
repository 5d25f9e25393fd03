package errs

import (
	"errors"
	"strings"
)

// FormatContext supplies optional extra information Format uses to tailor
// its suggestions, such as which package name a failing operation concerned.
type FormatContext struct {
	PackageName string
}

// Format renders err as a human-readable message with possible causes and
// actionable suggestions, dispatching on the concrete error type. Falls
// back to err.Error() for anything outside the taxonomy this package
// defines. ctx may be nil for generic formatting.
func Format(err error, ctx *FormatContext) string {
	if err == nil {
		return ""
	}

	var extDep *ExternalDepNotFoundError
	if errors.As(err, &extDep) {
		return formatExternalDepNotFound(extDep)
	}

	var luaVer *LuaVersionUnsupportedError
	if errors.As(err, &luaVer) {
		return formatLuaVersionUnsupported(luaVer)
	}

	var fetchFail *FetchFailureError
	if errors.As(err, &fetchFail) {
		return formatFetchFailure(fetchFail, ctx)
	}

	var patchRej *PatchRejectedError
	if errors.As(err, &patchRej) {
		return formatPatchRejected(patchRej)
	}

	var backendFail *BackendFailureError
	if errors.As(err, &backendFail) {
		return formatBackendFailure(backendFail)
	}

	var luarocksFail *LuarocksBuildError
	if errors.As(err, &luarocksFail) {
		return formatLuarocksBuildError(luarocksFail)
	}

	var notFound *PackageNotFoundError
	if errors.As(err, &notFound) {
		return formatPackageNotFound(notFound, ctx)
	}

	var rateLimit *GitHubRateLimitError
	if errors.As(err, &rateLimit) {
		return formatGitHubRateLimit(rateLimit)
	}

	return err.Error()
}

func formatExternalDepNotFound(e *ExternalDepNotFoundError) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nPossible causes:\n")
	sb.WriteString("  - The library's development headers are not installed\n")
	sb.WriteString("  - The library is installed in a non-standard location\n")
	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Install the " + e.Name + " development package for your system\n")
	sb.WriteString("  - Set " + e.Name + "_DIR (or _INCDIR/_LIBDIR) to its install prefix\n")
	return sb.String()
}

func formatLuaVersionUnsupported(e *LuaVersionUnsupportedError) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nSuggestions:\n")
	sb.WriteString("  - Configure a Lua toolchain matching " + e.Requirement + "\n")
	sb.WriteString("  - Check this package's lua dependency for the versions it supports\n")
	return sb.String()
}

func formatFetchFailure(e *FetchFailureError, ctx *FormatContext) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nPossible causes:\n")
	sb.WriteString("  - Network connectivity issue\n")
	sb.WriteString("  - The source URL has moved or no longer exists\n")
	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection and try again\n")
	if ctx != nil && ctx.PackageName != "" {
		sb.WriteString("  - Check whether " + ctx.PackageName + " has a newer rockspec available\n")
	}
	return sb.String()
}

func formatPatchRejected(e *PatchRejectedError) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nPossible causes:\n")
	sb.WriteString("  - The upstream source has diverged from what the patch expects\n")
	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Report this to the rockspec's maintainer\n")
	return sb.String()
}

func formatBackendFailure(e *BackendFailureError) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nBuild output:\n")
	sb.WriteString(e.Stdout)
	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check that the required build toolchain (" + e.Program + ") is installed\n")
	return sb.String()
}

func formatLuarocksBuildError(e *LuarocksBuildError) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nSuggestions:\n")
	sb.WriteString("  - Ensure the " + e.Backend + " build-dependency package is installed\n")
	return sb.String()
}

func formatPackageNotFound(e *PackageNotFoundError, ctx *FormatContext) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nSuggestions:\n")
	sb.WriteString("  - Check the package name for typos\n")
	sb.WriteString("  - Run a search against the registry to find the correct name\n")
	return sb.String()
}

func formatGitHubRateLimit(e *GitHubRateLimitError) string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n\nSuggestions:\n")
	sb.WriteString("  - Set GITHUB_TOKEN to raise the unauthenticated rate limit\n")
	sb.WriteString("  - Wait for the rate limit window to reset and try again\n")
	return sb.String()
}
