// Package errs defines the typed error taxonomy the core install pipeline
// surfaces. Every component wraps its failures in one of these types rather
// than returning bare fmt.Errorf values, so a caller can errors.As its way
// to a specific recovery decision.
package errs

import (
	"fmt"
	"time"
)

// ManifestParseError reports a TOML/rockspec syntax or schema violation.
type ManifestParseError struct {
	Path   string
	Line   int // 0 when unavailable
	Column int // 0 when unavailable
	Err    error
}

func (e *ManifestParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: manifest parse error: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: manifest parse error: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error { return e.Err }

// ManifestValidationError reports a structurally valid manifest that
// violates a semantic invariant (missing source, reserved copy_directory
// name, conflicting tag/branch, etc).
type ManifestValidationError struct {
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("manifest validation: %s", e.Message)
}

// VersionParseError reports a version string that failed to parse.
type VersionParseError struct {
	Input string
	Err   error
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Input, e.Err)
}

func (e *VersionParseError) Unwrap() error { return e.Err }

// VersionReqParseError reports a version requirement string that failed to
// parse.
type VersionReqParseError struct {
	Input string
	Err   error
}

func (e *VersionReqParseError) Error() string {
	return fmt.Sprintf("invalid version requirement %q: %v", e.Input, e.Err)
}

func (e *VersionReqParseError) Unwrap() error { return e.Err }

// PlatformConflictError reports contradictory supported-platform entries,
// e.g. the same identifier asserted both positively and negatively.
type PlatformConflictError struct {
	Identifier string
}

func (e *PlatformConflictError) Error() string {
	return fmt.Sprintf("platform %q is asserted both supported and unsupported", e.Identifier)
}

// LuaVersionUnsupportedError reports that the configured Lua version does
// not satisfy the manifest's implicit `lua <req>` dependency.
type LuaVersionUnsupportedError struct {
	Configured  string
	Requirement string
}

func (e *LuaVersionUnsupportedError) Error() string {
	return fmt.Sprintf("configured lua %s does not satisfy required %s", e.Configured, e.Requirement)
}

// ExternalDepNotFoundError reports that pkg-config and the fallback search
// both failed to locate an external dependency.
type ExternalDepNotFoundError struct {
	Name string // uppercased dependency name, e.g. "OPENSSL"
}

func (e *ExternalDepNotFoundError) Error() string {
	return fmt.Sprintf(
		"external dependency %s not found; set %s_DIR, %s_INCDIR, or %s_LIBDIR",
		e.Name, e.Name, e.Name, e.Name,
	)
}

// FetchFailureError reports a network, VCS, or filesystem I/O failure while
// retrieving a source. The core retries once via the packed-archive
// fallback before surfacing this as fatal.
type FetchFailureError struct {
	URL string
	Err error
}

func (e *FetchFailureError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchFailureError) Unwrap() error { return e.Err }

// UnsupportedVCSError reports a source URL scheme for a VCS lux does not
// support (cvs, hg, sscm, svn).
type UnsupportedVCSError struct {
	Scheme string
}

func (e *UnsupportedVCSError) Error() string {
	return fmt.Sprintf("unsupported VCS scheme %q", e.Scheme)
}

// SourceIntegrityMismatchError reports that fetched bytes disagree with a
// manifest-declared integrity value. Never auto-corrected.
type SourceIntegrityMismatchError struct {
	Expected string
	Actual   string
}

func (e *SourceIntegrityMismatchError) Error() string {
	return fmt.Sprintf("source integrity mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// PatchRejectedError reports a unified-diff hunk that failed to apply.
type PatchRejectedError struct {
	File string
	Err  error
}

func (e *PatchRejectedError) Error() string {
	return fmt.Sprintf("patch rejected for %s: %v", e.File, e.Err)
}

func (e *PatchRejectedError) Unwrap() error { return e.Err }

// BackendFailureError reports a build backend subprocess that exited
// non-zero. Carries the exit status and the captured output for
// diagnostics; the backends capture stdout and stderr as one combined
// stream and store that same text in both Stdout and Stderr.
type BackendFailureError struct {
	Backend  string
	Program  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("%s backend command %q exited %d: %v", e.Backend, e.Program, e.ExitCode, e.Err)
}

func (e *BackendFailureError) Unwrap() error { return e.Err }

// LockfileIntegrityMismatchError reports that an installed package's hashes
// disagree with the lockfile's recorded hashes during sync.
type LockfileIntegrityMismatchError struct {
	Name             string
	Version          string
	RockspecMismatch bool
	SourceMismatch   bool
}

func (e *LockfileIntegrityMismatchError) Error() string {
	return fmt.Sprintf("lockfile integrity mismatch for %s %s (rockspec=%v source=%v)",
		e.Name, e.Version, e.RockspecMismatch, e.SourceMismatch)
}

// PackageNotFoundError reports that the remote index has no package
// matching a requirement.
type PackageNotFoundError struct {
	Requirement string
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("no package found matching %q", e.Requirement)
}

// LuarocksBuildError reports a failure from the named external LuaRocks
// build backend.
type LuarocksBuildError struct {
	Backend string
	Err     error
}

func (e *LuarocksBuildError) Error() string {
	return fmt.Sprintf("luarocks build backend %q failed: %v", e.Backend, e.Err)
}

func (e *LuarocksBuildError) Unwrap() error { return e.Err }

// GitHubRateLimitError reports that the GitHub-backed package index hit the
// API rate limit while listing tags or fetching rockspec contents.
type GitHubRateLimitError struct {
	Limit         int
	Remaining     int
	ResetTime     time.Time
	Authenticated bool
	Err           error
}

func (e *GitHubRateLimitError) Error() string {
	return fmt.Sprintf(
		"GitHub API rate limit exceeded (%d/%d remaining, resets %s, authenticated=%v): %v",
		e.Remaining, e.Limit, e.ResetTime.Format(time.RFC3339), e.Authenticated, e.Err,
	)
}

func (e *GitHubRateLimitError) Unwrap() error { return e.Err }
