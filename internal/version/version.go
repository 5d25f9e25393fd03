// Package version implements the rockspec version algebra: parsing and
// comparing PackageVersion values and matching them against
// PackageVersionReq constraints. The underlying numeric comparisons are
// delegated to github.com/Masterminds/semver/v3; this package owns only the
// LuaRocks-specific surface syntax (specrev suffixes, the `~>` pessimistic
// operator, `@x.y` pins, and HTML-entity-escaped comparison operators).
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/lux-pm/lux/internal/errs"
)

// devModRevs are the non-semver module-revision markers recognized in both
// versions and requirements.
var devModRevs = map[string]bool{"dev": true, "scm": true, "git": true}

// Kind discriminates the two PackageVersion variants.
type Kind int

const (
	// KindSemVer is a version that parses as a semantic version.
	KindSemVer Kind = iota
	// KindDev is a development snapshot version (dev/scm/git).
	KindDev
)

// PackageVersion is either a semantic version with a specrev, or a
// development snapshot identified by its modrev and specrev. SemVer values
// always compare less than DevVer values.
type PackageVersion struct {
	Kind Kind

	// SemVer fields.
	Semver         *semver.Version
	ComponentCount int // how many dotted components the user wrote, 1..3

	// DevVer fields.
	ModRev string

	Specrev uint16
}

// String renders the canonical form of v, recoverable by Parse.
func (v PackageVersion) String() string {
	var body string
	switch v.Kind {
	case KindDev:
		body = v.ModRev
	default:
		parts := []string{
			strconv.FormatUint(v.Semver.Major(), 10),
			strconv.FormatUint(v.Semver.Minor(), 10),
			strconv.FormatUint(v.Semver.Patch(), 10),
		}
		n := v.ComponentCount
		if n < 1 {
			n = 1
		}
		if n > 3 {
			n = 3
		}
		body = strings.Join(parts[:n], ".")
		if pre := v.Semver.Prerelease(); pre != "" {
			body += "-" + pre
		}
	}
	return fmt.Sprintf("%s-%d", body, v.Specrev)
}

// Cmp orders v relative to other: any SemVer sorts before any DevVer;
// SemVers compare by semver precedence then by specrev; DevVers compare by
// specrev then by modrev lexicographically.
func (v PackageVersion) Cmp(other PackageVersion) int {
	if v.Kind != other.Kind {
		if v.Kind == KindSemVer {
			return -1
		}
		return 1
	}
	if v.Kind == KindSemVer {
		if c := v.Semver.Compare(other.Semver); c != 0 {
			return c
		}
		return cmpUint16(v.Specrev, other.Specrev)
	}
	if c := cmpUint16(v.Specrev, other.Specrev); c != 0 {
		return c
	}
	return strings.Compare(v.ModRev, other.ModRev)
}

func cmpUint16(a, b uint16) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Parse parses a rockspec version string, e.g. "1.4.2-1" or "scm-1".
func Parse(s string) (PackageVersion, error) {
	body, specrev := splitSpecrev(s)
	if body == "" {
		return PackageVersion{}, &errs.VersionParseError{Input: s, Err: fmt.Errorf("empty version body")}
	}

	if devModRevs[body] {
		return PackageVersion{Kind: KindDev, ModRev: body, Specrev: specrev}, nil
	}

	versionPart, prerelease := splitPrerelease(body)
	parts := strings.Split(versionPart, ".")
	for _, p := range parts {
		if p == "" {
			return PackageVersion{}, &errs.VersionParseError{Input: s, Err: fmt.Errorf("empty version component in %q", versionPart)}
		}
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			return PackageVersion{}, &errs.VersionParseError{Input: s, Err: fmt.Errorf("non-numeric version component %q", p)}
		}
	}

	componentCount := len(parts)
	if componentCount > 3 {
		excess := strings.Join(parts[3:], ".")
		parts = parts[:3]
		if prerelease == "" {
			prerelease = excess
		} else {
			prerelease = prerelease + "." + excess
		}
		componentCount = 3
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	normalized := strings.Join(parts, ".")
	if prerelease != "" {
		normalized += "-" + prerelease
	}

	sv, err := semver.NewVersion(normalized)
	if err != nil {
		return PackageVersion{}, &errs.VersionParseError{Input: s, Err: err}
	}

	return PackageVersion{
		Kind:           KindSemVer,
		Semver:         sv,
		ComponentCount: componentCount,
		Specrev:        specrev,
	}, nil
}

// splitSpecrev splits s on its last "-"; if the trailing fragment is all
// digits it is the specrev and the rest is the body, otherwise the specrev
// defaults to 1 and the whole string is the body.
func splitSpecrev(s string) (body string, specrev uint16) {
	idx := strings.LastIndexByte(s, '-')
	if idx < 0 {
		return s, 1
	}
	tail := s[idx+1:]
	if tail == "" {
		return s, 1
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return s, 1
		}
	}
	n, err := strconv.ParseUint(tail, 10, 16)
	if err != nil {
		return s, 1
	}
	return s[:idx], uint16(n)
}

// splitPrerelease separates a leading dotted numeric run from a manually
// authored prerelease tag joined by "-", e.g. "1.0.0-beta" -> ("1.0.0",
// "beta"). Absent a "-", the whole string is the numeric run.
func splitPrerelease(body string) (versionPart, prerelease string) {
	idx := strings.IndexByte(body, '-')
	if idx < 0 {
		return body, ""
	}
	return body[:idx], body[idx+1:]
}
