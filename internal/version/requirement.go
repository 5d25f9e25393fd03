package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/lux-pm/lux/internal/errs"
)

// ReqKind discriminates the three PackageVersionReq variants.
type ReqKind int

const (
	ReqSemVer ReqKind = iota
	ReqDev
	ReqAny
)

// PackageVersionReq matches PackageVersion values against a dependency
// constraint string.
type PackageVersionReq struct {
	Kind       ReqKind
	Constraint *semver.Constraints
	DevName    string
	Raw        string
}

// IsAny reports whether req matches every version unconditionally.
func (req PackageVersionReq) IsAny() bool { return req.Kind == ReqAny }

// Matches reports whether v satisfies req. SemVer requirements never match
// DevVer versions and vice versa.
func (req PackageVersionReq) Matches(v PackageVersion) bool {
	switch req.Kind {
	case ReqAny:
		return true
	case ReqDev:
		return v.Kind == KindDev && v.ModRev == req.DevName
	default:
		return v.Kind == KindSemVer && req.Constraint.Check(v.Semver)
	}
}

// String renders the original requirement text.
func (req PackageVersionReq) String() string { return req.Raw }

var htmlEntities = map[string]string{
	"&lt;":     "<",
	"&gt;":     ">",
	"&equals;": "=",
}

// ParseReq parses a dependency version requirement such as "~> 1.4",
// ">= 1.0, < 2.0", "@1.2", "scm", or "" (Any).
func ParseReq(s string) (PackageVersionReq, error) {
	raw := s
	decoded := s
	for entity, lit := range htmlEntities {
		decoded = strings.ReplaceAll(decoded, entity, lit)
	}

	joined := joinSpecrevFragments(decoded)

	trimmed := strings.TrimSpace(joined)
	if trimmed == "" {
		return PackageVersionReq{Kind: ReqAny, Raw: raw}, nil
	}

	if devName, ok := asDevWord(trimmed); ok {
		return PackageVersionReq{Kind: ReqDev, DevName: devName, Raw: raw}, nil
	}

	fragments := strings.Split(joined, ",")
	normalized := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		nf, err := normalizeFragment(frag)
		if err != nil {
			return PackageVersionReq{}, &errs.VersionReqParseError{Input: raw, Err: err}
		}
		normalized = append(normalized, nf)
	}

	constraintStr := strings.Join(normalized, ",")
	c, err := semver.NewConstraint(constraintStr)
	if err != nil {
		return PackageVersionReq{}, &errs.VersionReqParseError{Input: raw, Err: err}
	}

	return PackageVersionReq{Kind: ReqSemVer, Constraint: c, Raw: raw}, nil
}

// joinSpecrevFragments strips each comma-separated fragment's own trailing
// "-N" specrev suffix, e.g. ">1-1,<1.2-2" -> ">1,<1.2".
func joinSpecrevFragments(s string) string {
	fragments := strings.Split(s, ",")
	for i, frag := range fragments {
		trimmed := strings.TrimSpace(frag)
		if idx := strings.LastIndexByte(trimmed, '-'); idx >= 0 {
			tail := trimmed[idx+1:]
			if tail != "" && isAllDigits(tail) {
				trimmed = trimmed[:idx]
			}
		}
		fragments[i] = trimmed
	}
	return strings.Join(fragments, ",")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// asDevWord reports whether trimmed, once a leading "==" or "=" is
// stripped, is exactly one of the dev modrev words.
func asDevWord(trimmed string) (string, bool) {
	candidate := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(trimmed, "=="), "="))
	if devModRevs[candidate] {
		return candidate, true
	}
	return "", false
}

// normalizeFragment rewrites a single comma-separated constraint fragment:
// "==" becomes "=", "~> x" expands to an explicit ">= lo, < hi" pair, and
// "@x.y" becomes an exact pin "= x.y.0", and any other numeric operand of up
// to three components is zero-padded to three (">1" becomes ">1.0.0").
func normalizeFragment(frag string) (string, error) {
	f := strings.TrimSpace(frag)
	f = strings.ReplaceAll(f, "==", "=")

	switch {
	case strings.HasPrefix(f, "~>"):
		return expandPessimistic(strings.TrimSpace(f[2:]))
	case strings.HasPrefix(f, "@"):
		ver := strings.TrimSpace(f[1:])
		padded, err := padVersion(ver)
		if err != nil {
			return "", err
		}
		return "=" + padded, nil
	default:
		// Padding keeps the semver library from reading a partial operand
		// as a range: unpadded, ">1" would reject 1.1.0.
		i := strings.IndexAny(f, "0123456789")
		if i < 0 || strings.Count(f[i:], ".") > 2 {
			return f, nil
		}
		if padded, err := padVersion(f[i:]); err == nil {
			return f[:i] + padded, nil
		}
		return f, nil
	}
}

// expandPessimistic implements the `~>` operator: given N dotted
// components, the lower bound is the version itself (zero-padded to three
// components) and the upper bound increments the last given component,
// leaving earlier components untouched.
func expandPessimistic(ver string) (string, error) {
	parts := strings.Split(ver, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("empty ~> operand")
	}
	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return "", fmt.Errorf("non-numeric ~> component %q", p)
		}
		nums[i] = n
	}

	lowerParts := append([]string{}, parts...)
	for len(lowerParts) < 3 {
		lowerParts = append(lowerParts, "0")
	}
	lower := strings.Join(lowerParts, ".")

	upperNums := append([]uint64{}, nums...)
	upperNums[len(upperNums)-1]++
	upperParts := make([]string, len(upperNums))
	for i, n := range upperNums {
		upperParts[i] = strconv.FormatUint(n, 10)
	}
	for len(upperParts) < 3 {
		upperParts = append(upperParts, "0")
	}
	upper := strings.Join(upperParts, ".")

	return fmt.Sprintf(">= %s, < %s", lower, upper), nil
}

// padVersion zero-pads a dotted numeric version string to three components.
func padVersion(ver string) (string, error) {
	parts := strings.Split(ver, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("empty @ operand")
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			return "", fmt.Errorf("non-numeric @ component %q", p)
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts[:3], "."), nil
}
