// Package platform models the closed set of platform identifiers a rockspec
// can target, their strict partial order, positive/negative support
// assertions with propagation, and the PerPlatform<T> override container.
package platform

import (
	"os/exec"
	"runtime"
	"strings"
)

// Identifier is a platform identifier. The known set forms a strict partial
// order; Unknown carries forward-compatible identifiers the parser doesn't
// recognize.
type Identifier struct {
	known   knownID
	unknown string
}

type knownID int

const (
	unknownKind knownID = iota
	Unix
	Windows
	Win32
	Cygwin
	MacOSX
	Linux
	FreeBSD
)

var names = map[knownID]string{
	Unix:    "unix",
	Windows: "windows",
	Win32:   "win32",
	Cygwin:  "cygwin",
	MacOSX:  "macosx",
	Linux:   "linux",
	FreeBSD: "freebsd",
}

// String renders the canonical lowercase identifier name.
func (id Identifier) String() string {
	if id.known == unknownKind {
		return id.unknown
	}
	return names[id.known]
}

// IsUnknown reports whether id is a forward-compatible Unknown(string)
// identifier.
func (id Identifier) IsUnknown() bool { return id.known == unknownKind }

// Parse maps a lowercase token to a known Identifier, or wraps it as
// Unknown(string) for forward compatibility.
func Parse(s string) Identifier {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range names {
		if name == s {
			return Identifier{known: k}
		}
	}
	return Identifier{known: unknownKind, unknown: s}
}

// direct parent edges of the strict partial order:
//
//	Unix    < {Cygwin, MacOSX, Linux, FreeBSD}
//	Win32   < Windows
//
// otherwise incomparable.
var parents = map[knownID][]knownID{
	Cygwin:  {Unix},
	MacOSX:  {Unix},
	Linux:   {Unix},
	FreeBSD: {Unix},
	Windows: {Win32},
}

// Less reports whether a is strictly less than b in the partial order
// (a is a subset of b).
func Less(a, b Identifier) bool {
	if a.known == unknownKind || b.known == unknownKind {
		return false
	}
	if a.known == b.known {
		return false
	}
	visited := map[knownID]bool{}
	var walk func(k knownID) bool
	walk = func(k knownID) bool {
		if visited[k] {
			return false
		}
		visited[k] = true
		for _, p := range parents[k] {
			if p == a.known {
				return true
			}
			if walk(p) {
				return true
			}
		}
		return false
	}
	return walk(b.known)
}

// GetSubsets returns the identifiers strictly less than id, ordered
// most-specific-last: root-most ancestors first, nearest ancestors last (see
// GetExtendedPlatforms for the mirror operation).
func GetSubsets(id Identifier) []Identifier {
	var out []Identifier
	for k := range names {
		cand := Identifier{known: k}
		if Less(cand, id) {
			out = append(out, cand)
		}
	}
	sortBySpecificity(out, false)
	return out
}

// GetExtendedPlatforms returns the identifiers strictly greater than id
// (extensions of id), ordered most-specific-last.
func GetExtendedPlatforms(id Identifier) []Identifier {
	var out []Identifier
	for k := range names {
		cand := Identifier{known: k}
		if Less(id, cand) {
			out = append(out, cand)
		}
	}
	sortBySpecificity(out, true)
	return out
}

// sortBySpecificity orders ids by partial-order depth, the LEAST specific
// (closest to the universal root) first and the MOST specific last, for
// subsets (extensions==false) and extensions alike. Ties broken
// alphabetically for determinism.
func sortBySpecificity(ids []Identifier, extensions bool) {
	depth := func(id Identifier) int {
		d := 0
		cur := id
		for {
			ps := parents[cur.known]
			if len(ps) == 0 {
				break
			}
			cur = Identifier{known: ps[0]}
			d++
		}
		return d
	}
	for i := 1; i < len(ids); i++ {
		j := i
		for j > 0 {
			di, dj := depth(ids[j]), depth(ids[j-1])
			swap := false
			if extensions {
				swap = di < dj || (di == dj && ids[j].String() < ids[j-1].String())
			} else {
				swap = di < dj || (di == dj && ids[j].String() < ids[j-1].String())
			}
			if !swap {
				break
			}
			ids[j], ids[j-1] = ids[j-1], ids[j]
			j--
		}
	}
}

// Current returns the runtime-detected current platform: a pure function of
// compile-time GOOS, plus one runtime probe under windows to distinguish a
// genuine Windows host from a Cygwin environment layered on top of it.
// Never cached in mutable storage, so callers always see the real host
// platform.
func Current() Identifier {
	switch runtime.GOOS {
	case "windows":
		if isCygwin() {
			return Identifier{known: Cygwin}
		}
		return Identifier{known: Windows}
	case "darwin":
		return Identifier{known: MacOSX}
	case "linux":
		return Identifier{known: Linux}
	case "freebsd":
		return Identifier{known: FreeBSD}
	default:
		return Identifier{known: unknownKind, unknown: runtime.GOOS}
	}
}

// isCygwin probes for a Cygwin userland layered on top of a windows GOOS
// build: cygpath is Cygwin's own path-translation utility and ships only
// inside a Cygwin install, so its presence on PATH is a reliable signal.
func isCygwin() bool {
	if _, err := exec.LookPath("cygpath"); err == nil {
		return true
	}
	_, err := exec.LookPath("uname")
	return err == nil
}

// MarshalText implements encoding.TextMarshaler so Identifier keys serialize
// cleanly as map keys in manifest/lockfile JSON.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	*id = Parse(string(text))
	return nil
}

// Equal reports identifier equality, case-insensitive via the stored form.
func (id Identifier) Equal(other Identifier) bool {
	return id.String() == other.String()
}
