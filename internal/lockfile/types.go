// Package lockfile implements the persistent graph of locally installed
// packages: fingerprinting, entrypoint derivation, sync-spec diffing, and a
// scoped read/write guard over the on-disk JSON document. It never touches
// the network or a build backend; callers supply already-resolved
// LocalPackage values.
package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/lux-pm/lux/internal/integrity"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/version"
)

// LocalPackageId is a deterministic 64-hex-character fingerprint of
// (name, version, pinned, constraint). Two installs with identical fields
// share an id; differing pin or constraint yields distinct ids even at the
// same version.
type LocalPackageId string

// NewLocalPackageId computes the fingerprint for the given fields. constraint
// may be empty, meaning "no specific requirement recorded".
func NewLocalPackageId(name manifest.PackageName, v version.PackageVersion, pinned bool, constraint string) LocalPackageId {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%v\x00%s", name, v.String(), pinned, constraint)
	return LocalPackageId(hex.EncodeToString(h.Sum(nil)))
}

// SourceKind discriminates how a LocalPackage's contents were obtained,
// used as the optional filter argument to HasRock.
type SourceKind int

const (
	SourceRockspec SourceKind = iota
	SourceSrc
	SourceBinary
	SourceContent
)

// RemoteSource records where the package's rockspec was found.
type RemoteSource struct {
	Kind SourceKind
	Name string // index/repository identifier the rockspec came from
}

// RemoteSourceUrl optionally records the exact URL a binary or content
// rock was fetched from, when the install bypassed normal resolution.
type RemoteSourceUrl struct {
	URL string
}

// Hashes records the integrity of the two byte streams a resolved install
// is built from.
type Hashes struct {
	Rockspec integrity.Integrity
	Source   integrity.Integrity
}

// LocalPackageSpec is the identity-bearing half of a LocalPackage: the
// fields NewLocalPackageId hashes, plus the dependency edges and binaries
// produced by the build.
type LocalPackageSpec struct {
	Name       manifest.PackageName
	Version    version.PackageVersion
	Pinned     bool
	Constraint string // the version requirement string this install satisfies, if any
	Deps       []LocalPackageId
	Binaries   []string
}

// LocalPackage is one resolved, installed rock as recorded in a lockfile.
type LocalPackage struct {
	Spec       LocalPackageSpec
	Source     RemoteSource
	SourceURL  *RemoteSourceUrl
	Hashes     Hashes
}

// Id recomputes this package's LocalPackageId from its current spec fields.
func (p LocalPackage) Id() LocalPackageId {
	return NewLocalPackageId(p.Spec.Name, p.Spec.Version, p.Spec.Pinned, p.Spec.Constraint)
}

// LocalPackageLock is one self-contained bucket of installed rocks: an
// ordered map keyed by LocalPackageId plus the derived entrypoint set.
// ProjectLockfile embeds three of these (dependencies, test_dependencies,
// build_dependencies); the process-wide install-tree lockfile is a single
// unnamed instance.
type LocalPackageLock struct {
	Rocks       map[LocalPackageId]LocalPackage
	order       []LocalPackageId // insertion order, preserved across flushes
	Entrypoints []LocalPackageId
}

func newLocalPackageLock() *LocalPackageLock {
	return &LocalPackageLock{Rocks: map[LocalPackageId]LocalPackage{}}
}

// NewLocalPackageLock builds an empty, in-memory lock bucket. Most callers
// reach a LocalPackageLock through a Guard (OpenLockfile/OpenProjectLockfile);
// this constructor is for collaborators, like the resolver, that need a
// lockfile-shaped lookup surface without file-backed persistence.
func NewLocalPackageLock() *LocalPackageLock {
	return newLocalPackageLock()
}

// Get returns the package with the given id, if present.
func (l *LocalPackageLock) Get(id LocalPackageId) (LocalPackage, bool) {
	pkg, ok := l.Rocks[id]
	return pkg, ok
}

// List groups installed packages by name.
func (l *LocalPackageLock) List() map[manifest.PackageName][]LocalPackage {
	result := map[manifest.PackageName][]LocalPackage{}
	for _, id := range l.order {
		pkg, ok := l.Rocks[id]
		if !ok {
			continue
		}
		result[pkg.Spec.Name] = append(result[pkg.Spec.Name], pkg)
	}
	return result
}

// HasRock returns the latest installed package matching req, reverse
// iterating by version so the newest satisfying install wins. filter, when
// non-nil, restricts the search to a single SourceKind.
func (l *LocalPackageLock) HasRock(name manifest.PackageName, req version.PackageVersionReq, filter *SourceKind) (LocalPackage, bool) {
	var candidates []LocalPackage
	for _, id := range l.order {
		pkg, ok := l.Rocks[id]
		if !ok || pkg.Spec.Name != name {
			continue
		}
		if filter != nil && pkg.Source.Kind != *filter {
			continue
		}
		if !req.Matches(pkg.Spec.Version) {
			continue
		}
		candidates = append(candidates, pkg)
	}
	if len(candidates) == 0 {
		return LocalPackage{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Spec.Version.Cmp(candidates[j].Spec.Version) < 0
	})
	return candidates[len(candidates)-1], true
}

// HasRockWithEqualConstraint reports whether an installed package already
// satisfies req with the exact same constraint string, used to decide
// whether Sync needs to add a new entry at all.
func (l *LocalPackageLock) HasRockWithEqualConstraint(name manifest.PackageName, constraint string) (LocalPackage, bool) {
	for _, id := range l.order {
		pkg, ok := l.Rocks[id]
		if ok && pkg.Spec.Name == name && pkg.Spec.Constraint == constraint {
			return pkg, true
		}
	}
	return LocalPackage{}, false
}

// SyncSpec is the result of diffing a requirement set against the
// currently installed packages.
type SyncSpec struct {
	ToAdd    []manifest.PackageReq
	ToRemove []LocalPackageId
}
