// Package index implements the PackageIndex capability: resolving a
// dependency requirement against a remote rock manifest. The only
// concrete implementation, githubindex.Index, resolves against a
// GitHub-hosted tree of rockspecs.
package index

import (
	"context"

	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/version"
)

// RemotePackage is the result of a successful index lookup: enough to
// locate and fetch the concrete rockspec and source for one resolved
// version, without yet downloading either.
type RemotePackage struct {
	Name        manifest.PackageName
	Version     version.PackageVersion
	Kind        lockfile.SourceKind
	RockspecURL string
	SourceURL   string
}

// PackageIndex resolves a dependency requirement to a concrete remote
// package, then downloads its rockspec text. typeFilter, when non-nil,
// restricts candidates to a single SourceKind (rockspec/src/binary/content).
type PackageIndex interface {
	Find(ctx context.Context, req manifest.PackageReq, typeFilter *lockfile.SourceKind, sink progress.Sink) (RemotePackage, error)
	FetchRockspec(ctx context.Context, pkg RemotePackage) ([]byte, error)
}
