// Package resolver turns a set of requested dependency constraints into a
// stream of install-spec records: for each reachable requirement, either a
// pre-resolved lockfile hit or a freshly downloaded rockspec, deduplicated
// by LocalPackageId. It never touches the network directly; it drives an
// injected index.PackageIndex and manifest.LuaTableEvaluator.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lux-pm/lux/internal/index"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/platform"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/version"
)

// BuildBehavior controls whether an already-installed rock satisfying a
// requirement may be reused or must be re-resolved and rebuilt.
type BuildBehavior int

const (
	NoForce BuildBehavior = iota
	Force
)

// Request is one seed entry for Resolve: a requirement plus the behavior
// that applies to it and everything reached through it.
type Request struct {
	Behavior BuildBehavior
	Req      manifest.PackageReq
}

// InstallSpec is one emitted resolution: either a pointer at an
// already-installed rock (PreResolved) or a freshly downloaded rockspec
// ready for the build pipeline.
type InstallSpec struct {
	ID          lockfile.LocalPackageId
	Requirement manifest.PackageReq
	Behavior    BuildBehavior
	Version     version.PackageVersion
	Rockspec    []byte
	Manifest    *manifest.ValidatedManifest
	PreResolved bool
}

// Resolver holds the collaborators Resolve needs: a remote index to find
// and download rockspecs, a Lua table evaluator to decode them, the
// lockfile to consult for pre-resolved hits, and a scratch directory to
// stage downloaded rockspec text (Eval takes a path, not bytes).
type Resolver struct {
	Index      index.PackageIndex
	Evaluator  manifest.LuaTableEvaluator
	Lock       *lockfile.LocalPackageLock
	ScratchDir string
	Sink       progress.Sink
}

// New builds a Resolver from its collaborators.
func New(idx index.PackageIndex, evaluator manifest.LuaTableEvaluator, lock *lockfile.LocalPackageLock, scratchDir string, sink progress.Sink) *Resolver {
	return &Resolver{Index: idx, Evaluator: evaluator, Lock: lock, ScratchDir: scratchDir, Sink: sink}
}

// Resolve drains requests (and everything transitively reached through
// them) into a slice of InstallSpec records, each id emitted exactly once.
//
// Per requirement: consult the lockfile first; a matching rock under
// NoForce is emitted pre-resolved and its declared dependencies are still
// enqueued for traversal. Otherwise the PackageIndex finds a concrete
// package, its rockspec is downloaded and evaluated, an install-spec is
// emitted, and its current-platform dependencies are enqueued. A
// LocalPackageId dedup map is the single point of synchronization the
// resolver would need if probes ran concurrently; network calls here are
// issued sequentially, which already satisfies the "emitted exactly once,
// order unconstrained" contract without that complexity.
//
// The first resolution failure is treated as fatal for the whole queue.
func (r *Resolver) Resolve(ctx context.Context, requests []Request) ([]InstallSpec, error) {
	queue := append([]Request(nil), requests...)
	seen := map[lockfile.LocalPackageId]bool{}
	var results []InstallSpec

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := queue[0]
		queue = queue[1:]

		if pkg, ok := r.Lock.HasRock(req.Req.Name, req.Req.Req, nil); ok && req.Behavior == NoForce {
			id := pkg.Id()
			if seen[id] {
				continue
			}
			seen[id] = true
			results = append(results, InstallSpec{
				ID:          id,
				Requirement: req.Req,
				Behavior:    req.Behavior,
				Version:     pkg.Spec.Version,
				PreResolved: true,
			})
			queue = append(queue, r.depRequests(pkg, req.Behavior)...)
			continue
		}

		remote, err := r.Index.Find(ctx, req.Req, nil, r.Sink)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", req.Req.Req.String(), err)
		}

		id := lockfile.NewLocalPackageId(remote.Name, remote.Version, false, req.Req.Req.String())
		if seen[id] {
			continue
		}
		seen[id] = true

		rockspecBytes, err := r.Index.FetchRockspec(ctx, remote)
		if err != nil {
			return nil, fmt.Errorf("fetch rockspec for %s: %w", req.Req.Req.String(), err)
		}

		manifestTable, err := r.evalRockspec(remote, rockspecBytes)
		if err != nil {
			return nil, fmt.Errorf("evaluate rockspec for %s: %w", req.Req.Req.String(), err)
		}

		results = append(results, InstallSpec{
			ID:          id,
			Requirement: req.Req,
			Behavior:    req.Behavior,
			Version:     remote.Version,
			Rockspec:    rockspecBytes,
			Manifest:    manifestTable,
			PreResolved: false,
		})

		for _, dep := range manifestTable.Dependencies.Get(platform.Current()) {
			queue = append(queue, Request{Behavior: req.Behavior, Req: dep})
		}
	}

	return results, nil
}

// depRequests turns an installed rock's recorded dependency ids back into
// requests, so a pre-resolved hit still has its subtree traversed.
func (r *Resolver) depRequests(pkg lockfile.LocalPackage, behavior BuildBehavior) []Request {
	var out []Request
	for _, depID := range pkg.Spec.Deps {
		dep, ok := r.Lock.Get(depID)
		if !ok {
			continue
		}
		depReq, err := version.ParseReq(dep.Spec.Constraint)
		if err != nil {
			continue
		}
		out = append(out, Request{
			Behavior: behavior,
			Req:      manifest.PackageReq{Name: dep.Spec.Name, Req: depReq},
		})
	}
	return out
}

// evalRockspec stages the downloaded rockspec text to a scratch file (Eval
// takes a path, matching the out-of-scope Lua sandbox's actual interface),
// then builds and validates a ValidatedManifest from the decoded table.
func (r *Resolver) evalRockspec(pkg index.RemotePackage, rockspecBytes []byte) (*manifest.ValidatedManifest, error) {
	stagePath := filepath.Join(r.ScratchDir, fmt.Sprintf("%s-%s.rockspec", pkg.Name, pkg.Version.String()))
	if err := os.MkdirAll(r.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	if err := os.WriteFile(stagePath, rockspecBytes, 0o644); err != nil {
		return nil, fmt.Errorf("stage rockspec: %w", err)
	}
	defer os.Remove(stagePath)

	table, err := r.Evaluator.Eval(stagePath)
	if err != nil {
		return nil, err
	}
	return manifest.BuildRockspec(stagePath, table)
}
