package functional

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lux-pm/lux/internal/fetch"
	"github.com/lux-pm/lux/internal/index"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/version"
)

// fakeRemote pairs one index.RemotePackage with the opaque token its
// rockspec bytes carry, so fakeEvaluator can look the decoded table back up
// without caring what scratch path the resolver staged it under.
type fakeRemote struct {
	remote index.RemotePackage
	token  string
}

// fakeIndex is an in-memory index.PackageIndex: no network, no GitHub tree,
// just whatever packages a scenario registered.
type fakeIndex struct {
	byName map[manifest.PackageName][]fakeRemote
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{byName: map[manifest.PackageName][]fakeRemote{}}
}

func (f *fakeIndex) add(name string, v version.PackageVersion, token string) {
	n := manifest.Normalize(name)
	f.byName[n] = append(f.byName[n], fakeRemote{
		remote: index.RemotePackage{Name: n, Version: v, Kind: lockfile.SourceRockspec},
		token:  token,
	})
}

func (f *fakeIndex) Find(ctx context.Context, req manifest.PackageReq, typeFilter *lockfile.SourceKind, sink progress.Sink) (index.RemotePackage, error) {
	for _, candidate := range f.byName[req.Name] {
		if req.Req.Matches(candidate.remote.Version) {
			return candidate.remote, nil
		}
	}
	return index.RemotePackage{}, fmt.Errorf("no package satisfies %s %s", req.Name, req.Req.String())
}

func (f *fakeIndex) FetchRockspec(ctx context.Context, pkg index.RemotePackage) ([]byte, error) {
	for _, candidate := range f.byName[pkg.Name] {
		if candidate.remote.Version.Cmp(pkg.Version) == 0 {
			return []byte(candidate.token), nil
		}
	}
	return nil, fmt.Errorf("no rockspec staged for %s %s", pkg.Name, pkg.Version.String())
}

// fakeEvaluator stands in for the external Lua sandbox: Eval reads back
// whatever token the resolver wrote to its scratch file and returns the
// RockspecTable a scenario associated with that token.
type fakeEvaluator struct {
	tables map[string]manifest.RockspecTable
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{tables: map[string]manifest.RockspecTable{}}
}

func (f *fakeEvaluator) set(token string, table manifest.RockspecTable) {
	f.tables[token] = table
}

func (f *fakeEvaluator) Eval(path string) (manifest.RockspecTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest.RockspecTable{}, err
	}
	table, ok := f.tables[string(data)]
	if !ok {
		return manifest.RockspecTable{}, fmt.Errorf("no fixture table registered for token %q", string(data))
	}
	return table, nil
}

// fakeFetcher populates a build's staging directory from an in-memory file
// set instead of touching the network or a VCS, keyed by package name.
type fakeFetcher struct {
	files map[manifest.PackageName]map[string]string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{files: map[manifest.PackageName]map[string]string{}}
}

func (f *fakeFetcher) set(name string, files map[string]string) {
	f.files[manifest.Normalize(name)] = files
}

func (f *fakeFetcher) Fetch(ctx context.Context, stagingDir string, pkg fetch.PackageRef, spec manifest.SourceSpec, pinnedURL string, sink progress.Sink) (fetch.Result, error) {
	files, ok := f.files[pkg.Name]
	if !ok {
		return fetch.Result{}, fmt.Errorf("no fixture source registered for %s", pkg.Name)
	}
	for rel, content := range files {
		dest := filepath.Join(stagingDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fetch.Result{}, err
		}
		if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
			return fetch.Result{}, err
		}
	}
	return fetch.Result{}, nil
}
