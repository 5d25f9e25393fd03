package resolver

import (
	"context"
	"testing"

	"github.com/lux-pm/lux/internal/index"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/version"
)

// fakeIndex serves a fixed set of rockspecs keyed by package name, skipping
// any real network access.
type fakeIndex struct {
	tables map[string]manifest.RockspecTable
	calls  int
}

func (f *fakeIndex) Find(ctx context.Context, req manifest.PackageReq, typeFilter *lockfile.SourceKind, sink progress.Sink) (index.RemotePackage, error) {
	f.calls++
	tbl, ok := f.tables[req.Name.String()]
	if !ok {
		return index.RemotePackage{}, &fakeNotFound{req.Name.String()}
	}
	v, err := version.Parse(tbl.Version)
	if err != nil {
		return index.RemotePackage{}, err
	}
	return index.RemotePackage{Name: req.Name, Version: v, Kind: lockfile.SourceRockspec}, nil
}

func (f *fakeIndex) FetchRockspec(ctx context.Context, pkg index.RemotePackage) ([]byte, error) {
	return []byte(pkg.Name.String()), nil
}

type fakeNotFound struct{ name string }

func (e *fakeNotFound) Error() string { return "package not found: " + e.name }

// fakeEvaluator decodes staged rockspec text (its filename stem, by
// construction) back into the pre-built table it was handed, bypassing
// real Lua evaluation entirely.
type fakeEvaluator struct {
	byName map[string]manifest.RockspecTable
}

func (f *fakeEvaluator) Eval(path string) (manifest.RockspecTable, error) {
	for name, tbl := range f.byName {
		if containsName(path, name) {
			return tbl, nil
		}
	}
	return manifest.RockspecTable{}, &fakeNotFound{path}
}

func containsName(path, name string) bool {
	for i := 0; i+len(name) <= len(path); i++ {
		if path[i:i+len(name)] == name {
			return true
		}
	}
	return false
}

func reqFor(t *testing.T, name, constraint string) manifest.PackageReq {
	t.Helper()
	req, err := version.ParseReq(constraint)
	if err != nil {
		t.Fatal(err)
	}
	return manifest.PackageReq{Name: manifest.Normalize(name), Req: req}
}

func tableFor(name, ver string, deps []string) manifest.RockspecTable {
	return manifest.RockspecTable{
		Package:      name,
		Version:      ver,
		Dependencies: deps,
		Source:       manifest.SourceTable{URL: "https://example.test/" + name + ".tar.gz"},
		Build:        manifest.BuildTable{Type: "builtin"},
	}
}

func TestResolveFetchesTransitiveDependencies(t *testing.T) {
	tables := map[string]manifest.RockspecTable{
		"neorg":     tableFor("neorg", "1.0.0-1", []string{"lua-utils ~> 1"}),
		"lua-utils": tableFor("lua-utils", "1.2.0-1", nil),
	}
	idx := &fakeIndex{tables: tables}
	evaluator := &fakeEvaluator{byName: tables}
	lock := lockfile.NewLocalPackageLock()

	r := New(idx, evaluator, lock, t.TempDir(), progress.NoopSink{})
	specs, err := r.Resolve(context.Background(), []Request{
		{Behavior: NoForce, Req: reqFor(t, "neorg", ">= 1.0")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 install specs, got %d", len(specs))
	}
	names := map[string]bool{}
	for _, s := range specs {
		names[s.Requirement.Name.String()] = true
	}
	if !names["neorg"] || !names["lua-utils"] {
		t.Errorf("expected both neorg and lua-utils resolved, got %v", names)
	}
}

func TestResolveDedupesSharedDependency(t *testing.T) {
	tables := map[string]manifest.RockspecTable{
		"a":      tableFor("a", "1.0.0-1", []string{"shared ~> 1"}),
		"b":      tableFor("b", "1.0.0-1", []string{"shared ~> 1"}),
		"shared": tableFor("shared", "1.0.0-1", nil),
	}
	idx := &fakeIndex{tables: tables}
	evaluator := &fakeEvaluator{byName: tables}
	lock := lockfile.NewLocalPackageLock()

	r := New(idx, evaluator, lock, t.TempDir(), progress.NoopSink{})
	specs, err := r.Resolve(context.Background(), []Request{
		{Behavior: NoForce, Req: reqFor(t, "a", ">= 1.0")},
		{Behavior: NoForce, Req: reqFor(t, "b", ">= 1.0")},
	})
	if err != nil {
		t.Fatal(err)
	}
	sharedCount := 0
	for _, s := range specs {
		if s.Requirement.Name.String() == "shared" {
			sharedCount++
		}
	}
	if sharedCount != 1 {
		t.Errorf("expected shared dependency emitted exactly once, got %d", sharedCount)
	}
}

func TestResolvePreResolvedSkipsIndexButTraversesDeps(t *testing.T) {
	tables := map[string]manifest.RockspecTable{
		"child": tableFor("child", "2.0.0-1", nil),
	}
	idx := &fakeIndex{tables: tables}
	evaluator := &fakeEvaluator{byName: tables}
	lock := lockfile.NewLocalPackageLock()

	parentV, err := version.Parse("1.0.0-1")
	if err != nil {
		t.Fatal(err)
	}
	childV, err := version.Parse("2.0.0-1")
	if err != nil {
		t.Fatal(err)
	}
	childID := lockfile.NewLocalPackageId(manifest.Normalize("child"), childV, false, "")
	lock.Add(lockfile.LocalPackage{Spec: lockfile.LocalPackageSpec{Name: manifest.Normalize("child"), Version: childV}})
	lock.Add(lockfile.LocalPackage{Spec: lockfile.LocalPackageSpec{
		Name: manifest.Normalize("parent"), Version: parentV, Constraint: ">= 1.0", Deps: []lockfile.LocalPackageId{childID},
	}})

	r := New(idx, evaluator, lock, t.TempDir(), progress.NoopSink{})
	specs, err := r.Resolve(context.Background(), []Request{
		{Behavior: NoForce, Req: reqFor(t, "parent", ">= 1.0")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if idx.calls != 0 {
		t.Errorf("expected no index calls for a pre-resolved hit, got %d", idx.calls)
	}
	var sawParent, sawChild bool
	for _, s := range specs {
		if s.Requirement.Name.String() == "parent" {
			sawParent = true
			if !s.PreResolved {
				t.Error("expected parent to be marked pre-resolved")
			}
		}
		if s.Requirement.Name.String() == "child" {
			sawChild = true
		}
	}
	if !sawParent || !sawChild {
		t.Errorf("expected both parent and its dependency emitted, got %+v", specs)
	}
}

func TestResolveReturnsFailingRequirementOnError(t *testing.T) {
	idx := &fakeIndex{tables: map[string]manifest.RockspecTable{}}
	evaluator := &fakeEvaluator{byName: map[string]manifest.RockspecTable{}}
	lock := lockfile.NewLocalPackageLock()

	r := New(idx, evaluator, lock, t.TempDir(), progress.NoopSink{})
	_, err := r.Resolve(context.Background(), []Request{
		{Behavior: NoForce, Req: reqFor(t, "missing", ">= 1.0")},
	})
	if err == nil {
		t.Fatal("expected an error for an unresolvable requirement")
	}
}
