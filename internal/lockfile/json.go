package lockfile

import (
	"encoding/json"
	"fmt"

	"github.com/lux-pm/lux/internal/integrity"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/version"
)

const lockfileSchemaVersion = "1.0.0"

var sourceKindNames = map[SourceKind]string{
	SourceRockspec: "rockspec",
	SourceSrc:      "src",
	SourceBinary:   "binary",
	SourceContent:  "content",
}

var sourceKindValues = map[string]SourceKind{
	"rockspec": SourceRockspec,
	"src":      SourceSrc,
	"binary":   SourceBinary,
	"content":  SourceContent,
}

type wireLockfile struct {
	Version     string                      `json:"version"`
	Rocks       map[string]wireLocalPackage `json:"rocks"`
	Entrypoints []string                    `json:"entrypoints"`
}

type wireLocalPackage struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Pinned       bool     `json:"pinned"`
	Dependencies []string `json:"dependencies"`
	Constraint   string   `json:"constraint,omitempty"`
	Binaries     []string `json:"binaries,omitempty"`
	Source       string   `json:"source"`
	SourceName   string   `json:"source_name,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Hashes       struct {
		Rockspec string `json:"rockspec"`
		Source   string `json:"source"`
	} `json:"hashes"`
}

func toWire(l *LocalPackageLock) wireLockfile {
	w := wireLockfile{
		Version: lockfileSchemaVersion,
		Rocks:   make(map[string]wireLocalPackage, len(l.Rocks)),
	}
	for _, id := range l.order {
		pkg, ok := l.Rocks[id]
		if !ok {
			continue
		}
		deps := make([]string, len(pkg.Spec.Deps))
		for i, d := range pkg.Spec.Deps {
			deps[i] = string(d)
		}
		wp := wireLocalPackage{
			Name:         string(pkg.Spec.Name),
			Version:      pkg.Spec.Version.String(),
			Pinned:       pkg.Spec.Pinned,
			Dependencies: deps,
			Constraint:   pkg.Spec.Constraint,
			Binaries:     pkg.Spec.Binaries,
			Source:       sourceKindNames[pkg.Source.Kind],
			SourceName:   pkg.Source.Name,
		}
		if pkg.SourceURL != nil {
			wp.SourceURL = pkg.SourceURL.URL
		}
		wp.Hashes.Rockspec = pkg.Hashes.Rockspec.String()
		wp.Hashes.Source = pkg.Hashes.Source.String()
		w.Rocks[string(id)] = wp
	}
	for _, id := range l.Entrypoints {
		w.Entrypoints = append(w.Entrypoints, string(id))
	}
	return w
}

func fromWire(w wireLockfile) (*LocalPackageLock, error) {
	l := newLocalPackageLock()
	for idStr, wp := range w.Rocks {
		v, err := version.Parse(wp.Version)
		if err != nil {
			return nil, fmt.Errorf("rock %s: %w", idStr, err)
		}
		rockspecHash, err := integrity.Parse(wp.Hashes.Rockspec)
		if err != nil {
			return nil, fmt.Errorf("rock %s: rockspec hash: %w", idStr, err)
		}
		sourceHash, err := integrity.Parse(wp.Hashes.Source)
		if err != nil {
			return nil, fmt.Errorf("rock %s: source hash: %w", idStr, err)
		}
		deps := make([]LocalPackageId, len(wp.Dependencies))
		for i, d := range wp.Dependencies {
			deps[i] = LocalPackageId(d)
		}
		pkg := LocalPackage{
			Spec: LocalPackageSpec{
				Name:       manifest.Normalize(wp.Name),
				Version:    v,
				Pinned:     wp.Pinned,
				Constraint: wp.Constraint,
				Deps:       deps,
				Binaries:   wp.Binaries,
			},
			Source: RemoteSource{Kind: sourceKindValues[wp.Source], Name: wp.SourceName},
			Hashes: Hashes{Rockspec: rockspecHash, Source: sourceHash},
		}
		if wp.SourceURL != "" {
			pkg.SourceURL = &RemoteSourceUrl{URL: wp.SourceURL}
		}
		id := LocalPackageId(idStr)
		l.Rocks[id] = pkg
		l.order = append(l.order, id)
	}
	for _, id := range w.Entrypoints {
		l.Entrypoints = append(l.Entrypoints, LocalPackageId(id))
	}
	return l, nil
}

// marshalPretty renders l as the pretty-printed JSON lux.lock schema.
func marshalPretty(l *LocalPackageLock) ([]byte, error) {
	return json.MarshalIndent(toWire(l), "", "  ")
}

func unmarshalLock(data []byte) (*LocalPackageLock, error) {
	var w wireLockfile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

// wireProjectLockfile is the on-disk shape of a project lux.lock: the
// single-bucket schema partitioned into three named sub-objects.
type wireProjectLockfile struct {
	Version           string             `json:"version"`
	Dependencies      wireLockfileBucket `json:"dependencies"`
	TestDependencies  wireLockfileBucket `json:"test_dependencies"`
	BuildDependencies wireLockfileBucket `json:"build_dependencies"`
}

type wireLockfileBucket struct {
	Rocks       map[string]wireLocalPackage `json:"rocks"`
	Entrypoints []string                    `json:"entrypoints"`
}

func marshalProjectPretty(p *ProjectLockfile) ([]byte, error) {
	bucket := func(l *LocalPackageLock) wireLockfileBucket {
		w := toWire(l)
		return wireLockfileBucket{Rocks: w.Rocks, Entrypoints: w.Entrypoints}
	}
	w := wireProjectLockfile{
		Version:           lockfileSchemaVersion,
		Dependencies:      bucket(p.Dependencies),
		TestDependencies:  bucket(p.TestDependencies),
		BuildDependencies: bucket(p.BuildDependencies),
	}
	return json.MarshalIndent(w, "", "  ")
}

func unmarshalProject(data []byte) (*ProjectLockfile, error) {
	var w wireProjectLockfile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	toBucket := func(b wireLockfileBucket) (*LocalPackageLock, error) {
		return fromWire(wireLockfile{Rocks: b.Rocks, Entrypoints: b.Entrypoints})
	}
	deps, err := toBucket(w.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	testDeps, err := toBucket(w.TestDependencies)
	if err != nil {
		return nil, fmt.Errorf("test_dependencies: %w", err)
	}
	buildDeps, err := toBucket(w.BuildDependencies)
	if err != nil {
		return nil, fmt.Errorf("build_dependencies: %w", err)
	}
	return &ProjectLockfile{Dependencies: deps, TestDependencies: testDeps, BuildDependencies: buildDeps}, nil
}
