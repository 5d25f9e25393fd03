// Package manifest implements the rockspec and project-manifest dialects:
// parsing, validating, per-platform merging, and re-rendering to rockspec
// text. The project manifest (lux.toml) is TOML, decoded directly with
// github.com/BurntSushi/toml. The rockspec dialect is Lua source; this
// package never touches Lua syntax itself — it defines a LuaTableEvaluator
// capability that an external collaborator implements by sandboxing and
// running the Lua file, handing back an already-decoded RockspecTable.
package manifest

import (
	"strings"

	"github.com/lux-pm/lux/internal/platform"
	"github.com/lux-pm/lux/internal/version"
)

// PackageName normalizes a rock name for case-insensitive comparison.
type PackageName string

// Normalize lowercases a raw package name, per the identity rule that two
// names printing the same string are the same package.
func Normalize(raw string) PackageName { return PackageName(strings.ToLower(raw)) }

func (n PackageName) String() string { return string(n) }

// PackageReq is a dependency entry: a package name plus an optional version
// requirement (absent means Any).
type PackageReq struct {
	Name PackageName
	Req  version.PackageVersionReq
}

// Deps is an ordered dependency list with PartialOverride semantics:
// override entries replace base entries sharing a package name; entries
// the override doesn't mention are kept; new entries are appended.
type Deps []PackageReq

// ApplyOverride implements platform.Override[Deps].
func (d Deps) ApplyOverride(o Deps) (Deps, error) {
	result := make(Deps, 0, len(d)+len(o))
	seen := map[PackageName]bool{}
	for _, dep := range o {
		seen[dep.Name] = true
	}
	for _, dep := range d {
		if seen[dep.Name] {
			continue
		}
		result = append(result, dep)
	}
	result = append(result, o...)
	return result, nil
}

// Find returns the requirement for name, if present.
func (d Deps) Find(name PackageName) (PackageReq, bool) {
	for _, dep := range d {
		if dep.Name == name {
			return dep, true
		}
	}
	return PackageReq{}, false
}

// ExternalDependencyKind discriminates the two external-dependency shapes.
type ExternalDependencyKind int

const (
	ExternalHeader ExternalDependencyKind = iota
	ExternalLibrary
)

// ExternalDependencySpec names a header or library lux must locate on the
// host system before building (via pkg-config or environment-variable
// fallback).
type ExternalDependencySpec struct {
	Kind ExternalDependencyKind
	Path string // header filename, or one of several library filename patterns
}

// ExternalDeps is a name-keyed map of external dependency specs, merged
// key-wise on override (override entries win, new keys are added).
type ExternalDeps map[string]ExternalDependencySpec

// ApplyOverride implements platform.Override[ExternalDeps].
func (e ExternalDeps) ApplyOverride(o ExternalDeps) (ExternalDeps, error) {
	result := make(ExternalDeps, len(e)+len(o))
	for k, v := range e {
		result[k] = v
	}
	for k, v := range o {
		result[k] = v
	}
	return result, nil
}

// ModuleSpecKind discriminates the three build.modules entry shapes.
type ModuleSpecKind int

const (
	ModuleSourcePath ModuleSpecKind = iota
	ModuleSourcePaths
	ModuleModulePaths
)

// ModuleSpec is a single build.modules entry. Exactly one of the three
// shapes is populated, selected by Kind.
type ModuleSpec struct {
	Kind ModuleSpecKind

	SourcePath  string   // ModuleSourcePath
	SourcePaths []string // ModuleSourcePaths
	ModulePaths ModulePaths
}

// ApplyOverride merges two ModuleSpec values of the same shape. Mixing
// shapes (e.g. overriding a SourcePath entry with a ModulePaths entry) is
// an ambiguous-override error: the two variants have no natural field-wise
// merge.
func (m ModuleSpec) ApplyOverride(o ModuleSpec) (ModuleSpec, error) {
	if m.Kind != o.Kind {
		return ModuleSpec{}, &ambiguousOverrideError{field: "build.modules"}
	}
	switch m.Kind {
	case ModuleSourcePath:
		if o.SourcePath != "" {
			return o, nil
		}
		return m, nil
	case ModuleSourcePaths:
		if len(o.SourcePaths) > 0 {
			return o, nil
		}
		return m, nil
	default:
		merged, err := m.ModulePaths.ApplyOverride(o.ModulePaths)
		if err != nil {
			return ModuleSpec{}, err
		}
		return ModuleSpec{Kind: ModuleModulePaths, ModulePaths: merged}, nil
	}
}

// ModulePaths is the builtin backend's richest module shape: explicit
// source files, link libraries, and compiler search paths.
type ModulePaths struct {
	Sources   []string
	Libraries []string
	Defines   []string
	Incdirs   []string
	Libdirs   []string
}

// ApplyOverride replaces each field with the override's value when it is
// non-empty, otherwise keeps the base's.
func (p ModulePaths) ApplyOverride(o ModulePaths) (ModulePaths, error) {
	result := p
	if len(o.Sources) > 0 {
		result.Sources = o.Sources
	}
	if len(o.Libraries) > 0 {
		result.Libraries = o.Libraries
	}
	if len(o.Defines) > 0 {
		result.Defines = o.Defines
	}
	if len(o.Incdirs) > 0 {
		result.Incdirs = o.Incdirs
	}
	if len(o.Libdirs) > 0 {
		result.Libdirs = o.Libdirs
	}
	return result, nil
}

// Modules is the name-keyed module map, merged key-wise; an override entry
// for a name present in both must share the base entry's shape.
type Modules map[string]ModuleSpec

// ApplyOverride implements platform.Override[Modules].
func (m Modules) ApplyOverride(o Modules) (Modules, error) {
	result := make(Modules, len(m)+len(o))
	for k, v := range m {
		result[k] = v
	}
	for k, ov := range o {
		if base, ok := m[k]; ok {
			merged, err := base.ApplyOverride(ov)
			if err != nil {
				return nil, err
			}
			result[k] = merged
			continue
		}
		result[k] = ov
	}
	return result, nil
}

// SourceSpec describes where a package's upstream source comes from.
type SourceSpec struct {
	Kind      string // "git", "url", "file"
	URL       string
	Tag       string
	Branch    string
	Dir       string // source.dir: staging subdirectory to treat as the build root
	UnpackDir string
	Hash      string // declared integrity string, e.g. "sha256-<hex>"
}

// ApplyOverride merges field-wise, with tag/branch kept mutually exclusive:
// setting one in the override clears the other.
func (s SourceSpec) ApplyOverride(o SourceSpec) (SourceSpec, error) {
	result := s
	if o.Kind != "" {
		result.Kind = o.Kind
	}
	if o.URL != "" {
		result.URL = o.URL
	}
	if o.Dir != "" {
		result.Dir = o.Dir
	}
	if o.UnpackDir != "" {
		result.UnpackDir = o.UnpackDir
	}
	if o.Hash != "" {
		result.Hash = o.Hash
	}
	if o.Tag != "" {
		result.Tag = o.Tag
		result.Branch = ""
	} else if o.Branch != "" {
		result.Branch = o.Branch
		result.Tag = ""
	}
	return result, nil
}

// InstallSpec lists declarative artifact placements the build pipeline
// copies after the backend runs.
type InstallSpec struct {
	Lua map[string]string // module name -> source .lua file
	Lib map[string]string // module name -> C sources to compile
	Bin map[string]string // install name -> source executable/script
}

// ApplyOverride merges each named sub-map key-wise, override wins per key.
func (s InstallSpec) ApplyOverride(o InstallSpec) (InstallSpec, error) {
	merge := func(base, over map[string]string) map[string]string {
		if len(over) == 0 {
			return base
		}
		result := make(map[string]string, len(base)+len(over))
		for k, v := range base {
			result[k] = v
		}
		for k, v := range over {
			result[k] = v
		}
		return result
	}
	return InstallSpec{
		Lua: merge(s.Lua, o.Lua),
		Lib: merge(s.Lib, o.Lib),
		Bin: merge(s.Bin, o.Bin),
	}, nil
}

// BuildSpec describes how to turn a fetched source tree into installed
// artifacts.
type BuildSpec struct {
	Type string // "builtin", "make", "cmake", "command", "rust-mlua", or an external backend name

	Modules Modules
	Install InstallSpec

	CopyDirectories []string
	Patches         map[string]string // filename -> unified diff contents
	Variables       map[string]string

	// make
	BuildTarget      string
	InstallTarget    string
	BuildVariables   map[string]string
	InstallVariables map[string]string
	NoBuildPass      bool
	NoInstallPass    bool

	// cmake
	CMakeListsContent string

	// command
	BuildCommand   string
	InstallCommand string

	// rust-mlua
	TargetPath      string
	Features        []string
	DefaultFeatures bool
	Include         []string
}

// ApplyOverride merges field-wise: scalar fields replace-if-nonempty;
// Modules/Install/maps delegate to their own merge logic or replace when
// the override sets any entries.
func (b BuildSpec) ApplyOverride(o BuildSpec) (BuildSpec, error) {
	result := b
	if o.Type != "" {
		result.Type = o.Type
	}
	if o.Modules != nil {
		merged, err := b.Modules.ApplyOverride(o.Modules)
		if err != nil {
			return BuildSpec{}, err
		}
		result.Modules = merged
	}
	installMerged, err := b.Install.ApplyOverride(o.Install)
	if err != nil {
		return BuildSpec{}, err
	}
	result.Install = installMerged
	if len(o.CopyDirectories) > 0 {
		result.CopyDirectories = o.CopyDirectories
	}
	if len(o.Patches) > 0 {
		result.Patches = mergeStringMap(b.Patches, o.Patches)
	}
	if len(o.Variables) > 0 {
		result.Variables = mergeStringMap(b.Variables, o.Variables)
	}
	if o.BuildTarget != "" {
		result.BuildTarget = o.BuildTarget
	}
	if o.InstallTarget != "" {
		result.InstallTarget = o.InstallTarget
	}
	if len(o.BuildVariables) > 0 {
		result.BuildVariables = mergeStringMap(b.BuildVariables, o.BuildVariables)
	}
	if len(o.InstallVariables) > 0 {
		result.InstallVariables = mergeStringMap(b.InstallVariables, o.InstallVariables)
	}
	if o.CMakeListsContent != "" {
		result.CMakeListsContent = o.CMakeListsContent
	}
	if o.BuildCommand != "" {
		result.BuildCommand = o.BuildCommand
	}
	if o.InstallCommand != "" {
		result.InstallCommand = o.InstallCommand
	}
	if o.TargetPath != "" {
		result.TargetPath = o.TargetPath
	}
	if len(o.Features) > 0 {
		result.Features = o.Features
	}
	if len(o.Include) > 0 {
		result.Include = o.Include
	}
	return result, nil
}

func mergeStringMap(base, over map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range over {
		result[k] = v
	}
	return result
}

// TestSpec describes how the project's test suite is run, e.g. via busted.
type TestSpec struct {
	Type    string
	Script  string
	Command string
}

// ApplyOverride replaces each field with the override's value when set.
func (t TestSpec) ApplyOverride(o TestSpec) (TestSpec, error) {
	result := t
	if o.Type != "" {
		result.Type = o.Type
	}
	if o.Script != "" {
		result.Script = o.Script
	}
	if o.Command != "" {
		result.Command = o.Command
	}
	return result, nil
}

// ValidatedManifest is the fully parsed, validated, and (for rockspecs)
// merged manifest the resolver and build pipeline consume. Every
// per-platform field exposes the base plus per-platform overrides via
// platform.PerPlatform; call .Get(platform.Current()) (or a specific
// identifier in tests) to obtain the effective value.
type ValidatedManifest struct {
	Package     PackageName
	Version     version.PackageVersion
	Description string

	SupportedPlatforms *platform.Support

	Dependencies         platform.PerPlatform[Deps]
	BuildDependencies    platform.PerPlatform[Deps]
	TestDependencies     platform.PerPlatform[Deps]
	ExternalDependencies platform.PerPlatform[ExternalDeps]
	Source               platform.PerPlatform[SourceSpec]
	Build                platform.PerPlatform[BuildSpec]
	Test                 platform.PerPlatform[TestSpec]

	// LuaReq is the implicit "lua <req>" dependency spliced at the head of
	// Dependencies during validation/rendering.
	LuaReq version.PackageVersionReq
}

type ambiguousOverrideError struct {
	field string
}

func (e *ambiguousOverrideError) Error() string {
	return "ambiguous override for " + e.field + ": cannot merge different module shapes"
}
