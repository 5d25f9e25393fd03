package manifest

import (
	"fmt"
	"strings"

	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/platform"
	"github.com/lux-pm/lux/internal/version"
)

// reservedCopyDirectoryNames must never appear in build.copy_directories:
// they collide with directories the install pipeline itself manages.
var reservedCopyDirectoryNames = map[string]bool{
	"lua":           true,
	"lib":           true,
	"rock_manifest": true,
}

// LuaTableEvaluator is the capability the core consumes to turn rockspec
// Lua source into a decoded table. The core never parses or executes Lua
// itself; a collaborator sandboxes and runs the file and hands back the
// already-decoded RockspecTable.
type LuaTableEvaluator interface {
	Eval(path string) (RockspecTable, error)
}

// ExternalDependencyEntry is the raw decoded shape of one
// external_dependencies entry: exactly one of Header/Library is set.
type ExternalDependencyEntry struct {
	Header  string
	Library string
}

// SourceTable is the raw decoded shape of a rockspec `source` table.
type SourceTable struct {
	Kind      string
	URL       string
	Tag       string
	Branch    string
	Dir       string
	UnpackDir string
	Hash      string
}

// ModuleEntryTable is the raw decoded shape of one build.modules entry.
// Exactly one of SourcePath, SourcePaths, or the ModulePaths fields
// (Sources/Libraries/Defines/Incdirs/Libdirs) is populated.
type ModuleEntryTable struct {
	SourcePath  string
	SourcePaths []string
	Sources     []string
	Libraries   []string
	Defines     []string
	Incdirs     []string
	Libdirs     []string
}

// BuildTable is the raw decoded shape of a rockspec `build` table.
type BuildTable struct {
	Type    string
	Modules map[string]ModuleEntryTable

	InstallLua map[string]string
	InstallLib map[string]string
	InstallBin map[string]string

	CopyDirectories []string
	Patches         map[string]string
	Variables       map[string]string

	BuildTarget      string
	InstallTarget    string
	BuildVariables   map[string]string
	InstallVariables map[string]string
	NoBuildPass      bool
	NoInstallPass    bool

	CMakeListsContent string

	BuildCommand   string
	InstallCommand string

	TargetPath      string
	Features        []string
	DefaultFeatures bool
	Include         []string
}

// TestTable is the raw decoded shape of a rockspec `test` table.
type TestTable struct {
	Type    string
	Script  string
	Command string
}

// PlatformOverlay is a partial overlay under `platforms.<id>`. Every field
// is optional; a nil pointer or empty slice/map means "not overridden for
// this platform".
type PlatformOverlay struct {
	Dependencies         []string
	BuildDependencies    []string
	TestDependencies     []string
	ExternalDependencies map[string]ExternalDependencyEntry
	Source               *SourceTable
	Build                *BuildTable
	Test                 *TestTable
}

// RockspecTable is the fully decoded shape of a `<name>-<version>.rockspec`
// file, as handed back by a LuaTableEvaluator.
type RockspecTable struct {
	RockspecFormat string
	Package        string
	Version        string
	Description    string

	SupportedPlatforms []string

	Dependencies         []string
	BuildDependencies    []string
	TestDependencies     []string
	ExternalDependencies map[string]ExternalDependencyEntry

	Source SourceTable
	Build  BuildTable
	Test   TestTable

	Platforms map[string]PlatformOverlay
}

// BuildRockspec validates and constructs a ValidatedManifest from a decoded
// RockspecTable.
func BuildRockspec(path string, t RockspecTable) (*ValidatedManifest, error) {
	ver, err := version.Parse(t.Version)
	if err != nil {
		return nil, &errs.ManifestParseError{Path: path, Err: fmt.Errorf("invalid version: %w", err)}
	}

	baseDeps, err := convertDeps(t.Dependencies)
	if err != nil {
		return nil, &errs.ManifestParseError{Path: path, Err: err}
	}
	luaReq, baseDeps := extractLuaReq(baseDeps)

	baseBuildDeps, err := convertDeps(t.BuildDependencies)
	if err != nil {
		return nil, &errs.ManifestParseError{Path: path, Err: err}
	}
	baseTestDeps, err := convertDeps(t.TestDependencies)
	if err != nil {
		return nil, &errs.ManifestParseError{Path: path, Err: err}
	}
	baseExtDeps := convertExternalDeps(t.ExternalDependencies)
	baseSource := convertSource(t.Source)
	baseBuild := convertBuild(t.Build)
	baseTest := convertTest(t.Test)

	support, err := platform.NewSupport(t.SupportedPlatforms)
	if err != nil {
		return nil, err
	}

	depsOverrides := map[string]Deps{}
	buildDepsOverrides := map[string]Deps{}
	testDepsOverrides := map[string]Deps{}
	extDepsOverrides := map[string]ExternalDeps{}
	sourceOverrides := map[string]SourceSpec{}
	buildOverrides := map[string]BuildSpec{}
	testOverrides := map[string]TestSpec{}

	for id, overlay := range t.Platforms {
		od, err := convertDeps(overlay.Dependencies)
		if err != nil {
			return nil, &errs.ManifestParseError{Path: path, Err: err}
		}
		depsOverrides[id] = od

		obd, err := convertDeps(overlay.BuildDependencies)
		if err != nil {
			return nil, &errs.ManifestParseError{Path: path, Err: err}
		}
		buildDepsOverrides[id] = obd

		otd, err := convertDeps(overlay.TestDependencies)
		if err != nil {
			return nil, &errs.ManifestParseError{Path: path, Err: err}
		}
		testDepsOverrides[id] = otd

		extDepsOverrides[id] = convertExternalDeps(overlay.ExternalDependencies)

		if overlay.Source != nil {
			sourceOverrides[id] = convertSource(*overlay.Source)
		}
		if overlay.Build != nil {
			buildOverrides[id] = convertBuild(*overlay.Build)
		}
		if overlay.Test != nil {
			testOverrides[id] = convertTest(*overlay.Test)
		}
	}

	deps, err := platform.ApplyPerPlatformOverrides(baseDeps, depsOverrides)
	if err != nil {
		return nil, err
	}
	buildDeps, err := platform.ApplyPerPlatformOverrides(baseBuildDeps, buildDepsOverrides)
	if err != nil {
		return nil, err
	}
	testDeps, err := platform.ApplyPerPlatformOverrides(baseTestDeps, testDepsOverrides)
	if err != nil {
		return nil, err
	}
	extDeps, err := platform.ApplyPerPlatformOverrides(baseExtDeps, extDepsOverrides)
	if err != nil {
		return nil, err
	}
	source, err := platform.ApplyPerPlatformOverrides(baseSource, sourceOverrides)
	if err != nil {
		return nil, err
	}
	build, err := platform.ApplyPerPlatformOverrides(baseBuild, buildOverrides)
	if err != nil {
		return nil, err
	}
	test, err := platform.ApplyPerPlatformOverrides(baseTest, testOverrides)
	if err != nil {
		return nil, err
	}

	m := &ValidatedManifest{
		Package:              Normalize(t.Package),
		Version:              ver,
		Description:          t.Description,
		SupportedPlatforms:   support,
		Dependencies:         deps,
		BuildDependencies:    buildDeps,
		TestDependencies:     testDeps,
		ExternalDependencies: extDeps,
		Source:               source,
		Build:                build,
		Test:                 test,
		LuaReq:               luaReq,
	}

	if err := validateManifest(m); err != nil {
		return nil, err
	}
	return m, nil
}

// validateManifest checks invariants across the base value and every
// declared per-platform override, since a platform overlay can introduce a
// violation the base value didn't have (resolving the source rockspec's
// Open Question on scope: validation considers the fully merged
// per-platform view, not the base alone).
func validateManifest(m *ValidatedManifest) error {
	sourceViews := allViews(m.Source)
	for _, src := range sourceViews {
		if src.URL == "" {
			return &errs.ManifestValidationError{Field: "source", Message: "source is required and must have a resolvable URL"}
		}
		if src.Tag != "" && src.Branch != "" {
			return &errs.ManifestValidationError{Field: "source", Message: "tag and branch are mutually exclusive"}
		}
	}

	rockspecName := fmt.Sprintf("%s-%s.rockspec", m.Package, m.Version.String())
	for _, b := range allViews(m.Build) {
		for _, dir := range b.CopyDirectories {
			if dir == rockspecName {
				return &errs.ManifestValidationError{Field: "build.copy_directories", Message: "entry collides with the rockspec filename"}
			}
			if reservedCopyDirectoryNames[dir] {
				return &errs.ManifestValidationError{Field: "build.copy_directories", Message: fmt.Sprintf("%q is a reserved directory name", dir)}
			}
		}
		switch b.Type {
		case "command":
			if b.BuildCommand == "" || b.InstallCommand == "" {
				return &errs.ManifestValidationError{Field: "build", Message: "command backend requires both build_command and install_command"}
			}
		case "rust-mlua":
			if len(b.Modules) == 0 {
				return &errs.ManifestValidationError{Field: "build.modules", Message: "rust-mlua backend requires at least one module"}
			}
		}
	}
	return nil
}

// allViews returns the base value followed by every declared per-platform
// override's merged value.
func allViews[T any](pp platform.PerPlatform[T]) []T {
	out := make([]T, 0, 1+len(pp.PerPlatform))
	out = append(out, pp.Default)
	for _, v := range pp.PerPlatform {
		out = append(out, v)
	}
	return out
}

// extractLuaReq pulls the implicit "lua" dependency entry out of deps,
// returning it and the remaining list (for later splicing back at the head
// during rendering).
func extractLuaReq(deps Deps) (version.PackageVersionReq, Deps) {
	rest := make(Deps, 0, len(deps))
	var req version.PackageVersionReq
	found := false
	for _, d := range deps {
		if d.Name == "lua" && !found {
			req = d.Req
			found = true
			continue
		}
		rest = append(rest, d)
	}
	if !found {
		req = version.PackageVersionReq{Kind: version.ReqAny}
	}
	return req, rest
}

func convertDeps(entries []string) (Deps, error) {
	result := make(Deps, 0, len(entries))
	for _, raw := range entries {
		dep, err := parseDepString(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, dep)
	}
	return result, nil
}

// parseDepString splits a LuaRocks dependency string like "neorg ~> 6" into
// a name and a version requirement. A bare name with no requirement text
// matches Any.
func parseDepString(raw string) (PackageReq, error) {
	trimmed := strings.TrimSpace(raw)
	idx := strings.IndexAny(trimmed, " \t")
	var name, reqStr string
	if idx < 0 {
		name = trimmed
	} else {
		name = trimmed[:idx]
		reqStr = strings.TrimSpace(trimmed[idx+1:])
	}
	req, err := version.ParseReq(reqStr)
	if err != nil {
		return PackageReq{}, err
	}
	return PackageReq{Name: Normalize(name), Req: req}, nil
}

func convertExternalDeps(entries map[string]ExternalDependencyEntry) ExternalDeps {
	result := make(ExternalDeps, len(entries))
	for name, e := range entries {
		if e.Header != "" {
			result[name] = ExternalDependencySpec{Kind: ExternalHeader, Path: e.Header}
		} else {
			result[name] = ExternalDependencySpec{Kind: ExternalLibrary, Path: e.Library}
		}
	}
	return result
}

func convertSource(t SourceTable) SourceSpec {
	kind := t.Kind
	if kind == "" {
		kind = inferSourceKind(t.URL)
	}
	return SourceSpec{
		Kind:      kind,
		URL:       t.URL,
		Tag:       t.Tag,
		Branch:    t.Branch,
		Dir:       t.Dir,
		UnpackDir: t.UnpackDir,
		Hash:      t.Hash,
	}
}

func inferSourceKind(url string) string {
	switch {
	case strings.HasPrefix(url, "git://"), strings.HasPrefix(url, "git+"):
		return "git"
	case strings.HasPrefix(url, "file://"):
		return "file"
	default:
		return "url"
	}
}

func convertModule(t ModuleEntryTable) ModuleSpec {
	switch {
	case t.SourcePath != "":
		return ModuleSpec{Kind: ModuleSourcePath, SourcePath: t.SourcePath}
	case len(t.SourcePaths) > 0:
		return ModuleSpec{Kind: ModuleSourcePaths, SourcePaths: t.SourcePaths}
	default:
		return ModuleSpec{Kind: ModuleModulePaths, ModulePaths: ModulePaths{
			Sources:   t.Sources,
			Libraries: t.Libraries,
			Defines:   t.Defines,
			Incdirs:   t.Incdirs,
			Libdirs:   t.Libdirs,
		}}
	}
}

func convertBuild(t BuildTable) BuildSpec {
	modules := make(Modules, len(t.Modules))
	for name, entry := range t.Modules {
		modules[name] = convertModule(entry)
	}
	return BuildSpec{
		Type:    t.Type,
		Modules: modules,
		Install: InstallSpec{
			Lua: t.InstallLua,
			Lib: t.InstallLib,
			Bin: t.InstallBin,
		},
		CopyDirectories:   t.CopyDirectories,
		Patches:           t.Patches,
		Variables:         t.Variables,
		BuildTarget:       t.BuildTarget,
		InstallTarget:     t.InstallTarget,
		BuildVariables:    t.BuildVariables,
		InstallVariables:  t.InstallVariables,
		NoBuildPass:       t.NoBuildPass,
		NoInstallPass:     t.NoInstallPass,
		CMakeListsContent: t.CMakeListsContent,
		BuildCommand:      t.BuildCommand,
		InstallCommand:    t.InstallCommand,
		TargetPath:        t.TargetPath,
		Features:          t.Features,
		DefaultFeatures:   t.DefaultFeatures,
		Include:           t.Include,
	}
}

func convertTest(t TestTable) TestSpec {
	return TestSpec{Type: t.Type, Script: t.Script, Command: t.Command}
}
