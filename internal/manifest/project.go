package manifest

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/platform"
)

// ProjectManifestTOML is the on-disk shape of lux.toml, decoded directly
// with github.com/BurntSushi/toml.
type ProjectManifestTOML struct {
	Package     string `toml:"package"`
	Version     string `toml:"version"`
	Lua         string `toml:"lua"`
	Description string `toml:"description"`

	Dependencies      map[string]string `toml:"dependencies"`
	BuildDependencies map[string]string `toml:"build_dependencies"`
	TestDependencies  map[string]string `toml:"test_dependencies"`

	Build BuildTOML `toml:"build"`
	Test  TestTOML  `toml:"test"`

	Platforms map[string]PlatformOverlayTOML `toml:"platforms"`
}

// BuildTOML mirrors BuildTable for the project manifest's TOML dialect.
type BuildTOML struct {
	Type              string              `toml:"type"`
	InstallLua        map[string]string   `toml:"install_lua"`
	InstallLib        map[string]string   `toml:"install_lib"`
	InstallBin        map[string]string   `toml:"install_bin"`
	CopyDirectories   []string            `toml:"copy_directories"`
	Variables         map[string]string   `toml:"variables"`
	BuildTarget       string              `toml:"build_target"`
	InstallTarget     string              `toml:"install_target"`
	BuildCommand      string              `toml:"build_command"`
	InstallCommand    string              `toml:"install_command"`
	CMakeListsContent string              `toml:"cmake_lists_content"`
}

// TestTOML mirrors TestTable.
type TestTOML struct {
	Type    string `toml:"type"`
	Script  string `toml:"script"`
	Command string `toml:"command"`
}

// PlatformOverlayTOML is the project manifest's `[platforms.<id>]` overlay.
type PlatformOverlayTOML struct {
	Dependencies      map[string]string `toml:"dependencies"`
	BuildDependencies map[string]string `toml:"build_dependencies"`
	TestDependencies  map[string]string `toml:"test_dependencies"`
	Build             *BuildTOML        `toml:"build"`
	Test              *TestTOML         `toml:"test"`
}

// ParseProjectManifest decodes and validates a lux.toml file.
func ParseProjectManifest(path string) (*ValidatedManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.ManifestParseError{Path: path, Err: err}
	}
	var raw ProjectManifestTOML
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		if de, ok := err.(toml.ParseError); ok {
			return nil, &errs.ManifestParseError{Path: path, Line: de.Position().Line, Err: err}
		}
		return nil, &errs.ManifestParseError{Path: path, Err: err}
	}
	_ = meta // undecoded keys are tolerated; the project manifest dialect is a subset of full rockspec shape

	if raw.Package == "" {
		return nil, &errs.ManifestValidationError{Field: "package", Message: "required"}
	}
	if raw.Lua == "" {
		return nil, &errs.ManifestValidationError{Field: "lua", Message: "project manifests must declare a lua version requirement"}
	}

	table := projectToRockspecTable(raw)
	return BuildRockspec(path, table)
}

// projectToRockspecTable re-expresses a TOML project manifest as a
// RockspecTable so both dialects share one validation/merge pipeline.
func projectToRockspecTable(raw ProjectManifestTOML) RockspecTable {
	deps := depMapToList(raw.Dependencies)
	deps = append(deps, "lua "+raw.Lua)

	t := RockspecTable{
		Package:           raw.Package,
		Version:           raw.Version,
		Description:       raw.Description,
		Dependencies:      deps,
		BuildDependencies: depMapToList(raw.BuildDependencies),
		TestDependencies:  depMapToList(raw.TestDependencies),
		Build: BuildTOMLToTable(raw.Build),
		Test:  TestTOMLToTable(raw.Test),
	}

	if len(raw.Platforms) > 0 {
		t.Platforms = make(map[string]PlatformOverlay, len(raw.Platforms))
		for id, overlay := range raw.Platforms {
			po := PlatformOverlay{
				Dependencies:      depMapToList(overlay.Dependencies),
				BuildDependencies: depMapToList(overlay.BuildDependencies),
				TestDependencies:  depMapToList(overlay.TestDependencies),
			}
			if overlay.Build != nil {
				b := BuildTOMLToTable(*overlay.Build)
				po.Build = &b
			}
			if overlay.Test != nil {
				te := TestTOMLToTable(*overlay.Test)
				po.Test = &te
			}
			t.Platforms[id] = po
		}
	}
	return t
}

func depMapToList(deps map[string]string) []string {
	result := make([]string, 0, len(deps))
	for name, req := range deps {
		if req == "" {
			result = append(result, name)
			continue
		}
		result = append(result, name+" "+req)
	}
	return result
}

// BuildTOMLToTable converts the TOML build dialect into the shared
// BuildTable shape (no `modules`/`patches`/rust-mlua fields: those are
// rockspec-only surface).
func BuildTOMLToTable(b BuildTOML) BuildTable {
	return BuildTable{
		Type:              b.Type,
		InstallLua:        b.InstallLua,
		InstallLib:        b.InstallLib,
		InstallBin:        b.InstallBin,
		CopyDirectories:   b.CopyDirectories,
		Variables:         b.Variables,
		BuildTarget:       b.BuildTarget,
		InstallTarget:     b.InstallTarget,
		BuildCommand:      b.BuildCommand,
		InstallCommand:    b.InstallCommand,
		CMakeListsContent: b.CMakeListsContent,
	}
}

// TestTOMLToTable converts the TOML test dialect into the shared TestTable
// shape.
func TestTOMLToTable(t TestTOML) TestTable {
	return TestTable{Type: t.Type, Script: t.Script, Command: t.Command}
}

// Merge applies a partial rockspec (e.g. extra.rockspec) onto a project
// manifest, then re-validates. Each field is a whole-value replacement, not
// a per-entry merge: when the partial declares a field at all, that field
// (its default value and every per-platform override alike) replaces the
// project's outright; an undeclared (empty) partial field leaves the
// project's field, overrides included, untouched. This mirrors
// RocksToml::merge's `other.field.or(self.field)` in the original
// implementation, which replaces wholesale rather than merging by key. The
// partial's `lua` requirement, if present in its dependency list, wins over
// the project's.
func Merge(project *ValidatedManifest, partial *ValidatedManifest) (*ValidatedManifest, error) {
	luaReq := project.LuaReq
	if !partial.LuaReq.IsAny() {
		luaReq = partial.LuaReq
	}

	merged := &ValidatedManifest{
		Package:            project.Package,
		Version:            project.Version,
		Description:        project.Description,
		SupportedPlatforms: project.SupportedPlatforms,
		Dependencies: choosePerPlatform(project.Dependencies, partial.Dependencies, func(d Deps) bool {
			return len(d) == 0
		}),
		BuildDependencies: choosePerPlatform(project.BuildDependencies, partial.BuildDependencies, func(d Deps) bool {
			return len(d) == 0
		}),
		TestDependencies: choosePerPlatform(project.TestDependencies, partial.TestDependencies, func(d Deps) bool {
			return len(d) == 0
		}),
		ExternalDependencies: choosePerPlatform(project.ExternalDependencies, partial.ExternalDependencies, func(e ExternalDeps) bool {
			return len(e) == 0
		}),
		Source: choosePerPlatform(project.Source, partial.Source, func(s SourceSpec) bool {
			return s.Kind == "" && s.URL == ""
		}),
		Build: choosePerPlatform(project.Build, partial.Build, func(b BuildSpec) bool {
			return b.Type == ""
		}),
		Test: choosePerPlatform(project.Test, partial.Test, func(t TestSpec) bool {
			return t.Type == "" && t.Script == "" && t.Command == ""
		}),
		LuaReq: luaReq,
	}
	if err := validateManifest(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// choosePerPlatform picks partial wholesale (default value and per-platform
// overrides alike) when it is declared (not empty per isEmpty), else keeps
// project as-is.
func choosePerPlatform[T any](project, partial platform.PerPlatform[T], isEmpty func(T) bool) platform.PerPlatform[T] {
	if isEmpty(partial.Default) && len(partial.PerPlatform) == 0 {
		return project
	}
	return partial
}
