package backend

import "testing"

func TestSelectDispatchesOnBuildType(t *testing.T) {
	cases := map[string]BuildBackend{
		"builtin":   BuiltinBackend{},
		"":          BuiltinBackend{},
		"make":      MakeBackend{},
		"cmake":     CMakeBackend{},
		"command":   CommandBackend{},
		"rust-mlua": RustMluaBackend{},
	}
	for buildType, want := range cases {
		got := Select(buildType)
		if got != want {
			t.Errorf("Select(%q) = %T, want %T", buildType, got, want)
		}
	}
}

func TestSelectFallsBackToExternalBackend(t *testing.T) {
	got := Select("luarocks-build-rust-mlua")
	ext, ok := got.(ExternalBackend)
	if !ok {
		t.Fatalf("Select(%q) = %T, want ExternalBackend", "luarocks-build-rust-mlua", got)
	}
	if ext.Name != "luarocks-build-rust-mlua" {
		t.Errorf("ExternalBackend.Name = %q, want %q", ext.Name, "luarocks-build-rust-mlua")
	}
}

func TestModulePathMapsDotsToSeparator(t *testing.T) {
	if got := modulePath("foo.bar", "lua", false); got != "foo/bar.lua" {
		t.Errorf("modulePath = %q, want foo/bar.lua", got)
	}
	if got := modulePath("foo", "lua", false); got != "foo.lua" {
		t.Errorf("modulePath = %q, want foo.lua", got)
	}
	if got := modulePath("foo", "lua", true); got != "foo/init.lua" {
		t.Errorf("modulePath = %q, want foo/init.lua", got)
	}
}

func TestMakeArgsOrdersVariablesDeterministically(t *testing.T) {
	args := makeArgs("install", map[string]string{"B": "2", "A": "1"})
	if len(args) != 3 || args[0] != "A=1" || args[1] != "B=2" || args[2] != "install" {
		t.Errorf("makeArgs = %v, want [A=1 B=2 install]", args)
	}
}

func TestMergeVarsOverrideWins(t *testing.T) {
	merged := mergeVars(map[string]string{"X": "base"}, map[string]string{"X": "override", "Y": "new"})
	if merged["X"] != "override" || merged["Y"] != "new" {
		t.Errorf("mergeVars = %v", merged)
	}
}

func TestModuleLeafTakesLastDottedComponent(t *testing.T) {
	if got := moduleLeaf("foo.bar.baz"); got != "baz" {
		t.Errorf("moduleLeaf = %q, want baz", got)
	}
	if got := moduleLeaf("foo"); got != "foo" {
		t.Errorf("moduleLeaf = %q, want foo", got)
	}
}
