package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// RenderRockspec serializes m back to rockspec-style Lua table syntax with
// canonically ordered keys, building the text section by section and
// skipping any section left at its default (empty) value. The lua
// dependency is spliced at the head of `dependencies`.
func (m *ValidatedManifest) RenderRockspec() ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "package = %q\n", m.Package)
	fmt.Fprintf(&b, "version = %q\n", m.Version.String())
	if m.Description != "" {
		fmt.Fprintf(&b, "\ndescription = {\n   summary = %q,\n}\n", m.Description)
	}

	deps := append(Deps{{Name: "lua", Req: m.LuaReq}}, m.Dependencies.Default...)
	renderDepsSection(&b, "dependencies", deps)
	renderDepsSection(&b, "build_dependencies", m.BuildDependencies.Default)
	renderDepsSection(&b, "test_dependencies", m.TestDependencies.Default)

	if len(m.ExternalDependencies.Default) > 0 {
		b.WriteString("\nexternal_dependencies = {\n")
		names := sortedKeys(m.ExternalDependencies.Default)
		for _, name := range names {
			spec := m.ExternalDependencies.Default[name]
			if spec.Kind == ExternalHeader {
				fmt.Fprintf(&b, "   %s = { header = %q },\n", name, spec.Path)
			} else {
				fmt.Fprintf(&b, "   %s = { library = %q },\n", name, spec.Path)
			}
		}
		b.WriteString("}\n")
	}

	src := m.Source.Default
	if src.URL != "" {
		b.WriteString("\nsource = {\n")
		fmt.Fprintf(&b, "   url = %q,\n", src.URL)
		if src.Tag != "" {
			fmt.Fprintf(&b, "   tag = %q,\n", src.Tag)
		}
		if src.Branch != "" {
			fmt.Fprintf(&b, "   branch = %q,\n", src.Branch)
		}
		if src.Dir != "" {
			fmt.Fprintf(&b, "   dir = %q,\n", src.Dir)
		}
		if src.Hash != "" {
			fmt.Fprintf(&b, "   hash = %q,\n", src.Hash)
		}
		b.WriteString("}\n")
	}

	bld := m.Build.Default
	if bld.Type != "" {
		b.WriteString("\nbuild = {\n")
		fmt.Fprintf(&b, "   type = %q,\n", bld.Type)
		if len(bld.CopyDirectories) > 0 {
			fmt.Fprintf(&b, "   copy_directories = {%s},\n", quoteJoin(bld.CopyDirectories))
		}
		b.WriteString("}\n")
	}

	return []byte(b.String()), nil
}

func renderDepsSection(b *strings.Builder, key string, deps Deps) {
	if len(deps) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s = {\n", key)
	for _, d := range deps {
		if d.Req.IsAny() {
			fmt.Fprintf(b, "   %q,\n", d.Name)
		} else {
			fmt.Fprintf(b, "   %q,\n", fmt.Sprintf("%s %s", d.Name, d.Req.String()))
		}
	}
	b.WriteString("}\n")
}

func sortedKeys(m ExternalDeps) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}
