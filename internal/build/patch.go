package build

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/lux-pm/lux/internal/errs"
)

// applyPatches applies each unified diff in patches to files under
// buildDir, in deterministic filename order, via the system patch binary.
// A rejected hunk is fatal.
func applyPatches(buildDir string, patches map[string]string) error {
	if len(patches) == 0 {
		return nil
	}

	if _, err := exec.LookPath("patch"); err != nil {
		return fmt.Errorf("patch command not found: please install the patch utility")
	}

	names := make([]string, 0, len(patches))
	for name := range patches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := applyOnePatch(buildDir, patches[name]); err != nil {
			return &errs.PatchRejectedError{File: name, Err: err}
		}
	}
	return nil
}

func applyOnePatch(buildDir, contents string) error {
	cmd := exec.Command("patch", "-p1", "--batch")
	cmd.Dir = buildDir
	cmd.Stdin = strings.NewReader(contents)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, out)
	}
	return nil
}
