// Package luabridge implements manifest.LuaTableEvaluator by delegating to
// a named external program, the same fixed shell-interface-contract idiom
// backend.ExternalBackend uses for LuaRock-style build backends: the core
// never touches Lua syntax, it only knows how to invoke and decode the
// output of whatever sandboxes and runs the rockspec.
package luabridge

import (
	"bytes"
	"encoding/json"
	"os/exec"

	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/manifest"
)

// DefaultProgram is the external bridge binary name used when none is
// configured, following the PATH-lookup convention the build backends use
// for their own external programs (make, cmake, cargo).
const DefaultProgram = "lux-lua-bridge"

// Bridge evaluates rockspec Lua source by invoking Program with a fixed
// `<program> eval <path>` contract and decoding its stdout as JSON into a
// manifest.RockspecTable. JSON object keys are matched case-insensitively
// against the table's Go field names, so a bridge need only emit a table
// whose keys spell those names (e.g. "Package", "Version", "Build").
type Bridge struct {
	Program string
}

// New builds a Bridge for the named external program. An empty name falls
// back to DefaultProgram.
func New(program string) Bridge {
	if program == "" {
		program = DefaultProgram
	}
	return Bridge{Program: program}
}

// Eval implements manifest.LuaTableEvaluator.
func (b Bridge) Eval(path string) (manifest.RockspecTable, error) {
	cmd := exec.Command(b.Program, "eval", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return manifest.RockspecTable{}, &errs.ManifestParseError{
			Path: path,
			Err:  wrapBridgeError(err, stderr.String()),
		}
	}

	var table manifest.RockspecTable
	if err := json.Unmarshal(stdout.Bytes(), &table); err != nil {
		return manifest.RockspecTable{}, &errs.ManifestParseError{Path: path, Err: err}
	}
	return table, nil
}

func wrapBridgeError(err error, stderr string) error {
	if stderr == "" {
		return err
	}
	return &bridgeError{underlying: err, stderr: stderr}
}

type bridgeError struct {
	underlying error
	stderr     string
}

func (e *bridgeError) Error() string { return e.underlying.Error() + ": " + e.stderr }
func (e *bridgeError) Unwrap() error { return e.underlying }
