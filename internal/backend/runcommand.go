package backend

import (
	"context"
	"os/exec"
	"syscall"

	"github.com/lux-pm/lux/internal/errs"
	"golang.org/x/sys/unix"
)

// runCommand runs program with args in dir under env, placing it in its own
// process group (via Setpgid) so a cancelled context can reach the whole
// group — not just the direct child — when the child itself forks (e.g.
// make invoking a sub-make). On non-zero exit it returns a
// *errs.BackendFailureError carrying the captured output.
func runCommand(ctx context.Context, backendName, dir string, env []string, program string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}

	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		exitCode = exitErr.ExitCode()
	}
	return string(out), &errs.BackendFailureError{
		Backend:  backendName,
		Program:  program,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   string(out),
		Stderr:   string(out),
		Err:      err,
	}
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}
