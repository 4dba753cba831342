package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Result is the captured outcome of one tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns stderr followed by stdout, the text failures are
// classified from.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stderr + "\n" + r.Stdout)
}

// RunOptions tune a single invocation.
type RunOptions struct {
	Dir string
	Env []string
}

// Runner invokes external tools. A non-zero exit is reported through
// Result.ExitCode; the error is reserved for tools that could not be started.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts RunOptions) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs tools as subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, opts RunOptions) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("tool", name).Str("dir", opts.Dir).Msg("Running tool")
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, ctx.Err()
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, err
	}
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
