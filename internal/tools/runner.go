package tools

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Command describes one program invocation. Env entries are appended to
// the current environment.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// Result is what a finished command produced. ExitCode is 127 when the
// program could not be started and -1 when it was killed by a signal.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner abstracts process execution so callers can be tested
// without spawning programs.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, err
	}
	res.ExitCode = 1
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
		res.ExitCode = 127
	}
	return res, err
}

// FuncRunner adapts a function into a CommandRunner.
type FuncRunner func(ctx context.Context, cmd Command) (Result, error)

func (f FuncRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	return f(ctx, cmd)
}
