package tools

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	testlog.Start(t)
	requireShell(t)
	res, err := ExecRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", `printf '%s' "$GREETING"; printf err >&2`},
		Env:  []string{"GREETING=hello"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if string(res.Stdout) != "hello" || string(res.Stderr) != "err" || res.ExitCode != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecRunnerExitCodes(t *testing.T) {
	testlog.Start(t)
	requireShell(t)
	res, err := ExecRunner{}.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || res.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d err=%v", res.ExitCode, err)
	}

	res, err = ExecRunner{}.Run(context.Background(), Command{Name: "definitely-not-a-program-envelopectl"})
	if err == nil || res.ExitCode != 127 {
		t.Fatalf("expected 127 for missing program, got %d err=%v", res.ExitCode, err)
	}
}

func TestFuncRunner(t *testing.T) {
	testlog.Start(t)
	r := FuncRunner(func(_ context.Context, c Command) (Result, error) {
		return Result{Stdout: []byte(strings.Join(c.Args, ","))}, nil
	})
	res, err := r.Run(context.Background(), Command{Name: "x", Args: []string{"a", "b"}})
	if err != nil || string(res.Stdout) != "a,b" {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
}
