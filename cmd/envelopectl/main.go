package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/danmuck/envelopectl/internal/logging"
	"github.com/spf13/pflag"
)

// exitFailed means the input decoded but a check did not pass.
const (
	exitOK     = 0
	exitError  = 1
	exitFailed = 2
	exitUsage  = 64
)

type runEnv struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	summary string
	run     func(e runEnv, args []string) error
}

var commands = map[string]command{
	"envelope": {"decode an envelope and print its items", runEnvelope},
	"crash":    {"decode a multipart crash upload", runCrash},
	"verify":   {"check an envelope or crash upload against an expectations file", runVerify},
	"serve":    {"run the capture server", runServe},
	"config":   {"write or validate config templates", runConfig},
	"run":      {"run a program and decode the envelope it writes to stdout", runProgram},
}

// usageError marks bad invocations so they exit with exitUsage.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// checkError marks failed verification.
type checkError struct{ err error }

func (e checkError) Error() string { return e.err.Error() }
func (e checkError) Unwrap() error { return e.err }

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(runEnv{ctx: ctx, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(e runEnv, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(e.stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(e.stderr, "envelopectl: unknown command %q\n", args[0])
		usage(e.stderr)
		return exitUsage
	}
	err := cmd.run(e, args[1:])
	var ue usageError
	var ce checkError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.As(err, &ue):
		fmt.Fprintf(e.stderr, "envelopectl %s: %v\n", args[0], err)
		return exitUsage
	case errors.As(err, &ce):
		fmt.Fprintf(e.stderr, "envelopectl %s: checks failed:\n%v\n", args[0], ce.err)
		return exitFailed
	default:
		fmt.Fprintf(e.stderr, "envelopectl %s: %v\n", args[0], err)
		return exitError
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: envelopectl <command> [flags] [args]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
}

func newFlagSet(e runEnv, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.SortFlags = false
	return fs
}

// parseFlags parses args and returns the positional arguments, turning
// parse failures into usage errors.
func parseFlags(fs *pflag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, usageError{err.Error()}
	}
	return fs.Args(), nil
}

// readInput reads a file, or stdin for "-".
func readInput(e runEnv, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(e.stdin)
	}
	return os.ReadFile(path)
}

func singleInput(args []string) (string, error) {
	if len(args) != 1 {
		return "", usageError{fmt.Sprintf("expected one input path (or -), got %d", len(args))}
	}
	return args[0], nil
}
