package main

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/danmuck/envelopectl/internal/protocol/envelope"
	"github.com/danmuck/envelopectl/internal/report"
	"github.com/danmuck/envelopectl/internal/tools"
	"github.com/rs/zerolog/log"
)

var runner tools.CommandRunner = tools.ExecRunner{}

func runProgram(e runEnv, args []string) error {
	fs := newFlagSet(e, "run")
	format := fs.StringP("output", "o", formatJSON, "output format: json|yaml")
	dir := fs.String("dir", "", "working directory for the program")
	envVars := fs.StringArray("env", nil, "extra KEY=VALUE environment entries (repeatable)")
	expectPath := fs.StringP("expect", "e", "", "verify stdout against an envelope expectations file")
	allowFailure := fs.Bool("allow-failure", false, "accept a non-zero exit status")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return usageError{"run needs a program, e.g. envelopectl run -- ./example log stdout"}
	}
	for _, kv := range *envVars {
		if !strings.Contains(kv, "=") {
			return usageError{fmt.Sprintf("--env %q is not KEY=VALUE", kv)}
		}
	}

	var exp expectations
	if *expectPath != "" {
		if exp, err = loadExpectations(*expectPath); err != nil {
			return err
		}
		if exp.Format != targetEnvelope {
			return usageError{"run only captures envelopes written to stdout"}
		}
	}

	res, err := runner.Run(e.ctx, tools.Command{Name: rest[0], Args: rest[1:], Dir: *dir, Env: *envVars})
	log.Info().
		Str("program", rest[0]).
		Int("exit_code", res.ExitCode).
		Int("stdout_bytes", len(res.Stdout)).
		Msg("program finished")
	var exitErr *exec.ExitError
	if err != nil && !(*allowFailure && errors.As(err, &exitErr)) {
		if len(res.Stderr) > 0 {
			fmt.Fprintf(e.stderr, "%s", res.Stderr)
		}
		return fmt.Errorf("run %s: %w", rest[0], err)
	}

	env, err := decodeEnvelope(res.Stdout, encodingAuto, envelope.DefaultLimits())
	if err != nil {
		return fmt.Errorf("decode stdout: %w", err)
	}
	if *expectPath != "" {
		if failures := checkEnvelope(env, exp); len(failures) > 0 {
			return checkError{errors.Join(failures...)}
		}
		fmt.Fprintln(e.stdout, "ok")
		return nil
	}
	return writeOutput(e.stdout, *format, report.FromEnvelope(env, true))
}
