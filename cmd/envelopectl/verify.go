package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/envelopectl/internal/protocol/envelope"
	"github.com/danmuck/envelopectl/internal/verify"
	"github.com/rs/zerolog/log"
)

func runVerify(e runEnv, args []string) error {
	fs := newFlagSet(e, "verify")
	expectPath := fs.StringP("expect", "e", "", "expectations file (.toml, .json or .jsonc)")
	encoding := fs.String("encoding", encodingAuto, "content encoding of the input: auto|identity|gzip|deflate|zstd")
	contentType := fs.String("content-type", "", "crash upload Content-Type; the boundary is sniffed when empty")
	format := fs.String("format", "", "override the expectations format: envelope|crash")
	requireGzip := fs.Bool("require-gzip", false, "fail unless the input carries a gzip file header")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	path, err := singleInput(rest)
	if err != nil {
		return err
	}
	if *expectPath == "" {
		return usageError{"--expect is required"}
	}
	exp, err := loadExpectations(*expectPath)
	if err != nil {
		return err
	}
	if *format != "" {
		exp.Format = *format
	}
	body, err := readInput(e, path)
	if err != nil {
		return err
	}

	var failures []error
	if *requireGzip {
		if err := verify.GzipFileHeader(body); err != nil {
			failures = append(failures, err)
		}
	}
	switch exp.Format {
	case targetEnvelope:
		env, err := decodeEnvelope(body, *encoding, envelope.DefaultLimits())
		if err != nil {
			return err
		}
		failures = append(failures, checkEnvelope(env, exp)...)
	case targetCrash:
		bundle, err := decodeCrash(body, *contentType, *encoding)
		if err != nil {
			return err
		}
		opts := verify.DefaultCrashOptions()
		opts.Event = exp.Event
		opts.Attachments = exp.Attachments
		opts.ViewHierarchy = exp.ViewHierarchy
		opts.SkipRingLog = !exp.RingLog
		if err := verify.CrashUpload(bundle, opts); err != nil {
			failures = append(failures, err)
		}
	default:
		return usageError{fmt.Sprintf("unknown format %q", exp.Format)}
	}

	if len(failures) > 0 {
		return checkError{errors.Join(failures...)}
	}
	log.Info().Str("input", path).Str("format", exp.Format).Msg("all checks passed")
	fmt.Fprintln(e.stdout, "ok")
	return nil
}

func checkEnvelope(env *envelope.Envelope, exp expectations) []error {
	var failures []error
	add := func(err error) {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if exp.Event != nil {
		add(verify.Event(env, exp.Event))
	}
	if exp.Session != nil {
		add(verify.Session(env, exp.Session))
	}
	if exp.Breadcrumb != nil {
		add(verify.Breadcrumb(env, exp.Breadcrumb))
	}
	if exp.DebugBreadcrumb {
		add(verify.DebugBreadcrumb(env))
	}
	for _, name := range exp.Attachments {
		add(verify.Attachment(env, name))
	}
	if exp.Minidump {
		add(verify.Minidump(env))
	}
	if exp.Stacktrace {
		add(verify.Stacktrace(env, exp.StacktraceInException, true))
	}
	if exp.EventDate {
		event, ok := env.Event()
		if !ok {
			add(verify.ErrNoEvent)
		} else {
			add(verify.Timestamp(event["timestamp"], time.Now()))
		}
	}
	return failures
}
