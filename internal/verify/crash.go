package verify

import (
	"errors"
	"fmt"

	"github.com/danmuck/envelopectl/internal/protocol"
	"github.com/danmuck/envelopectl/internal/protocol/breadcrumbs"
	"github.com/danmuck/envelopectl/internal/protocol/crashupload"
	"github.com/rs/zerolog/log"
)

type CrashOptions struct {
	// Event, when set, must be matched by the decoded event.
	Event map[string]any
	// Attachments lists filenames that must be present.
	Attachments   []string
	ViewHierarchy bool
	// SkipRingLog disables the breadcrumb ring validation.
	SkipRingLog bool
	Ring        breadcrumbs.Options
}

func DefaultCrashOptions() CrashOptions {
	return CrashOptions{Ring: breadcrumbs.DefaultOptions()}
}

// CrashUpload checks a decoded crash upload: an event part, both
// breadcrumb parts and a minidump with valid magic, plus whatever opts
// asks for. All failures are reported together.
func CrashUpload(b *crashupload.Bundle, opts CrashOptions) error {
	var errs []error
	files := make(map[string]bool)
	for _, f := range b.Files() {
		files[f] = true
	}
	for _, name := range []string{crashupload.FileBreadcrumbs1, crashupload.FileBreadcrumbs2, crashupload.FileEvent} {
		if !files[name] {
			errs = append(errs, CheckError{Check: "crash", Path: name, Reason: "part missing"})
		}
	}

	if !b.HasMinidump() {
		errs = append(errs, ErrNoMinidump)
	} else if err := protocol.ValidateMinidump(b.Minidump); err != nil {
		errs = append(errs, err)
	}

	if opts.Event != nil {
		if err := mismatch("crash event", b.Event, opts.Event); err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range opts.Attachments {
		if _, ok := b.Attachments[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %v", ErrNoItem, CheckError{Check: "crash attachment", Path: name, Reason: "not found"}))
		}
	}
	if opts.ViewHierarchy && b.ViewHierarchy == nil {
		errs = append(errs, CheckError{Check: "crash", Path: crashupload.FileViewHierarchy, Reason: "part missing"})
	}
	if !opts.SkipRingLog {
		if err := b.RingLog().Validate(opts.Ring); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	log.Debug().Int("parts", len(b.Parts)).Int("failures", len(errs)).Msg("verify crash upload")
	return err
}
