package main

import (
	"fmt"

	"github.com/danmuck/envelopectl/internal/config"
)

func runConfig(e runEnv, args []string) error {
	fs := newFlagSet(e, "config")
	kind := fs.String("kind", "capture", "config kind: capture|expect")
	output := fs.String("output", "", "output path for the template (stdout when empty)")
	validate := fs.Bool("validate", false, "validate an existing config file instead")
	input := fs.String("input", "", "config path for --validate")
	force := fs.Bool("force", false, "overwrite an existing file")
	if _, err := parseFlags(fs, args); err != nil {
		return err
	}

	if *validate {
		if *input == "" {
			return usageError{"--validate needs --input"}
		}
		switch *kind {
		case "capture":
			if _, err := config.LoadCaptureConfig(*input); err != nil {
				return err
			}
		case "expect", "expectations":
			if _, err := loadExpectations(*input); err != nil {
				return err
			}
		default:
			return usageError{fmt.Sprintf("unknown kind: %s", *kind)}
		}
		fmt.Fprintf(e.stdout, "validated %s config at %s\n", *kind, *input)
		return nil
	}

	if *output == "" {
		tpl, err := config.Template(*kind)
		if err != nil {
			return usageError{err.Error()}
		}
		_, err = fmt.Fprint(e.stdout, tpl)
		return err
	}
	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "wrote %s config template to %s\n", *kind, *output)
	return nil
}
