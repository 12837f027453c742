package main

import (
	"github.com/danmuck/envelopectl/internal/capture"
	"github.com/danmuck/envelopectl/internal/config"
	"github.com/danmuck/envelopectl/internal/observability"
)

func runServe(e runEnv, args []string) error {
	fs := newFlagSet(e, "serve")
	path := fs.StringP("config", "c", "", "capture config file (defaults apply when empty)")
	addr := fs.String("addr", "", "listen address, overriding the config")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return usageError{"serve takes no positional arguments"}
	}

	cfg := config.DefaultCaptureConfig()
	if *path != "" {
		if cfg, err = config.LoadCaptureConfig(*path); err != nil {
			return err
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if err := config.ValidateCaptureConfig(cfg); err != nil {
		return err
	}
	observability.InitLogger(cfg.Name)
	return capture.New(cfg).Serve(e.ctx)
}
