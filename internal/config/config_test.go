package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func TestCaptureTemplateLoads(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "capture.toml")
	if err := WriteTemplate(path, "capture", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "capture", false); err == nil {
		t.Fatalf("expected existing config to be kept")
	}
	cfg, err := LoadCaptureConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8765" || cfg.MaxStored != 1024 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if keys := cfg.ProjectKeys(); keys["123456"] != "uiaeosnrtdy" {
		t.Fatalf("unexpected project keys: %v", keys)
	}
	if cfg.Limits.EnvelopeLimits().MaxHeaderBytes != 65536 {
		t.Fatalf("limits not mapped: %+v", cfg.Limits)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "min.toml")
	if err := os.WriteFile(path, []byte("addr = \":9999\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadCaptureConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != defaultName || cfg.Addr != ":9999" || cfg.MaxBody != defaultMaxBody {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.ProjectKeys() != nil {
		t.Fatalf("expected open project set")
	}
}

func TestValidateCaptureConfigRejects(t *testing.T) {
	testlog.Start(t)
	cases := map[string]CaptureConfig{
		"negative body": {Name: "x", Addr: ":1", MaxBody: -1},
		"bad limits":    {Name: "x", Addr: ":1", Limits: LimitsConfig{MaxItemBytes: -5}},
		"empty project": {Name: "x", Addr: ":1", Projects: []ProjectConfig{{ID: " "}}},
		"slash project": {Name: "x", Addr: ":1", Projects: []ProjectConfig{{ID: "a/b"}}},
		"dup project":   {Name: "x", Addr: ":1", Projects: []ProjectConfig{{ID: "1"}, {ID: "1"}}},
		"missing addr":  {Name: "x"},
	}
	for name, cfg := range cases {
		if err := ValidateCaptureConfig(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := ValidateCaptureConfig(DefaultCaptureConfig()); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	testlog.Start(t)
	if _, err := Template("ghost"); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if tpl, err := Template(" Expect "); err != nil || !strings.Contains(tpl, "[event]") {
		t.Fatalf("expect template: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadCaptureConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}
