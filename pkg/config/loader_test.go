package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(WithEnviron(environ()))
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.Surface.StartupTimeout != 60*time.Second {
		t.Fatalf("startup timeout = %s, want 60s", cfg.Surface.StartupTimeout)
	}
	if cfg.Surface.ProbeTimeout != 2*time.Second || cfg.Surface.ProbeInterval != time.Second {
		t.Fatalf("unexpected probe settings %+v", cfg.Surface)
	}
	if cfg.Surface.StopGrace != 5*time.Second {
		t.Fatalf("stop grace = %s, want 5s", cfg.Surface.StopGrace)
	}
	if cfg.Server.Port != 3000 || cfg.Source.Kind != "mock" {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Server, cfg.Source)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	cfg, err := Load(WithEnviron(environ(
		"CARDGEN_SERVER_PORT=8080",
		"CARDGEN_SURFACE_STARTUP_TIMEOUT=90s",
		"CARDGEN_RENDER_RETRIES=3",
		"CARDGEN_SURFACE_COMMAND=bin/cardgen --config 'my config.yml'",
		"SANDBOX=true",
		"UNRELATED=1",
	)))
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Surface.StartupTimeout != 90*time.Second {
		t.Fatalf("startup timeout = %s, want 90s", cfg.Surface.StartupTimeout)
	}
	if cfg.Render.Retries != 3 {
		t.Fatalf("retries = %d, want 3", cfg.Render.Retries)
	}
	if cfg.Surface.Command != "bin/cardgen --config 'my config.yml'" {
		t.Fatalf("command = %v", cfg.Surface.Command)
	}
	if !cfg.Server.Sandbox {
		t.Fatalf("expected SANDBOX to enable sandbox mode")
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cardgen.yml")
	content := "log:\n  level: debug\nserver:\n  port: 4000\n  rate_limit: 60-M\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(WithFile(file), WithEnviron(environ("CARDGEN_SERVER_PORT=5000")))
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Server.RateLimit != "60-M" {
		t.Fatalf("file values not applied: %+v %+v", cfg.Log, cfg.Server)
	}
	if cfg.Server.Port != 5000 {
		t.Fatalf("environment must win over the file, got %d", cfg.Server.Port)
	}
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	if _, err := Load(WithFile(filepath.Join(t.TempDir(), "absent.yml")), WithEnviron(environ())); err != nil {
		t.Fatalf("Load(): %v", err)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(WithEnviron(environ("CARDGEN_SOURCE_KIND=ftp")))
	if err == nil {
		t.Fatalf("expected validation error for unknown source kind")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cardgen.yml")
	if err := os.WriteFile(file, []byte("server: [port\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(WithFile(file), WithEnviron(environ())); err == nil {
		t.Fatalf("expected a parse error for malformed YAML")
	}
}
