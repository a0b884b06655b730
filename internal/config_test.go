package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/snapcode/internal/snapshot"
	"github.com/starford/snapcode/internal/testutil"
	pkgconfig "github.com/starford/snapcode/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Watch.Cooldown != 2*time.Second {
		t.Errorf("cooldown = %v, want 2s", cfg.Watch.Cooldown)
	}
	if cfg.History.Enabled() {
		t.Error("history should be disabled by default")
	}
	if cfg.App.HTTP.Enabled {
		t.Error("http should be disabled by default")
	}
}

func TestHTTPConfig_PortCheckedOnlyWhenEnabled(t *testing.T) {
	cfg := HTTPConfig{Enabled: false, Port: 0}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled server should skip port check: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("enabled server with port 0 should fail")
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("port above 65535 should fail")
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := ApplicationConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty format should default: %v", err)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("format = %q, want text", cfg.LogFormat)
	}
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestWatchConfig_Validate(t *testing.T) {
	if err := (&WatchConfig{Cooldown: -time.Second, QueueSize: 1}).Validate(); err == nil {
		t.Error("negative cooldown should fail")
	}
	if err := (&WatchConfig{QueueSize: 0}).Validate(); err == nil {
		t.Error("zero queue size should fail")
	}
	if err := (&WatchConfig{Cooldown: 0, QueueSize: 4}).Validate(); err != nil {
		t.Errorf("zero cooldown is allowed: %v", err)
	}
}

func TestProjectConfig_BlankExtraExclude(t *testing.T) {
	cfg := ProjectConfig{Root: ".", ExtraExcludes: []string{"node_modules", ""}}
	if err := cfg.Validate(); err == nil {
		t.Error("blank exclude token should fail")
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("SNAPCODE_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
app:
  log_level: debug
  log_format: json
project:
  root: /srv/project
  output: out/snapshot.txt
  extra_excludes: [node_modules, dist]
watch:
  cooldown: 500ms
  queue_size: 4
auth:
  mode: token
  token: ${SNAPCODE_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watch.Cooldown != 500*time.Millisecond || cfg.Watch.QueueSize != 4 {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Project.Output != "out/snapshot.txt" || len(cfg.Project.ExtraExcludes) != 2 {
		t.Errorf("project = %+v", cfg.Project)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token not expanded: %q", cfg.Auth.Token)
	}
	if cfg.App.LogFormat != LogFormatJSON {
		t.Errorf("log format = %q", cfg.App.LogFormat)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	loaded, err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if loaded {
		t.Error("missing file reported as loaded")
	}
	if cfg.Watch.QueueSize != 16 {
		t.Errorf("defaults lost: %+v", cfg.Watch)
	}
}

func TestDefaultConfigFile_ExcludedFromSnapshots(t *testing.T) {
	root, store := testutil.TestProject(t, map[string]string{
		DefaultConfigFile:    "app:\n  log_level: debug\n",
		"config/config.yaml": "app:\n  http:\n    enabled: true\n",
	})
	files, err := snapshot.New(store).Files()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if f == DefaultConfigFile {
			t.Errorf("%s included in snapshot of %s", DefaultConfigFile, root)
		}
	}
}
