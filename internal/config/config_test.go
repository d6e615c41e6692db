// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/cellarhq/cellar/internal/issue"
	"github.com/cellarhq/cellar/internal/testutil"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.DefaultRuntime != RuntimeNative {
		t.Errorf("DefaultRuntime = %q, want native", cfg.DefaultRuntime)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto", cfg.UI.ColorScheme)
	}
	if cfg.Timeout != 0 || cfg.KeepWorkDir || cfg.UI.Verbose {
		t.Errorf("unexpected non-zero defaults: %+v", cfg)
	}
	if filepath.Base(cfg.WorkRoot) != AppName {
		t.Errorf("WorkRoot = %q, want a %q dir", cfg.WorkRoot, AppName)
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("DefaultConfig().IsValid() = %v", errs)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if cfg.Prefix != DefaultConfig().Prefix {
		t.Errorf("Prefix = %q, want default", cfg.Prefix)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.cue")
	testutil.MustWriteFile(t, path, `
prefix: "/opt/cellar"
formula_paths: ["/srv/formulas", "/home/me/tap/Formula"]
default_runtime: "virtual"
keep_workdir: true
timeout: "30m"
ui: color_scheme: "dark"
`, 0o644)

	cfg, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Prefix != "/opt/cellar" {
		t.Errorf("Prefix = %q", cfg.Prefix)
	}
	if !slices.Equal(cfg.FormulaPaths, []string{"/srv/formulas", "/home/me/tap/Formula"}) {
		t.Errorf("FormulaPaths = %v", cfg.FormulaPaths)
	}
	if cfg.DefaultRuntime != RuntimeVirtual || !cfg.KeepWorkDir {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 30*time.Minute {
		t.Errorf("Timeout = %v, want 30m", cfg.Timeout)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark || cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if cfg.WorkRoot != DefaultConfig().WorkRoot {
		t.Errorf("WorkRoot = %q, want the default to survive the merge", cfg.WorkRoot)
	}
}

// Environment overrides mutate process state, so these tests do not run
// in parallel.
func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), `prefix: "/opt/cellar"`+"\n", 0o644)
	t.Setenv("CELLAR_PREFIX", "/from/env")
	t.Setenv("CELLAR_UI_VERBOSE", "true")
	t.Setenv("CELLAR_TIMEOUT", "90s")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Prefix != "/from/env" {
		t.Errorf("Prefix = %q, want env override", cfg.Prefix)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose = false, want env override")
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("CELLAR_DEFAULT_RUNTIME", "container")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfigRuntimeMode) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfigRuntimeMode", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "bad syntax", content: "prefix: \"unterminated\n", wantMsg: "config.cue"},
		{name: "unknown runtime", content: `default_runtime: "docker"`, wantMsg: "default_runtime"},
		{name: "bad timeout", content: `timeout: "soon"`, wantMsg: "timeout"},
		{name: "unknown field", content: `container_engine: "podman"`, wantMsg: "container_engine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), tt.content, 0o644)

			_, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("error %T is not an actionable config error", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(t.Context(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestCreateDefaultConfig_RoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, created, err := CreateDefaultConfig(dir)
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", path, created, err)
	}

	cfg, err := NewProvider().Load(t.Context(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Prefix != def.Prefix || cfg.WorkRoot != def.WorkRoot || cfg.DefaultRuntime != def.DefaultRuntime {
		t.Errorf("loaded %+v, want defaults %+v", cfg, def)
	}

	testutil.MustWriteFile(t, path, `prefix: "/custom"`, 0o644)
	if _, created, err := CreateDefaultConfig(dir); err != nil || created {
		t.Errorf("second CreateDefaultConfig() created = %v, err = %v", created, err)
	}
	if got := testutil.MustReadFile(t, path); got != `prefix: "/custom"` {
		t.Error("existing config was overwritten")
	}
}

// The JSON tags of Config must name exactly the fields of #Config so that
// a schema change cannot silently drop a setting.
func TestSchemaMatchesStruct(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileBytes(configSchema).LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		t.Fatalf("schema: %v", schema.Err())
	}

	iter, err := schema.Fields(cue.Optional(true))
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	var cueFields []string
	for iter.Next() {
		cueFields = append(cueFields, strings.TrimSuffix(iter.Selector().String(), "?"))
	}

	data, err := json.Marshal(DefaultConfig())
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var goFields map[string]any
	if err := json.Unmarshal(data, &goFields); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	slices.Sort(cueFields)
	keys := make([]string, 0, len(goFields))
	for k := range goFields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if !slices.Equal(cueFields, keys) {
		t.Errorf("#Config fields %v, Config JSON fields %v", cueFields, keys)
	}
}

func TestConfigDir_Override(t *testing.T) {
	SetConfigDirOverride("/tmp/cellar-config")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil || dir != "/tmp/cellar-config" {
		t.Errorf("ConfigDir() = %q, %v", dir, err)
	}
}

func TestGenerateCUE(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.FormulaPaths = []string{"/srv/formulas"}
	cfg.Timeout = 10 * time.Minute

	out := GenerateCUE(cfg)
	for _, want := range []string{`"/srv/formulas",`, `timeout:         "10m0s"`, `color_scheme: "auto"`} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateCUE() missing %q:\n%s", want, out)
		}
	}
}
