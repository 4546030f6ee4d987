package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trackstrip/internal/config"
	"trackstrip/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	root       string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	clearTrackstripEnv(t)

	opts = append([]testsupport.ConfigOption{
		testsupport.WithStubbedMKVMerge(),
		testsupport.WithLanguages("fra"),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	testsupport.WriteConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, root: cfg.Library.Root}
}

// clearTrackstripEnv unsets the variables config.Load overlays so the host
// environment cannot leak into a test.
func clearTrackstripEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvLanguages,
		config.EnvRemoveCommentary,
		config.EnvRemoveSubtitles,
		config.EnvBaseDir,
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
