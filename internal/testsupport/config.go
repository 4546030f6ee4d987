// Package testsupport builds configs, fake media and a stub mkvmerge for
// tests that cross package boundaries.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"trackstrip/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The library root exists; file logging is off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Library.Root = filepath.Join(base, "library")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.Logging.File = ""
	cfgVal.Logging.NoColor = true
	cfgVal.Watch.SettleSeconds = 1

	if err := os.MkdirAll(cfgVal.Library.Root, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLanguages sets the excluded languages.
func WithLanguages(languages ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Exclusion.Languages = languages
	}
}

// WithoutHistory disables the history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
		b.cfg.History.SkipUnchanged = false
	}
}

// stubMKVMerge answers -J by printing the file, which tests fill with JSON,
// and filters by copying <src>.filtered (or src itself) to the output.
const stubMKVMerge = `#!/bin/sh
case "$1" in
--version)
	echo "mkvmerge v80.0 ('Roundabout') 64-bit"
	exit 0
	;;
-J)
	cat "$2"
	exit $?
	;;
-o)
	out="$2"
	for arg in "$@"; do src="$arg"; done
	if [ -f "$src.filtered" ]; then
		cp "$src.filtered" "$out"
	else
		cp "$src" "$out"
	fi
	exit $?
	;;
esac
echo "unsupported arguments: $*" >&2
exit 2
`

// WithStubbedMKVMerge writes the stub mkvmerge and points the config at it.
func WithStubbedMKVMerge() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "mkvmerge")
		if err := os.WriteFile(target, []byte(stubMKVMerge), 0o755); err != nil {
			b.t.Fatalf("write mkvmerge stub: %v", err)
		}
		b.cfg.MKVMerge.Binary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Library.Root)
}

// WriteConfig encodes cfg as TOML at path.
func WriteConfig(t testing.TB, path string, cfg *config.Config) {
	t.Helper()
	data, err := config.Encode(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
