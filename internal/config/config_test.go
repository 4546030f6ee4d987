package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"trackstrip/internal/config"
	"trackstrip/internal/exclusion"
	"trackstrip/internal/track"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvLanguages, config.EnvRemoveCommentary, config.EnvRemoveSubtitles, config.EnvBaseDir} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "trackstrip", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Library.Root != "/movies" {
		t.Fatalf("unexpected root %q", cfg.Library.Root)
	}
	if !cfg.Exclusion.RemoveSubtitles || cfg.Exclusion.RemoveCommentary {
		t.Fatalf("unexpected exclusion defaults %+v", cfg.Exclusion)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "trackstrip", "logs") {
		t.Fatalf("unexpected log dir %q", cfg.Paths.LogDir)
	}
	if cfg.LogFilePath() != filepath.Join(cfg.Paths.LogDir, "trackstrip.log") {
		t.Fatalf("unexpected log file %q", cfg.LogFilePath())
	}
	if cfg.IdentifyTimeout() != 2*time.Minute || cfg.RemuxTimeout() != 0 {
		t.Fatalf("unexpected timeouts %v %v", cfg.IdentifyTimeout(), cfg.RemuxTimeout())
	}
	if cfg.SettleDelay() != 30*time.Second {
		t.Fatalf("unexpected settle delay %v", cfg.SettleDelay())
	}
}

func TestLoadFileAndNormalize(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.toml")
	content := `
[library]
root = "~/media"
extensions = ["MKV", "mk3d", ".mkv"]

[exclusion]
languages = [" FRA ", "spa", "fra"]
remove_commentary = true
remove_subtitles = false
expand_aliases = false

[logging]
format = "JSON"
level = "DEBUG"
file = ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution %q %v", resolved, exists)
	}
	home, _ := os.UserHomeDir()
	if cfg.Library.Root != filepath.Join(home, "media") {
		t.Fatalf("expected expanded root, got %q", cfg.Library.Root)
	}
	if !reflect.DeepEqual(cfg.Library.Extensions, []string{".mkv", ".mk3d"}) {
		t.Fatalf("unexpected extensions %v", cfg.Library.Extensions)
	}
	if !reflect.DeepEqual(cfg.Exclusion.Languages, []string{"fra", "spa"}) {
		t.Fatalf("unexpected languages %v", cfg.Exclusion.Languages)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.LogFilePath() != "" {
		t.Fatalf("empty logging.file should disable file output, got %q", cfg.LogFilePath())
	}

	ex := cfg.ExclusionConfig()
	if !ex.RemoveCommentary || ex.RemoveSubtitles {
		t.Fatalf("unexpected exclusion config %+v", ex)
	}
	if !reflect.DeepEqual(ex.Languages(), []string{"fra", "spa"}) {
		t.Fatalf("unexpected excluded set %v", ex.Languages())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[library]\nroots = \"/x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "trackstrip.toml")
	content := "[exclusion]\nlanguages = [\"deu\"]\nremove_commentary = true\nremove_subtitles = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvLanguages, "fra, spa,,")
	t.Setenv(config.EnvRemoveCommentary, "yes")
	t.Setenv(config.EnvRemoveSubtitles, "TRUE")
	t.Setenv(config.EnvBaseDir, filepath.Join(dir, "lib"))

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Exclusion.Languages, []string{"fra", "spa"}) {
		t.Fatalf("expected env languages, got %v", cfg.Exclusion.Languages)
	}
	if cfg.Exclusion.RemoveCommentary {
		t.Fatal(`only "true" should enable remove_commentary`)
	}
	if !cfg.Exclusion.RemoveSubtitles {
		t.Fatal("expected TRUE to enable remove_subtitles")
	}
	if cfg.Library.Root != filepath.Join(dir, "lib") {
		t.Fatalf("expected BASE_DIR root, got %q", cfg.Library.Root)
	}
}

func TestDotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	envFile := "LANGUAGES=ita\nREMOVE_COMMENTARY=true\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv(config.EnvLanguages, "jpn")
	t.Cleanup(func() { os.Unsetenv(config.EnvRemoveCommentary) })

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Exclusion.Languages, []string{"jpn"}) {
		t.Fatalf("process env should win over .env, got %v", cfg.Exclusion.Languages)
	}
	if !cfg.Exclusion.RemoveCommentary {
		t.Fatal("expected .env to supply REMOVE_COMMENTARY")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty root", func(c *config.Config) { c.Library.Root = "" }, "library.root"},
		{"overlapping extensions", func(c *config.Config) { c.Convert.SourceExtensions = []string{".mkv"} }, "convert.source_extensions"},
		{"skip without history", func(c *config.Config) { c.History.Enabled = false; c.History.SkipUnchanged = true }, "history.skip_unchanged"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Library.Root != config.Default().Library.Root {
		t.Fatalf("sample root %q diverges from defaults", decoded.Library.Root)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample should load: %v", err)
	}
}

func TestExclusionConfigAliasesAndSafetyNet(t *testing.T) {
	tracks := []track.Track{
		{ID: "1", Kind: track.Audio, Language: "fre"},
		{ID: "2", Kind: track.Audio, Language: "fra"},
	}
	tests := []struct {
		name      string
		aliases   bool
		wantAudio []string
	}{
		// fre and fra are distinct tags, so the single-language safety net does not apply.
		{name: "aliases exclude both spellings", aliases: true, wantAudio: []string{"1", "2"}},
		{name: "exact tags exclude only fra", aliases: false, wantAudio: []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Exclusion.Languages = []string{"fra"}
			cfg.Exclusion.ExpandAliases = tt.aliases
			got := exclusion.Decide(tracks, cfg.ExclusionConfig())
			if !reflect.DeepEqual(got.AudioIDs, tt.wantAudio) {
				t.Fatalf("audio ids = %v, want %v", got.AudioIDs, tt.wantAudio)
			}
		})
	}
}

func TestLockPathIsStablePerRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/trackstrip"
	a := cfg.LockPath("/movies")
	if a != cfg.LockPath("/movies/") {
		t.Fatal("lock path should ignore trailing separators")
	}
	if a == cfg.LockPath("/tv") {
		t.Fatal("different roots should not share a lock")
	}
	if !strings.HasPrefix(a, "/var/log/trackstrip/locks/library-") {
		t.Fatalf("unexpected lock path %q", a)
	}
}

func TestEncode(t *testing.T) {
	cfg := config.Default()
	data, err := config.Encode(&cfg)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(string(data), "remove_subtitles = true") {
		t.Fatalf("unexpected encoding:\n%s", data)
	}
}
