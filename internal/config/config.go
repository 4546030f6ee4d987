package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"trackstrip/internal/exclusion"
	"trackstrip/internal/language"
)

//go:embed sample_config.toml
var sampleConfig string

// Environment variables honoured on top of the config file.
const (
	EnvLanguages        = "LANGUAGES"
	EnvRemoveCommentary = "REMOVE_COMMENTARY"
	EnvRemoveSubtitles  = "REMOVE_SUBTITLES"
	EnvBaseDir          = "BASE_DIR"
)

// Library describes where media lives and which files are considered.
type Library struct {
	Root       string   `toml:"root"`
	Extensions []string `toml:"extensions"`
	SkipDirs   []string `toml:"skip_dirs"`
}

// Exclusion holds the track exclusion policy as configured.
type Exclusion struct {
	Languages        []string `toml:"languages"`
	RemoveCommentary bool     `toml:"remove_commentary"`
	RemoveSubtitles  bool     `toml:"remove_subtitles"`
	// ExpandAliases widens each language to its 2-letter and both 3-letter spellings.
	ExpandAliases bool `toml:"expand_aliases"`
}

// Convert controls remuxing non-Matroska sources to .mkv.
type Convert struct {
	Enabled          bool     `toml:"enabled"`
	SourceExtensions []string `toml:"source_extensions"`
}

// MKVMerge configures the external tool. Timeouts are seconds; 0 disables.
type MKVMerge struct {
	Binary          string `toml:"binary"`
	IdentifyTimeout int    `toml:"identify_timeout"`
	RemuxTimeout    int    `toml:"remux_timeout"`
}

// History configures the processed-file database.
type History struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	SkipUnchanged bool   `toml:"skip_unchanged"`
}

// Watch configures watch mode.
type Watch struct {
	SettleSeconds int `toml:"settle_seconds"`
}

// Paths contains auxiliary directories.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	NoColor    bool   `toml:"no_color"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for trackstrip.
type Config struct {
	Library   Library   `toml:"library"`
	Exclusion Exclusion `toml:"exclusion"`
	Convert   Convert   `toml:"convert"`
	MKVMerge  MKVMerge  `toml:"mkvmerge"`
	History   History   `toml:"history"`
	Watch     Watch     `toml:"watch"`
	Paths     Paths     `toml:"paths"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/trackstrip/config.toml")
}

// Load locates, parses, and validates a configuration file, then applies
// environment overrides. It reports the resolved path and whether a file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := LoadDotEnv(".env", filepath.Join(filepath.Dir(resolvedPath), ".env")); err != nil {
		return nil, "", false, err
	}
	cfg.applyEnv(os.LookupEnv)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// LoadDotEnv reads each existing file into the process environment. Variables
// already set are left untouched.
func LoadDotEnv(paths ...string) error {
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overlays the environment variables the original scripts read.
// Booleans are true only for "true" in any case.
func (c *Config) applyEnv(lookup lookupFunc) {
	if value, ok := lookup(EnvLanguages); ok {
		c.Exclusion.Languages = splitList(value)
	}
	if value, ok := lookup(EnvRemoveCommentary); ok {
		c.Exclusion.RemoveCommentary = parseEnvBool(value)
	}
	if value, ok := lookup(EnvRemoveSubtitles); ok {
		c.Exclusion.RemoveSubtitles = parseEnvBool(value)
	}
	if value, ok := lookup(EnvBaseDir); ok && strings.TrimSpace(value) != "" {
		c.Library.Root = strings.TrimSpace(value)
	}
}

func parseEnvBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("trackstrip.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ExclusionConfig builds the immutable policy consumed by the decision engine.
func (c *Config) ExclusionConfig() exclusion.Config {
	langs := language.ExpandList(c.Exclusion.Languages, c.Exclusion.ExpandAliases)
	return exclusion.NewConfig(langs, c.Exclusion.RemoveCommentary, c.Exclusion.RemoveSubtitles)
}

// LogFilePath returns the rotated log file location, or "" when file logging is off.
func (c *Config) LogFilePath() string {
	file := strings.TrimSpace(c.Logging.File)
	if file == "" {
		return ""
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.Paths.LogDir, file)
}

// LockPath returns the run lock file for the given library root.
func (c *Config) LockPath(root string) string {
	return filepath.Join(c.Paths.LogDir, "locks", lockName(root))
}

// IdentifyTimeout returns the mkvmerge identify timeout.
func (c *Config) IdentifyTimeout() time.Duration {
	return time.Duration(c.MKVMerge.IdentifyTimeout) * time.Second
}

// RemuxTimeout returns the mkvmerge filter/remux timeout.
func (c *Config) RemuxTimeout() time.Duration {
	return time.Duration(c.MKVMerge.RemuxTimeout) * time.Second
}

// SettleDelay returns how long a watched file must stay quiet before processing.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Watch.SettleSeconds) * time.Second
}

// EnsureDirectories creates the log directory and the history database directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
