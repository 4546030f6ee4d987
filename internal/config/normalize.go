package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeExclusion()
	c.normalizeConvert()
	c.normalizeMKVMerge()
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultWatchSettleSecs
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Library.Root, err = expandPath(strings.TrimSpace(c.Library.Root)); err != nil {
		return fmt.Errorf("library.root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	if strings.HasPrefix(c.Logging.File, "~") {
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	c.Library.Extensions = normalizeExtensions(c.Library.Extensions)
	if len(c.Library.Extensions) == 0 {
		c.Library.Extensions = append([]string(nil), defaultExtensions...)
	}
	dirs := make([]string, 0, len(c.Library.SkipDirs))
	for _, dir := range c.Library.SkipDirs {
		if trimmed := strings.TrimSpace(dir); trimmed != "" {
			dirs = append(dirs, trimmed)
		}
	}
	c.Library.SkipDirs = dirs
}

func (c *Config) normalizeExclusion() {
	langs := make([]string, 0, len(c.Exclusion.Languages))
	seen := make(map[string]struct{}, len(c.Exclusion.Languages))
	for _, lang := range c.Exclusion.Languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	c.Exclusion.Languages = langs
}

func (c *Config) normalizeConvert() {
	c.Convert.SourceExtensions = normalizeExtensions(c.Convert.SourceExtensions)
	if len(c.Convert.SourceExtensions) == 0 {
		c.Convert.SourceExtensions = append([]string(nil), defaultSourceExtensions...)
	}
}

func (c *Config) normalizeMKVMerge() {
	c.MKVMerge.Binary = strings.TrimSpace(c.MKVMerge.Binary)
	if c.MKVMerge.Binary == "" {
		c.MKVMerge.Binary = defaultMKVMergeBinary
	}
	if c.MKVMerge.IdentifyTimeout < 0 {
		c.MKVMerge.IdentifyTimeout = 0
	}
	if c.MKVMerge.RemuxTimeout < 0 {
		c.MKVMerge.RemuxTimeout = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}

// normalizeExtensions lower-cases, adds a leading dot, and de-duplicates.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func lockName(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return "library-" + hex.EncodeToString(sum[:6]) + ".lock"
}
