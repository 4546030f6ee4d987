package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLibrary() error {
	if c.Library.Root == "" {
		return errors.New("library.root must be set (or BASE_DIR exported)")
	}
	if len(c.Library.Extensions) == 0 {
		return errors.New("library.extensions must list at least one extension")
	}
	return nil
}

func (c *Config) validateConvert() error {
	for _, ext := range c.Convert.SourceExtensions {
		if slices.Contains(c.Library.Extensions, ext) {
			return fmt.Errorf("convert.source_extensions: %q is also a library extension", ext)
		}
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.SkipUnchanged && !c.History.Enabled {
		return errors.New("history.skip_unchanged requires history.enabled")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path must be set when history is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
