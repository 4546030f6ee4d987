package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"trackstrip/internal/config"
	"trackstrip/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session is the per-invocation state shared by the commands that touch media.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	ctx    context.Context
}

// newSession copies the loaded config (so flag overrides stay local), builds
// the logger and tags the context with a fresh run id. Observers pick the run
// id up from the context.
func (c *commandContext) newSession(cmd *cobra.Command) (*session, error) {
	loaded, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if loaded == nil {
		return nil, errors.New("configuration not loaded")
	}
	cfg := *loaded
	logger, closer, err := logging.NewFromConfig(&cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	ctx := logging.WithRunID(cmd.Context(), logging.NewRunID())
	return &session{
		cfg:    &cfg,
		logger: logger,
		closer: closer,
		ctx:    ctx,
	}, nil
}

func (s *session) close() {
	if s != nil && s.closer != nil {
		_ = s.closer.Close()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
