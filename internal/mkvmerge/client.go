// Package mkvmerge wraps the MKVToolNix mkvmerge binary: JSON identification,
// track-selection filtering, and plain remuxing into Matroska.
package mkvmerge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"trackstrip/internal/logging"
	"trackstrip/internal/track"
)

// DefaultBinary is the mkvmerge executable name.
const DefaultBinary = "mkvmerge"

// commandRunner executes name with args and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures a Client.
type Options struct {
	Binary          string
	IdentifyTimeout time.Duration
	RemuxTimeout    time.Duration
}

// Client invokes mkvmerge.
type Client struct {
	binary          string
	identifyTimeout time.Duration
	remuxTimeout    time.Duration
	logger          *slog.Logger
	run             commandRunner
}

// New constructs an mkvmerge client.
func New(opts Options, logger *slog.Logger) *Client {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{
		binary:          binary,
		identifyTimeout: opts.IdentifyTimeout,
		remuxTimeout:    opts.RemuxTimeout,
		logger:          logging.NewComponentLogger(logger, "mkvmerge"),
		run:             defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (c *Client) WithCommandRunner(r commandRunner) {
	if c != nil && r != nil {
		c.run = r
	}
}

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// Identify runs `mkvmerge -J` and parses the result.
func (c *Client) Identify(ctx context.Context, path string) (track.Identification, error) {
	if strings.TrimSpace(path) == "" {
		return track.Identification{}, errors.New("mkvmerge identify: empty path")
	}
	ctx, cancel := withOptionalTimeout(ctx, c.identifyTimeout)
	defer cancel()

	output, err := c.run(ctx, c.binary, "-J", path)
	if err != nil {
		return track.Identification{}, fmt.Errorf("mkvmerge identify: %w", err)
	}
	return track.ParseIdentification(output)
}

// FilterRequest describes a track-exclusion remux.
type FilterRequest struct {
	Source      string
	Output      string
	AudioIDs    []string // audio track ids to drop
	SubtitleIDs []string // subtitle track ids to drop
}

// Filter writes Output as a copy of Source without the listed tracks.
func (c *Client) Filter(ctx context.Context, req FilterRequest) error {
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Output) == "" {
		return errors.New("mkvmerge filter: source and output are required")
	}
	args := buildFilterArgs(req)
	c.logger.Debug("executing mkvmerge",
		logging.String("source", req.Source),
		logging.String("output", req.Output),
		logging.String("args", strings.Join(args, " ")),
	)
	return c.remux(ctx, "filter", args)
}

// Remux rewrites Source into a Matroska container at Output keeping every track.
func (c *Client) Remux(ctx context.Context, source, output string) error {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(output) == "" {
		return errors.New("mkvmerge remux: source and output are required")
	}
	c.logger.Debug("executing mkvmerge",
		logging.String("source", source),
		logging.String("output", output),
	)
	return c.remux(ctx, "remux", []string{"-o", output, source})
}

// Version returns the first line of `mkvmerge --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	output, err := c.run(ctx, c.binary, "--version")
	if err != nil {
		return "", fmt.Errorf("mkvmerge version: %w", err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line), nil
}

func (c *Client) remux(ctx context.Context, op string, args []string) error {
	ctx, cancel := withOptionalTimeout(ctx, c.remuxTimeout)
	defer cancel()

	if _, err := c.run(ctx, c.binary, args...); err != nil {
		if isWarningExit(err) {
			logging.WarnWithContext(c.logger, "mkvmerge finished with warnings", "mkvmerge_warning",
				logging.String("operation", op),
				logging.Error(err),
				logging.String(logging.FieldImpact, "output written; review warnings"),
			)
			return nil
		}
		return fmt.Errorf("mkvmerge %s: %w", op, err)
	}
	return nil
}

// buildFilterArgs constructs `-o out [-a !ids] [-s !ids] src`.
func buildFilterArgs(req FilterRequest) []string {
	args := []string{"-o", req.Output}
	if len(req.AudioIDs) > 0 {
		args = append(args, "-a", "!"+strings.Join(req.AudioIDs, ","))
	}
	if len(req.SubtitleIDs) > 0 {
		args = append(args, "-s", "!"+strings.Join(req.SubtitleIDs, ","))
	}
	return append(args, req.Source)
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// mkvmerge exits 1 when it completed but emitted warnings.
func isWarningExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

// defaultCommandRunner executes mkvmerge and returns stdout.
func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// mkvmerge reports most errors on stdout.
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = lastLines(stdout.String(), 5)
		}
		if detail == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, detail)
	}
	return stdout.Bytes(), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
