package preflight

import (
	"context"
	"path/filepath"

	"trackstrip/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool // failure is reported but does not block a run
	Detail   string
}

// Versioner reports the installed mkvmerge version.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config, mkv Versioner) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Library root (always checked)
	results = append(results, CheckDirectoryAccess("Library root", cfg.Library.Root))

	// Log directory, only when logging to a file
	if cfg.LogFilePath() != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	// History database directory
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.History.Path)))
	}

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   depDetail(status.Available, status.Path, status.Detail),
		})
	}

	if mkv != nil {
		results = append(results, CheckMKVMergeVersion(ctx, mkv))
	}

	results = append(results, CheckFreeSpace("Library free space", cfg.Library.Root, MinFreeSpace))
	return results
}

// Blocking reports whether any required check failed.
func Blocking(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

func depDetail(available bool, path, detail string) string {
	if available {
		return path
	}
	return detail
}
