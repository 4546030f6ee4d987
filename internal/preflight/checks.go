package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"trackstrip/internal/config"
	"trackstrip/internal/deps"
)

// MinFreeSpace is the free space below which the library check warns.
const MinFreeSpace uint64 = 1 << 30

// freeSpace is swapped in tests.
var freeSpace = deps.FreeSpace

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries trackstrip invokes.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "mkvmerge",
			Command:     cfg.MKVMerge.Binary,
			Description: "Required for track identification and filtering",
		},
	}
	return deps.CheckBinaries(requirements)
}

// CheckMKVMergeVersion runs `mkvmerge --version` with a short timeout.
func CheckMKVMergeVersion(ctx context.Context, mkv Versioner) Result {
	const name = "mkvmerge version"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	version, err := mkv.Version(checkCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "version check timed out"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	if version == "" {
		return Result{Name: name, Detail: "empty version output"}
	}
	return Result{Name: name, Passed: true, Detail: version}
}

// CheckFreeSpace warns when dir has less than minimum bytes available. The
// result is optional: a full disk fails individual files, not the run.
func CheckFreeSpace(name, dir string, minimum uint64) Result {
	free, err := freeSpace(dir)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: err.Error()}
	}
	detail := humanize.IBytes(free) + " available"
	if free < minimum {
		return Result{Name: name, Optional: true, Detail: detail + " (below " + humanize.IBytes(minimum) + ")"}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: detail}
}
