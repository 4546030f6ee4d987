package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ts "trackstrip/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "fra")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowAppliesEnvironment(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("LANGUAGES", "spa,ita")

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "spa")
	requireContains(t, out, "ita")
	if strings.Contains(out, "fra") {
		t.Fatalf("LANGUAGES should replace configured languages: %s", out)
	}
}

func TestScanListsPlannedRemovals(t *testing.T) {
	env := setupCLITestEnv(t)
	film := filepath.Join(env.root, "Film (2001)", "Film (2001).mkv")
	ts.WriteMedia(t, film, ts.Video(0), ts.Audio(1, "eng"), ts.Audio(2, "fra"), ts.Subtitle(3, "fra"))
	ts.WriteMedia(t, filepath.Join(env.root, "Other.mkv"), ts.Video(0), ts.Audio(1, "eng"))
	before, _ := os.ReadFile(film)

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Film (2001).mkv")
	requireContains(t, out, "French #2")
	requireContains(t, out, "French #3")
	requireContains(t, out, "1 of 2 files would change")

	after, _ := os.ReadFile(film)
	if !bytes.Equal(before, after) {
		t.Fatal("scan must not modify files")
	}
}

func TestRunStripsAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	film := filepath.Join(env.root, "Film.mkv")
	ts.WriteMedia(t, film, ts.Video(0), ts.Audio(1, "eng"), ts.Audio(2, "fra"), ts.Subtitle(3, "fra"), ts.Subtitle(4, "eng"))
	ts.WriteFiltered(t, film, ts.Video(0), ts.Audio(1, "eng"), ts.Subtitle(4, "eng"))
	kept := filepath.Join(env.root, "Kept.mkv")
	ts.WriteMedia(t, kept, ts.Video(0), ts.Audio(1, "eng"))

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Changed")

	data, err := os.ReadFile(film)
	if err != nil {
		t.Fatalf("read film: %v", err)
	}
	if !bytes.Equal(data, ts.IdentificationJSON(ts.Video(0), ts.Audio(1, "eng"), ts.Subtitle(4, "eng"))) {
		t.Fatalf("film was not replaced with the filtered output: %s", data)
	}
	entries, _ := os.ReadDir(env.root)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".trackstrip-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}

	store := ts.MustOpenHistory(t, env.cfg)
	latest, ok, err := store.Latest(context.Background(), film)
	if err != nil || !ok {
		t.Fatalf("expected history entry for film: ok=%v err=%v", ok, err)
	}
	if latest.Outcome != "completed" || latest.AudioRemoved != "2" || latest.SubtitlesRemoved != "3" {
		t.Fatalf("unexpected history entry: %+v", latest)
	}
	if unchanged, _, _ := store.Latest(context.Background(), kept); unchanged.Outcome != "unchanged" {
		t.Fatalf("expected unchanged entry for kept file, got %+v", unchanged)
	}
	_ = store.Close()

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "Film.mkv")
}

func TestRunDryRunLeavesFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	film := filepath.Join(env.root, "Film.mkv")
	ts.WriteMedia(t, film, ts.Audio(1, "eng"), ts.Audio(2, "fra"))
	ts.WriteFiltered(t, film, ts.Audio(1, "eng"))
	before, _ := os.ReadFile(film)

	out, _, err := runCLI(t, []string{"run", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	requireContains(t, out, "Would change")
	after, _ := os.ReadFile(film)
	if !bytes.Equal(before, after) {
		t.Fatal("dry run must not modify files")
	}
}

func TestRunLanguageFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	film := filepath.Join(env.root, "Film.mkv")
	ts.WriteMedia(t, film, ts.Audio(1, "eng"), ts.Audio(2, "fra"))

	out, _, err := runCLI(t, []string{"scan", "--languages", "spa"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "No files need changes")
}

func TestRunFailsOnUnreadableMedia(t *testing.T) {
	env := setupCLITestEnv(t)
	ts.WriteFile(t, filepath.Join(env.root, "Broken.mkv"), 16)
	ts.WriteMedia(t, filepath.Join(env.root, "Fine.mkv"), ts.Audio(1, "eng"))

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil {
		t.Fatal("expected run to report the failed file")
	}
	requireContains(t, err.Error(), "1 file(s) failed")
	requireContains(t, out, "Failed")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Library root")
	requireContains(t, out, "mkvmerge v80.0")
	requireContains(t, out, "All required checks passed")
}

func TestCheckCommandReportsMissingRoot(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.root); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail for a missing library root")
	}
	requireContains(t, out, "does not exist")
}

func TestConvertCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.root, "Film.m2ts")
	ts.WriteMedia(t, source, ts.Audio(1, "eng"))

	out, _, err := runCLI(t, []string{"convert"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "Converted 1 of 1")
	if _, err := os.Stat(filepath.Join(env.root, "Film.mkv")); err != nil {
		t.Fatalf("expected converted file: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, got %v", err)
	}
}
