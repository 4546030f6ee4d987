package stripper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"trackstrip/internal/deps"
	"trackstrip/internal/exclusion"
	"trackstrip/internal/library"
	"trackstrip/internal/logging"
	"trackstrip/internal/mkvmerge"
	"trackstrip/internal/track"
)

var (
	// ErrStalePlan means the file's decision changed between Plan and Apply.
	ErrStalePlan = errors.New("plan is stale")
	// ErrInsufficientSpace means the filesystem cannot hold the temp output.
	ErrInsufficientSpace = errors.New("insufficient free space")
	// ErrVerifyFailed means the filtered output did not contain the expected tracks.
	ErrVerifyFailed = errors.New("output verification failed")
	// ErrUnsupportedContainer means mkvmerge cannot read the file.
	ErrUnsupportedContainer = errors.New("unsupported container")
)

// Inspector identifies container contents.
type Inspector interface {
	Identify(ctx context.Context, path string) (track.Identification, error)
}

// Filterer writes a copy of a container without selected tracks.
type Filterer interface {
	Filter(ctx context.Context, req mkvmerge.FilterRequest) error
}

// Skipper reports files that need no inspection, such as ones already checked
// under the same policy and not modified since.
type Skipper interface {
	Unchanged(ctx context.Context, path string, size int64, modTime time.Time, fingerprint string) (bool, error)
}

// Options configures a Stripper. Inspector and Filterer are required.
type Options struct {
	Exclusion exclusion.Config
	Inspector Inspector
	Filterer  Filterer
	Skipper   Skipper
	Observer  Observer
	DryRun    bool

	// FreeSpace defaults to deps.FreeSpace.
	FreeSpace func(dir string) (uint64, error)
	// Replace defaults to os.Rename, which is atomic within a directory.
	Replace func(oldpath, newpath string) error
	Logger  *slog.Logger
}

// Stripper runs plan/apply over media files.
type Stripper struct {
	cfg         exclusion.Config
	fingerprint string
	inspector   Inspector
	filterer    Filterer
	skipper     Skipper
	observer    Observer
	dryRun      bool
	freeSpace   func(string) (uint64, error)
	replace     func(string, string) error
	logger      *slog.Logger
	now         func() time.Time
}

// New validates opts and returns a Stripper.
func New(opts Options) (*Stripper, error) {
	if opts.Inspector == nil {
		return nil, errors.New("stripper: inspector is required")
	}
	if opts.Filterer == nil {
		return nil, errors.New("stripper: filterer is required")
	}
	s := &Stripper{
		cfg:         opts.Exclusion,
		fingerprint: opts.Exclusion.Fingerprint(),
		inspector:   opts.Inspector,
		filterer:    opts.Filterer,
		skipper:     opts.Skipper,
		observer:    opts.Observer,
		dryRun:      opts.DryRun,
		freeSpace:   opts.FreeSpace,
		replace:     opts.Replace,
		logger:      logging.NewComponentLogger(opts.Logger, "stripper"),
		now:         time.Now,
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.freeSpace == nil {
		s.freeSpace = deps.FreeSpace
	}
	if s.replace == nil {
		s.replace = os.Rename
	}
	return s, nil
}

// Plan is the decision computed for one file before anything is written.
type Plan struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Mode     os.FileMode
	Tracks   []track.Track
	Decision exclusion.Decision
}

// Empty reports whether the plan leaves the file as is.
func (p Plan) Empty() bool {
	return p.Decision.Empty()
}

// Removed returns the tracks the plan drops, in container order.
func (p Plan) Removed() []track.Track {
	drop := make(map[string]struct{}, p.Decision.Count())
	for _, id := range p.Decision.AudioIDs {
		drop[id] = struct{}{}
	}
	for _, id := range p.Decision.SubtitleIDs {
		drop[id] = struct{}{}
	}
	var out []track.Track
	for _, t := range p.Tracks {
		if t.Kind == track.Other {
			continue
		}
		if _, ok := drop[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Result reports a completed Apply.
type Result struct {
	Path       string
	Decision   exclusion.Decision
	Removed    []track.Track
	SizeBefore int64
	SizeAfter  int64
	ModTime    time.Time
	Duration   time.Duration
}

// Plan identifies path and computes its exclusion decision. It never writes.
func (s *Stripper) Plan(ctx context.Context, path string) (Plan, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Plan{}, fmt.Errorf("stat: %w", err)
	}
	tracks, err := s.identify(ctx, path)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Mode:     info.Mode().Perm(),
		Tracks:   tracks,
		Decision: exclusion.Decide(tracks, s.cfg),
	}, nil
}

func (s *Stripper) identify(ctx context.Context, path string) ([]track.Track, error) {
	ident, err := s.inspector.Identify(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ident.Container.Readable() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContainer, ident.Container.Type)
	}
	return ident.Tracks()
}

// Apply executes plan. The original is replaced only after the filtered temp
// file has been verified; on any error the original is untouched and the temp
// file is removed.
func (s *Stripper) Apply(ctx context.Context, plan Plan) (Result, error) {
	start := s.now()
	if plan.Empty() {
		return Result{}, errors.New("apply: plan removes nothing")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	info, err := os.Stat(plan.Path)
	if err != nil {
		return Result{}, fmt.Errorf("stat: %w", err)
	}
	tracks, err := s.identify(ctx, plan.Path)
	if err != nil {
		return Result{}, fmt.Errorf("re-identify: %w", err)
	}
	current := exclusion.Decide(tracks, s.cfg)
	if !current.Equal(plan.Decision) {
		return Result{}, fmt.Errorf("%w: planned %v/%v, now %v/%v", ErrStalePlan,
			plan.Decision.AudioIDs, plan.Decision.SubtitleIDs, current.AudioIDs, current.SubtitleIDs)
	}

	dir := filepath.Dir(plan.Path)
	free, err := s.freeSpace(dir)
	if err != nil {
		return Result{}, fmt.Errorf("check free space: %w", err)
	}
	if free < uint64(info.Size()) {
		return Result{}, fmt.Errorf("%w: %d bytes free in %s, need %d", ErrInsufficientSpace, free, dir, info.Size())
	}

	tmp := library.TempPath(plan.Path)
	_ = os.Remove(tmp)
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	req := mkvmerge.FilterRequest{
		Source:      plan.Path,
		Output:      tmp,
		AudioIDs:    current.AudioIDs,
		SubtitleIDs: current.SubtitleIDs,
	}
	if err := s.filterer.Filter(ctx, req); err != nil {
		return Result{}, err
	}
	if err := s.verify(ctx, tmp, tracks, current); err != nil {
		return Result{}, err
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		s.logger.Debug("preserve file mode failed", logging.String(logging.FieldFile, plan.Path), logging.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := s.replace(tmp, plan.Path); err != nil {
		return Result{}, fmt.Errorf("replace original: %w", err)
	}
	committed = true

	result := Result{
		Path:       plan.Path,
		Decision:   current,
		Removed:    Plan{Tracks: tracks, Decision: current}.Removed(),
		SizeBefore: info.Size(),
		Duration:   s.now().Sub(start),
	}
	if after, err := os.Stat(plan.Path); err == nil {
		result.SizeAfter = after.Size()
		result.ModTime = after.ModTime()
	}
	return result, nil
}

// verify checks that output holds exactly the tracks expected to survive.
func (s *Stripper) verify(ctx context.Context, output string, original []track.Track, decision exclusion.Decision) error {
	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: output is empty", ErrVerifyFailed)
	}
	got, err := s.identify(ctx, output)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	wantAudio := track.CountKind(original, track.Audio) - len(decision.AudioIDs)
	wantSubs := track.CountKind(original, track.Subtitle) - len(decision.SubtitleIDs)
	gotAudio := track.CountKind(got, track.Audio)
	gotSubs := track.CountKind(got, track.Subtitle)
	if gotAudio != wantAudio || gotSubs != wantSubs {
		return fmt.Errorf("%w: expected %d audio/%d subtitle tracks, found %d/%d",
			ErrVerifyFailed, wantAudio, wantSubs, gotAudio, gotSubs)
	}
	return nil
}
