// Package exclusion decides which audio and subtitle tracks to strip from a
// container.
//
// Decide is pure: it reads only its arguments and allocates a fresh Decision
// per call, so it is safe to call from any number of goroutines.
package exclusion

import (
	"sort"
	"strconv"
	"strings"

	"trackstrip/internal/track"
)

// Config holds the exclusion policy for a run.
type Config struct {
	ExcludedLanguages map[string]struct{}
	RemoveCommentary  bool
	RemoveSubtitles   bool
}

// NewConfig builds a Config, lower-casing and de-duplicating languages.
func NewConfig(languages []string, removeCommentary, removeSubtitles bool) Config {
	set := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return Config{
		ExcludedLanguages: set,
		RemoveCommentary:  removeCommentary,
		RemoveSubtitles:   removeSubtitles,
	}
}

// Excludes reports whether language is in the excluded set.
func (c Config) Excludes(language string) bool {
	_, ok := c.ExcludedLanguages[language]
	return ok
}

// Languages returns the excluded set sorted.
func (c Config) Languages() []string {
	out := make([]string, 0, len(c.ExcludedLanguages))
	for lang := range c.ExcludedLanguages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Fingerprint identifies the policy. Two configs that decide identically for
// every input share a fingerprint.
func (c Config) Fingerprint() string {
	return strings.Join(c.Languages(), ",") +
		";commentary=" + strconv.FormatBool(c.RemoveCommentary) +
		";subtitles=" + strconv.FormatBool(c.RemoveSubtitles)
}

// Decision lists the track ids to remove, in container order.
type Decision struct {
	AudioIDs    []string
	SubtitleIDs []string
}

// Empty reports whether the decision removes nothing.
func (d Decision) Empty() bool {
	return len(d.AudioIDs) == 0 && len(d.SubtitleIDs) == 0
}

// Count returns the total number of tracks removed.
func (d Decision) Count() int {
	return len(d.AudioIDs) + len(d.SubtitleIDs)
}

// Equal reports whether two decisions remove the same ids in the same order.
func (d Decision) Equal(other Decision) bool {
	return equalIDs(d.AudioIDs, other.AudioIDs) && equalIDs(d.SubtitleIDs, other.SubtitleIDs)
}

// Decide computes the tracks to strip.
//
// A lone audio track in a kept language short-circuits to an empty decision.
// When every audio track shares one excluded language no audio is removed.
// Audio spread over several excluded languages is removed in full. Subtitles
// are only removed when RemoveSubtitles is set, their language is excluded,
// and some audio track (removed or not) carries that language.
func Decide(tracks []track.Track, cfg Config) Decision {
	var audio, subtitles []track.Track
	for _, t := range tracks {
		switch t.Kind {
		case track.Audio:
			audio = append(audio, t)
		case track.Subtitle:
			subtitles = append(subtitles, t)
		}
	}

	if len(audio) == 1 && !cfg.Excludes(audio[0].Language) {
		return Decision{}
	}

	audioLanguages := make(map[string]struct{}, len(audio))
	marked := make([]bool, len(audio))
	for i, t := range audio {
		audioLanguages[t.Language] = struct{}{}
		marked[i] = cfg.Excludes(t.Language) || (cfg.RemoveCommentary && t.IsCommentary())
	}

	keepAllAudio := false
	if len(audioLanguages) == 1 {
		for only := range audioLanguages {
			if cfg.Excludes(only) {
				keepAllAudio = true
			}
		}
	}

	var decision Decision
	if !keepAllAudio {
		for i, t := range audio {
			if marked[i] {
				decision.AudioIDs = append(decision.AudioIDs, t.ID)
			}
		}
	}

	if !cfg.RemoveSubtitles {
		return decision
	}
	for _, t := range subtitles {
		if !cfg.Excludes(t.Language) {
			continue
		}
		if _, ok := audioLanguages[t.Language]; !ok {
			continue
		}
		decision.SubtitleIDs = append(decision.SubtitleIDs, t.ID)
	}
	return decision
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
