package track

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedInput reports a raw track record missing its id or type.
var ErrMalformedInput = errors.New("malformed track record")

// Kind classifies a track for exclusion purposes.
type Kind int

const (
	Other Kind = iota
	Audio
	Subtitle
)

// String returns the mkvmerge spelling of the kind.
func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Subtitle:
		return "subtitles"
	default:
		return "other"
	}
}

// ParseKind maps an mkvmerge track type string to a Kind. Unknown values map to Other.
func ParseKind(value string) Kind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "audio":
		return Audio
	case "subtitles":
		return Subtitle
	default:
		return Other
	}
}

// Track is one normalized stream inside a container.
type Track struct {
	ID       string
	Kind     Kind
	Language string
	Name     string

	// Informational fields; exclusion rules never consult them.
	Codec   string
	Default bool
	Forced  bool
}

// IsCommentary reports whether the track name carries the commentary marker.
func (t Track) IsCommentary() bool {
	return strings.Contains(t.Name, "commentary")
}

// RawTrack mirrors one entry of the mkvmerge "tracks" array.
type RawTrack struct {
	ID         json.RawMessage `json:"id"`
	Type       *string         `json:"type"`
	Codec      string          `json:"codec"`
	Properties RawProperties   `json:"properties"`
}

// RawProperties holds the subset of per-track properties trackstrip consumes.
type RawProperties struct {
	Language     *string `json:"language"`
	TrackName    *string `json:"track_name"`
	DefaultTrack bool    `json:"default_track"`
	ForcedTrack  bool    `json:"forced_track"`
}

// FromRecords normalizes raw records into tracks, preserving container order.
func FromRecords(records []RawTrack) ([]Track, error) {
	tracks := make([]Track, 0, len(records))
	for i, rec := range records {
		id, err := parseID(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		if rec.Type == nil {
			return nil, fmt.Errorf("track %d: %w: missing type", i, ErrMalformedInput)
		}
		tracks = append(tracks, Track{
			ID:       id,
			Kind:     ParseKind(*rec.Type),
			Language: lowerValue(rec.Properties.Language),
			Name:     lowerValue(rec.Properties.TrackName),
			Codec:    strings.TrimSpace(rec.Codec),
			Default:  rec.Properties.DefaultTrack,
			Forced:   rec.Properties.ForcedTrack,
		})
	}
	return tracks, nil
}

// CountKind returns the number of tracks of the given kind.
func CountKind(tracks []Track, kind Kind) int {
	count := 0
	for _, t := range tracks {
		if t.Kind == kind {
			count++
		}
	}
	return count
}

func parseID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrMalformedInput)
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("%w: id: %v", ErrMalformedInput, err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("%w: empty id", ErrMalformedInput)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("%w: id: %v", ErrMalformedInput, err)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

func lowerValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*value))
}
