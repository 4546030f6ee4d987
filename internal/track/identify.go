package track

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoTracks reports an identification payload without a "tracks" array.
var ErrNoTracks = errors.New("no track information found")

// Identification represents the parsed output of `mkvmerge -J`.
type Identification struct {
	FileName  string     `json:"file_name"`
	Container Container  `json:"container"`
	Records   []RawTrack `json:"tracks"`
	Errors    []string   `json:"errors"`
	Warnings  []string   `json:"warnings"`
	raw       []byte
}

// Container captures container-level metadata reported by mkvmerge.
// Recognized and Supported are nil when mkvmerge omitted them.
type Container struct {
	Type       string `json:"type"`
	Recognized *bool  `json:"recognized"`
	Supported  *bool  `json:"supported"`
}

// Readable reports whether mkvmerge can read and rewrite the container.
func (c Container) Readable() bool {
	if c.Recognized != nil && !*c.Recognized {
		return false
	}
	return c.Supported == nil || *c.Supported
}

// ParseIdentification decodes an mkvmerge JSON identification payload.
func ParseIdentification(data []byte) (Identification, error) {
	var probe struct {
		Tracks json.RawMessage `json:"tracks"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Identification{}, fmt.Errorf("mkvmerge identify parse: %w", err)
	}
	if len(probe.Tracks) == 0 || string(probe.Tracks) == "null" {
		return Identification{}, ErrNoTracks
	}

	var ident Identification
	if err := json.Unmarshal(data, &ident); err != nil {
		return Identification{}, fmt.Errorf("mkvmerge identify parse: %w", err)
	}
	ident.raw = append([]byte(nil), data...)
	return ident, nil
}

// Tracks normalizes the identification records.
func (i Identification) Tracks() ([]Track, error) {
	return FromRecords(i.Records)
}

// RawJSON returns the raw mkvmerge JSON payload.
func (i Identification) RawJSON() []byte {
	return append([]byte(nil), i.raw...)
}
