package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Track describes one track in a fake media file.
type Track struct {
	ID       int
	Type     string // audio, subtitles, video
	Language string
	Name     string
}

// Audio returns an audio track.
func Audio(id int, lang string) Track {
	return Track{ID: id, Type: "audio", Language: lang}
}

// Commentary returns an audio track named as commentary.
func Commentary(id int, lang string) Track {
	return Track{ID: id, Type: "audio", Language: lang, Name: "Director's Commentary"}
}

// Subtitle returns a subtitle track.
func Subtitle(id int, lang string) Track {
	return Track{ID: id, Type: "subtitles", Language: lang}
}

// Video returns a video track.
func Video(id int) Track {
	return Track{ID: id, Type: "video", Language: "und"}
}

// IdentificationJSON renders mkvmerge -J output for a Matroska file.
func IdentificationJSON(tracks ...Track) []byte {
	type record struct {
		ID         int               `json:"id"`
		Type       string            `json:"type"`
		Properties map[string]string `json:"properties"`
	}
	payload := struct {
		Container map[string]any `json:"container"`
		Tracks    []record       `json:"tracks"`
	}{
		Container: map[string]any{"type": "Matroska", "recognized": true, "supported": true},
		Tracks:    []record{},
	}
	for _, t := range tracks {
		props := map[string]string{}
		if t.Language != "" {
			props["language"] = t.Language
		}
		if t.Name != "" {
			props["track_name"] = t.Name
		}
		payload.Tracks = append(payload.Tracks, record{ID: t.ID, Type: t.Type, Properties: props})
	}
	data, _ := json.Marshal(payload)
	return data
}

// WriteMedia writes a fake media file holding its own identification.
func WriteMedia(t testing.TB, path string, tracks ...Track) {
	t.Helper()
	writeBytes(t, path, IdentificationJSON(tracks...))
}

// WriteFiltered records what the stub mkvmerge produces when filtering path.
func WriteFiltered(t testing.TB, path string, tracks ...Track) {
	t.Helper()
	writeBytes(t, path+".filtered", IdentificationJSON(tracks...))
}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	writeBytes(t, path, buf)
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
