// Package track provides a typed wrapper around mkvmerge identification output.
//
// This package has no trackstrip-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Identification: parsed `mkvmerge -J` payload (container, raw tracks)
//   - RawTrack: one track record exactly as the tool reports it
//   - Track: normalized audio/subtitle/other track used by exclusion rules
//
// Primary entry points:
//   - ParseIdentification: decodes the JSON payload
//   - FromRecords: normalizes raw records into Track values
//
// Language and name are lower-cased once at construction so downstream
// comparisons never need to care about case.
package track
