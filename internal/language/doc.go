// Package language provides language code normalization and alias mapping.
//
// mkvmerge reports ISO 639-2 codes and frequently uses the bibliographic
// forms ("fre", "ger") while users configure whatever spelling they know.
// Aliases bridges the two; DisplayName turns codes into names for log output.
package language
