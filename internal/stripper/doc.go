// Package stripper applies exclusion decisions to media files on disk.
//
// Work happens in two phases. Plan identifies a file and computes the tracks
// to drop without touching it. Apply re-identifies the file, refuses to act if
// the decision no longer matches the plan, filters into a hidden temp file in
// the same directory, verifies the result, and renames it over the original.
// Any failure leaves the original file untouched.
//
// Run drives both phases over a list of files. Per-file problems are reported
// to the Observer and counted; they never abort the run.
package stripper
