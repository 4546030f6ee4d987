// Package preflight provides readiness checks for the filesystem paths and
// external tools trackstrip depends on.
//
// The "trackstrip check" command renders every result; run and watch call
// RunAll before touching files and refuse to start when a required check
// fails.
package preflight
