// Package logging builds the slog loggers used by trackstrip.
//
// A logger writes human-oriented console lines to the terminal and, when a
// log file is configured, JSON records to a size-rotated file. Helpers tag
// records with the component that emitted them and the run identifier carried
// on the context so one stripping pass can be followed across packages.
package logging
