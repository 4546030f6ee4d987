// Package config loads, normalizes, and validates trackstrip configuration.
//
// Values come from repository defaults, then an optional TOML file, then the
// process environment (LANGUAGES, REMOVE_COMMENTARY, REMOVE_SUBTITLES,
// BASE_DIR), with .env files read first without clobbering variables that are
// already set. Always obtain settings through this package so downstream code
// receives expanded paths and a ready exclusion policy.
package config
