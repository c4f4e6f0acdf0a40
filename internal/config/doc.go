// Package config loads and resolves the converter configuration.
//
// Configuration is written in TOML (or YAML, chosen by file extension)
// and cascades in three layers: global defaults, per-export settings,
// per-field settings. Load collapses the cascade once into flat,
// immutable ExportSpec values; nothing downstream consults defaults
// dynamically.
//
// All type expressions are resolved here, at load time. A malformed type
// or dangling object-schema reference is reported as a configuration
// error before any spreadsheet row is read.
package config
