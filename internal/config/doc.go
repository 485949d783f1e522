// Package config loads, normalizes, and validates iclink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ICLINK_OUTPUT_DIR. The Config type centralizes every knob the linkage
// pipeline and CLI need: source locations, matching thresholds, the exact key
// strings read from scan exports, clinical range tables, roster column names,
// and the feature set that decides whether a row is trainable.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, deduplicated feature lists, and clear validation errors.
package config
