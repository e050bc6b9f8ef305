// Package config loads, normalizes, and validates dupefinder configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DUPEFINDER_MODE and DUPEFINDER_RESOURCES_DIR. The Config type centralizes
// every knob the CLI needs: where state lives, how the scanning engine is
// located or built, scan defaults, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
