// Package config loads, normalizes, and validates Clapper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ELEVENLABS_API_KEY and HEYGEN_API_KEY. The Config type centralizes every
// knob the CLI needs, allowing project directories, the cast, and external
// service credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
