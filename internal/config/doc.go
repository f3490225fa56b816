// Package config loads, normalizes, and validates saasywrap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SAASYWRAP_BACKEND_URL. The Config type centralizes every knob the CLI needs,
// so the backend address, session store location, logging, and notification
// settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
