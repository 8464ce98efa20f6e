// Package config loads, normalizes, and validates modforge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the compiler CLI
// needs: game container locations, output directories, engine version
// strings, probing limits, and logging options.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
