// Package config loads, normalizes, and validates habari configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as YOUTUBE_STREAM_KEY and OPENAI_API_KEY. The
// Config type centralizes every knob the broadcaster and CLI need.
//
// The loaded Config is treated as read-only after startup and is passed
// explicitly to each component.
package config
