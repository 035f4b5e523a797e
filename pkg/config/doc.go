// Package config loads typed configuration structs from environment
// variables, with optional .env files, using github.com/caarlos0/env struct
// tags.
//
// Load caches one value per struct type, so packages can call it for their
// own Config without coordinating. Parse skips the cache and accepts options
// for explicit .env files or an injected environment map.
package config
