// Package config loads, normalizes, and validates romsift configuration.
//
// Configuration is TOML. Load looks at an explicit path, then
// ~/.config/romsift/config.toml, then ./romsift.toml, and falls back to
// Default when none exists. Paths are expanded to absolute form and the
// organize output directory defaults to <roms_dir>/filtered.
package config
