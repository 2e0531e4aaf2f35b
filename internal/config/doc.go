// Package config loads and validates the TOML configuration shared by the
// squeeze daemon and CLI.
//
// Load resolves the config file (explicit path, then the user config dir,
// then a project-local squeeze.toml), layers it over repository defaults,
// expands ~ in every path field, and validates the result. EnsureDirectories
// creates the staging, preview, and log directories before anything opens
// files under them.
package config
