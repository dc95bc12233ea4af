// SPDX-License-Identifier: MPL-2.0

// Package config loads coralpkg settings using Viper with CUE as the file format.
//
// The file is looked up at the path given by --config, then in the per-user
// config directory ($XDG_CONFIG_HOME/coralpkg/config.cue on Linux,
// ~/Library/Application Support/coralpkg/config.cue on macOS,
// %APPDATA%\coralpkg\config.cue on Windows), then as coralpkg.cue in the project
// root. Every key can be overridden from the environment with the CORALPKG_
// prefix, e.g. CORALPKG_BUILD_COMMAND.
//
// Files are validated against the embedded config_schema.cue before they are
// merged over the defaults.
package config
