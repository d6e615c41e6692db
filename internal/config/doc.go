// SPDX-License-Identifier: MPL-2.0

// Package config loads cellar configuration with Viper, using CUE as the
// file format.
//
// The file is read from $XDG_CONFIG_HOME/cellar/config.cue (the platform
// equivalent on macOS and Windows) or ./config.cue, validated against the
// embedded #Config schema, and layered between the built-in defaults and
// CELLAR_* environment variables.
package config
