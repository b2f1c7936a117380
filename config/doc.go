// Package config loads the process bootstrap configuration from an optional
// YAML file and environment variables. Runtime settings that live in the
// parameter store are not part of it.
package config
