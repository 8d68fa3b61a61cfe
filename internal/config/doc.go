// Package config defines the application configuration structures and
// loading logic. Configuration is read from environment variables (with
// the SHOPGLOT_ prefix) and an optional config.yaml file, then validated
// before use.
package config
