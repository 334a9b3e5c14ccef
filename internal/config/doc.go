// Package config provides centralized application configuration loaded
// from environment variables (TP_ prefix) with optional YAML file overlay.
package config
