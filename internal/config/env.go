// Package config provides environment configuration helpers for stallcam commands.
package config

import (
	"os"
	"strconv"
)

// Env returns the value of the environment variable, or the fallback if unset.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvBool returns the boolean value of the environment variable.
// Unset or unparseable values return the fallback.
func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// EnvInt returns the integer value of the environment variable.
// Unset or unparseable values return the fallback.
func EnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
