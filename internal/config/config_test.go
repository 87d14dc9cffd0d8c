package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	require.Equal(t, defaultLogLevel, cfg.LogLevel)
	require.Equal(t, defaultStackCapacity, cfg.StackCapacity)
	require.True(t, cfg.GCEveryAlloc)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envStackCapacity, "2048")
	t.Setenv(envGCEveryAlloc, "false")

	cfg := FromEnv()
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 2048, cfg.StackCapacity)
	require.False(t, cfg.GCEveryAlloc)
}

func TestFromEnvIgnoresUnparsableStackCapacity(t *testing.T) {
	t.Setenv(envStackCapacity, "not-a-number")
	cfg := FromEnv()
	require.Equal(t, defaultStackCapacity, cfg.StackCapacity)
}
