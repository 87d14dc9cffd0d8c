// Package config resolves runtime settings for the avm command from
// environment variables, layered under whatever flags cmd/avm binds on
// top. Kept to plain stdlib parsing deliberately: three scalar settings
// don't earn a config library of their own.
package config

import (
	"os"
	"strconv"
)

const (
	envLogLevel      = "AVM_LOG_LEVEL"
	envStackCapacity = "AVM_STACK_CAPACITY"
	envGCEveryAlloc  = "AVM_GC_EVERY_ALLOC"

	defaultLogLevel      = "info"
	defaultStackCapacity = 1024
)

// Config holds the settings every avm subcommand reads before building a
// vm.VM: the log level for logrus, the operand stack's initial capacity,
// and whether the collector runs on every allocation/string-ADD (the
// spec's mandated policy, and the default) or is turned off for the run.
type Config struct {
	LogLevel      string
	StackCapacity int
	GCEveryAlloc  bool
}

// FromEnv reads Config fields from the process environment, falling
// back to defaults for anything unset or unparsable.
func FromEnv() Config {
	cfg := Config{
		LogLevel:      defaultLogLevel,
		StackCapacity: defaultStackCapacity,
		GCEveryAlloc:  true,
	}

	if v, ok := os.LookupEnv(envLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}

	if v, ok := os.LookupEnv(envStackCapacity); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StackCapacity = n
		}
	}

	if v, ok := os.LookupEnv(envGCEveryAlloc); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.GCEveryAlloc = b
		}
	}

	return cfg
}
