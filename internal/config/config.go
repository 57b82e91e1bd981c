// Package config holds the ambient runtime knobs the chenlang run subcommand
// reads before it builds a machine.VM: the step budget, the HTTP client
// timeout stdlib/http hands to net/http, and the call-depth guard
// pushClosureFrame enforces. A log level is decoded as well, but nothing
// applies it; the log level comes from the -l/--log-level flag. It is populated the way the teacher
// populates its own request-scoped config: a plain struct with `env` tags,
// decoded by caarlos0/env rather than hand-rolled os.Getenv calls.
package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is decoded once in internal/maincmd's Run (the run subcommand) and
// threaded down into lang/machine and lang/stdlib (SPEC_FULL.md §6.7).
type Config struct {
	LogLevel      string        `env:"CHENLANG_LOG_LEVEL" envDefault:"info"`
	MaxSteps      int64         `env:"CHENLANG_MAX_STEPS" envDefault:"0"`
	HTTPTimeout   time.Duration `env:"CHENLANG_HTTP_TIMEOUT" envDefault:"30s"`
	MaxCallDepth  int           `env:"CHENLANG_MAX_CALL_DEPTH" envDefault:"1000"`
}

// Load decodes Config from the process environment. A zero MaxSteps means
// no step budget: the VM runs to completion or a thrown/uncaught error.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
