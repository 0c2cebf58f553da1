package taskrt

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joeycumines/logiface"
	"gopkg.in/yaml.v3"
)

// Config is the bootstrap configuration of a Runtime, typically loaded from a
// YAML file shipped alongside the generated application.
//
// Zero values select the defaults, see Options.
type Config struct {
	// SemaphoreCapacity is the fixed size of the semaphore pool.
	SemaphoreCapacity int `yaml:"semaphore_capacity"`
	// LogLevel is the minimum level logged to stderr, using the short syslog
	// keywords (e.g. "warning", "info", "debug"), or "disabled".
	LogLevel string `yaml:"log_level"`
	// LossReportRates limits message loss warnings per queue, as a map of
	// duration (e.g. "1s", "1m") to the allowed count within that window.
	LossReportRates map[string]int `yaml:"loss_report_rates"`
}

// LoadConfig decodes a YAML Config from r. Unknown fields are rejected.
// An empty document results in the zero Config.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("taskrt: decode config: %w", err)
	}
	return &cfg, nil
}

// Options converts the config to options for New.
func (x *Config) Options() ([]Option, error) {
	var opts []Option

	if x.SemaphoreCapacity != 0 {
		opts = append(opts, WithSemaphoreCapacity(x.SemaphoreCapacity))
	}

	if x.LogLevel != `` {
		level, err := ParseLevel(x.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogger(NewDefaultLogger(level)))
	}

	if x.LossReportRates != nil {
		rates := make(map[time.Duration]int, len(x.LossReportRates))
		for k, v := range x.LossReportRates {
			d, err := time.ParseDuration(k)
			if err != nil {
				return nil, fmt.Errorf("%w: loss report rate %q: %v", ErrInvalidOption, k, err)
			}
			rates[d] = v
		}
		opts = append(opts, WithLossReportRates(rates))
	}

	return opts, nil
}

// ParseLevel parses a log level, accepting the keywords produced by
// logiface.Level.String, and a few common aliases.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case `disabled`, `off`, `none`:
		return logiface.LevelDisabled, nil
	case `emerg`, `emergency`, `panic`:
		return logiface.LevelEmergency, nil
	case `alert`:
		return logiface.LevelAlert, nil
	case `crit`, `critical`:
		return logiface.LevelCritical, nil
	case `err`, `error`:
		return logiface.LevelError, nil
	case `warning`, `warn`:
		return logiface.LevelWarning, nil
	case `notice`:
		return logiface.LevelNotice, nil
	case `info`, `informational`:
		return logiface.LevelInformational, nil
	case `debug`:
		return logiface.LevelDebug, nil
	case `trace`:
		return logiface.LevelTrace, nil
	default:
		return logiface.LevelDisabled, fmt.Errorf("%w: unknown log level %q", ErrInvalidOption, s)
	}
}
