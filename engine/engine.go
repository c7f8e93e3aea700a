// Package engine provides the local compute engine backing grove's trainers.
//
// The engine stands in for a cluster handle: it is started once with a
// thread count and a memory ceiling, hands out deterministic seeds, and
// runs chunked parallel loops for tree building and scoring.
package engine

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/grove/pkg/errors"
	"github.com/YuminosukeSato/grove/pkg/log"
)

// Config holds engine startup options.
type Config struct {
	// MaxThreads is the worker count. Zero means runtime.NumCPU().
	MaxThreads int

	// MaxMem is a human-readable memory ceiling such as "4g" or "512m".
	// Empty means unlimited. The ceiling is advisory: import reports a
	// warning when a file is likely to exceed it.
	MaxMem string

	// Seed is the base random seed handed to trainers that do not set
	// their own. Zero means seed from the current time.
	Seed int64
}

// Engine is a started compute engine.
type Engine struct {
	threads     int
	maxMemBytes int64
	seed        int64
	startedAt   time.Time
	logger      log.Logger
}

// Start validates cfg and returns a running engine.
func Start(cfg Config) (*Engine, error) {
	threads := cfg.MaxThreads
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	if threads < 0 {
		return nil, errors.NewValidationError("MaxThreads", "must be >= 0", cfg.MaxThreads)
	}

	maxMemBytes := int64(0)
	if cfg.MaxMem != "" {
		parsed, err := ParseMemString(cfg.MaxMem)
		if err != nil {
			return nil, err
		}
		maxMemBytes = parsed
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		threads:     threads,
		maxMemBytes: maxMemBytes,
		seed:        seed,
		startedAt:   time.Now(),
		logger:      log.GetLoggerWithName("engine"),
	}
	e.logger.Info("Engine started",
		log.ThreadsKey, e.threads,
		log.MaxMemKey, e.maxMemBytes,
		log.SeedKey, e.seed,
	)
	return e, nil
}

// Threads returns the worker count.
func (e *Engine) Threads() int { return e.threads }

// MaxMemBytes returns the configured memory ceiling, 0 for unlimited.
func (e *Engine) MaxMemBytes() int64 { return e.maxMemBytes }

// Seed returns the base random seed.
func (e *Engine) Seed() int64 { return e.seed }

// Uptime returns how long the engine has been running.
func (e *Engine) Uptime() time.Duration { return time.Since(e.startedAt) }

// Shutdown logs the engine teardown. There are no background resources
// to release; the method exists so callers can defer it symmetrically
// with Start.
func (e *Engine) Shutdown() {
	e.logger.Info("Engine shut down", log.DurationMsKey, e.Uptime().Milliseconds())
}

// ParseMemString parses sizes like "512m", "4g" or plain byte counts.
func ParseMemString(s string) (int64, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" {
		return 0, errors.NewValidationError("MaxMem", "empty memory size", s)
	}

	multiplier := int64(1)
	switch trimmed[len(trimmed)-1] {
	case 'k':
		multiplier = 1 << 10
		trimmed = trimmed[:len(trimmed)-1]
	case 'm':
		multiplier = 1 << 20
		trimmed = trimmed[:len(trimmed)-1]
	case 'g':
		multiplier = 1 << 30
		trimmed = trimmed[:len(trimmed)-1]
	}

	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("MaxMem", "not a memory size (want e.g. \"512m\", \"4g\")", s)
	}
	if value <= 0 {
		return 0, errors.NewValidationError("MaxMem", "must be positive", s)
	}
	return value * multiplier, nil
}
