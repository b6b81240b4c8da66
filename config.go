package parse

import (
	"sync"
	"time"
)

var defaultCacheTTL = 5 * time.Minute

// Config is the process-wide configuration: one explicit object behind a
// mutex-guarded holder instead of ambient mutable globals.
type Config struct {
	Repository Repository
	Logger     Logger
	CacheTTL   time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.Logger == nil {
		cfg.Logger = NullLogger{}
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
}

var current = struct {
	mu  sync.RWMutex
	cfg Config
}{cfg: Config{Logger: NullLogger{}, CacheTTL: defaultCacheTTL}}

// Configure replaces the process-wide configuration. Zero fields are
// filled with defaults. Safe to call from multiple goroutines.
func Configure(cfg Config) {
	cfg.applyDefaults()

	current.mu.Lock()
	current.cfg = cfg
	current.mu.Unlock()
}

// CurrentConfig returns a copy of the process-wide configuration.
func CurrentConfig() Config {
	current.mu.RLock()
	defer current.mu.RUnlock()

	return current.cfg
}
