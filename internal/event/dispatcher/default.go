package dispatcher

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"asyncevent/internal/event/registry"
	"asyncevent/internal/event/resolver"
	"asyncevent/internal/event/scheduler"
)

var (
	defaultOnce sync.Once
	defaultBus  *Dispatcher
)

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse dispatcher config: %w", err)
	}
	return cfg, nil
}

// New builds a dispatcher that owns a fresh registry and resolver and submits
// to a new pool. The caller is responsible for shutting the pool down.
func New(cfg Config, logger *zap.Logger) (*Dispatcher, *scheduler.Pool, error) {
	res, err := resolver.New(cfg.ResolverCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	pool, err := scheduler.NewPool(cfg.MaxConcurrency, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scheduler pool: %w", err)
	}

	d, err := NewDispatcher(registry.New(), res, pool, logger, cfg.UnsubscribePolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	return d, pool, nil
}

// Default returns the process-wide bus, built on first use from
// DefaultConfig with a no-op logger. Its pool lives as long as the process.
func Default() *Dispatcher {
	defaultOnce.Do(func() {
		d, _, err := New(DefaultConfig(), zap.NewNop())
		if err != nil {
			panic(fmt.Sprintf("dispatcher: default bus: %v", err))
		}
		defaultBus = d
	})

	return defaultBus
}
