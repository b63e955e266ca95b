package dispatcher

import (
	"fmt"
	"strings"

	"asyncevent/internal/event/resolver"
)

// UnsubscribePolicy decides how Unsubscribe reports a handler that was not
// subscribed to a type.
type UnsubscribePolicy int

const (
	// PolicyWarn logs a warning and returns nil.
	PolicyWarn UnsubscribePolicy = iota
	// PolicyIgnore logs at debug level and returns nil.
	PolicyIgnore
	// PolicyStrict returns the misses as an error wrapping event.ErrNotSubscribed.
	PolicyStrict
)

func (p UnsubscribePolicy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyIgnore:
		return "ignore"
	case PolicyStrict:
		return "strict"
	default:
		return fmt.Sprintf("UnsubscribePolicy(%d)", int(p))
	}
}

// UnmarshalText lets the policy be read from the environment.
func (p *UnsubscribePolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "warn":
		*p = PolicyWarn
	case "ignore":
		*p = PolicyIgnore
	case "strict":
		*p = PolicyStrict
	default:
		return fmt.Errorf("unknown unsubscribe policy %q", text)
	}
	return nil
}

// Config holds the tunables of a bus and its default collaborators.
type Config struct {
	ResolverCacheSize int               `env:"EVENTBUS_RESOLVER_CACHE_SIZE" envDefault:"100"`
	// MaxConcurrency caps concurrently running handlers, zero means no cap.
	// Dispatch tasks are not counted.
	MaxConcurrency    int               `env:"EVENTBUS_MAX_CONCURRENCY" envDefault:"0"`
	UnsubscribePolicy UnsubscribePolicy `env:"EVENTBUS_UNSUBSCRIBE_POLICY" envDefault:"warn"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		ResolverCacheSize: resolver.DefaultCacheSize,
		MaxConcurrency:    0,
		UnsubscribePolicy: PolicyWarn,
	}
}
