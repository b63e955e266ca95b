package dispatcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncevent/internal/event/dispatcher"
)

func TestUnsubscribePolicy_UnmarshalText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    dispatcher.UnsubscribePolicy
		wantErr bool
	}{
		{in: "warn", want: dispatcher.PolicyWarn},
		{in: "", want: dispatcher.PolicyWarn},
		{in: "IGNORE", want: dispatcher.PolicyIgnore},
		{in: " strict ", want: dispatcher.PolicyStrict},
		{in: "raise", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			var p dispatcher.UnsubscribePolicy
			err := p.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestUnsubscribePolicy_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "warn", dispatcher.PolicyWarn.String())
	assert.Equal(t, "ignore", dispatcher.PolicyIgnore.String())
	assert.Equal(t, "strict", dispatcher.PolicyStrict.String())
	assert.Equal(t, "UnsubscribePolicy(7)", dispatcher.UnsubscribePolicy(7).String())
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := dispatcher.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, dispatcher.DefaultConfig(), cfg)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("EVENTBUS_RESOLVER_CACHE_SIZE", "500")
		t.Setenv("EVENTBUS_MAX_CONCURRENCY", "16")
		t.Setenv("EVENTBUS_UNSUBSCRIBE_POLICY", "strict")

		cfg, err := dispatcher.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, dispatcher.Config{
			ResolverCacheSize: 500,
			MaxConcurrency:    16,
			UnsubscribePolicy: dispatcher.PolicyStrict,
		}, cfg)
	})

	t.Run("invalid policy", func(t *testing.T) {
		t.Setenv("EVENTBUS_UNSUBSCRIBE_POLICY", "raise")

		_, err := dispatcher.LoadConfig()
		require.Error(t, err)
	})
}
