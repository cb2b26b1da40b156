package modelregistry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/personalagent/runtime/internal/config"
)

func TestResolveRequiresProviderConfig(t *testing.T) {
	reg := New(config.Config{})
	_, err := reg.Resolve(nil, "anthropic", "claude-3-5-sonnet") //nolint:staticcheck // nil ctx unused before network call
	require.Error(t, err)
}

func TestResolveRequiresAPIKeyEnvSet(t *testing.T) {
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {APIKeyEnv: "TEST_MODELREGISTRY_UNSET_KEY"},
		},
	}
	reg := New(cfg)
	_, err := reg.Resolve(nil, "anthropic", "claude-3-5-sonnet") //nolint:staticcheck
	require.Error(t, err)
}

func TestResolveCachesHandlePerProviderAndModel(t *testing.T) {
	t.Setenv("TEST_MODELREGISTRY_KEY", "sk-test")
	cfg := config.Config{
		Providers: map[string]config.ProviderConfig{
			"anthropic": {APIKeyEnv: "TEST_MODELREGISTRY_KEY"},
		},
	}
	reg := New(cfg)

	first, err := reg.Resolve(nil, "anthropic", "claude-3-5-sonnet") //nolint:staticcheck
	require.NoError(t, err)

	second, err := reg.Resolve(nil, "anthropic", "claude-3-5-sonnet") //nolint:staticcheck
	require.NoError(t, err)

	require.Same(t, first, second)

	third, err := reg.Resolve(nil, "anthropic", "claude-3-opus") //nolint:staticcheck
	require.NoError(t, err)
	require.NotSame(t, first, third)
}
