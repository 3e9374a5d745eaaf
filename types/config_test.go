package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int {
	return &v
}

func validOverrides() *Overrides {
	return &Overrides{
		USDCMint:          "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		MerchantAddress:   "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		USDCDecimals:      intp(6),
		ClusterSimulation: ClusterDevnet,
	}
}

func TestResolveConfig_DefaultsApplied(t *testing.T) {
	cfg, err := ResolveConfig(validOverrides())
	require.Nil(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultPortalURL, cfg.PortalURL)
	assert.Equal(t, DefaultPaymasterURL, cfg.PaymasterURL)
	assert.Equal(t, 6, cfg.USDCDecimals)
	assert.Equal(t, ClusterDevnet, cfg.ClusterSimulation)
	assert.Empty(t, cfg.ErrorFAQURL)
}

// Caller-supplied endpoints win over the defaults; surrounding
// whitespace is stripped before the merge so a blank-padded value does
// not shadow a default.
func TestResolveConfig_OverridesWinOverDefaults(t *testing.T) {
	o := validOverrides()
	o.RPCURL = "  https://rpc.example.com  "
	o.PortalURL = "https://portal.example.com"
	o.PaymasterURL = "https://paymaster.example.com"
	o.ErrorFAQURL = "  https://docs.example.com/faq  "

	cfg, err := ResolveConfig(o)
	require.Nil(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
	assert.Equal(t, "https://portal.example.com", cfg.PortalURL)
	assert.Equal(t, "https://paymaster.example.com", cfg.PaymasterURL)
	assert.Equal(t, "https://docs.example.com/faq", cfg.ErrorFAQURL)
}

// Required-field failures surface in a fixed order (mint, merchant,
// decimals, cluster) so the first missing field is deterministic.
func TestResolveConfig_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Overrides)
		message string
	}{
		{
			"missing mint",
			func(o *Overrides) { o.USDCMint = "  " },
			"Missing USDC mint",
		},
		{
			"missing merchant reported after mint",
			func(o *Overrides) { o.MerchantAddress = "" },
			"Missing merchant address",
		},
		{
			"missing decimals",
			func(o *Overrides) { o.USDCDecimals = nil },
			"Missing USDC decimals",
		},
		{
			"decimals below range",
			func(o *Overrides) { o.USDCDecimals = intp(-1) },
			"USDC decimals must be between 0 and 18, got -1",
		},
		{
			"decimals above range",
			func(o *Overrides) { o.USDCDecimals = intp(19) },
			"USDC decimals must be between 0 and 18, got 19",
		},
		{
			"missing cluster",
			func(o *Overrides) { o.ClusterSimulation = "" },
			"Missing cluster simulation mode",
		},
		{
			"unknown cluster",
			func(o *Overrides) { o.ClusterSimulation = "testnet" },
			`Cluster simulation must be devnet or mainnet, got "testnet"`,
		},
		{
			"malformed endpoint caught by struct validation",
			func(o *Overrides) { o.RPCURL = "not-a-url" },
			"Invalid configuration",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOverrides()
			tt.mutate(o)

			cfg, err := ResolveConfig(o)
			assert.Nil(t, cfg)
			require.NotNil(t, err)
			assert.Equal(t, ErrConfigInvalid, err.Code)
			assert.Equal(t, tt.message, err.Message)
		})
	}
}

// The decimals pointer keeps 0 expressible; both range ends are legal.
func TestResolveConfig_DecimalsRangeEnds(t *testing.T) {
	for _, d := range []int{0, 18} {
		o := validOverrides()
		o.USDCDecimals = intp(d)

		cfg, err := ResolveConfig(o)
		require.Nil(t, err)
		assert.Equal(t, d, cfg.USDCDecimals)
	}
}

func TestResolveConfig_NilOverrides(t *testing.T) {
	cfg, err := ResolveConfig(nil)
	assert.Nil(t, cfg)
	require.NotNil(t, err)
	assert.Equal(t, ErrConfigInvalid, err.Code)
	assert.Equal(t, "Missing USDC mint", err.Message)
}

func TestResolveConfig_MainnetCluster(t *testing.T) {
	o := validOverrides()
	o.ClusterSimulation = ClusterMainnet

	cfg, err := ResolveConfig(o)
	require.Nil(t, err)
	assert.Equal(t, ClusterMainnet, cfg.ClusterSimulation)
}
