package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default endpoints merged under caller overrides. Only endpoints have
// defaults; mint, merchant, decimals and cluster must be supplied.
const (
	DefaultRPCURL       = "https://api.devnet.solana.com"
	DefaultPortalURL    = "https://portal.lazor.sh"
	DefaultPaymasterURL = "https://kora.devnet.lazorkit.com"
)

// Config is the fully resolved, validated checkout configuration. A
// Config only exists as the successful output of Resolve; no component
// downstream of the resolver ever sees a partially specified one.
type Config struct {
	RPCURL            string  `json:"rpcUrl" validate:"required,url"`
	PortalURL         string  `json:"portalUrl" validate:"required,url"`
	PaymasterURL      string  `json:"paymasterUrl" validate:"required,url"`
	USDCMint          string  `json:"usdcMint" validate:"required"`
	MerchantAddress   string  `json:"merchantAddress" validate:"required"`
	USDCDecimals      int     `json:"usdcDecimals" validate:"min=0,max=18"`
	ClusterSimulation Cluster `json:"clusterSimulation" validate:"required,oneof=devnet mainnet"`

	// ErrorFAQURL, when set, is referenced alongside surfaced errors.
	ErrorFAQURL string `json:"errorFaqUrl,omitempty"`
}

// Overrides is the partial caller-supplied configuration merged over
// the defaults. Zero values mean "not provided"; USDCDecimals is a
// pointer so 0 remains expressible.
type Overrides struct {
	RPCURL            string  `json:"rpcUrl,omitempty"`
	PortalURL         string  `json:"portalUrl,omitempty"`
	PaymasterURL      string  `json:"paymasterUrl,omitempty"`
	USDCMint          string  `json:"usdcMint,omitempty"`
	MerchantAddress   string  `json:"merchantAddress,omitempty"`
	USDCDecimals      *int    `json:"usdcDecimals,omitempty"`
	ClusterSimulation Cluster `json:"clusterSimulation,omitempty"`
	ErrorFAQURL       string  `json:"errorFaqUrl,omitempty"`
}

var validate = validator.New()

// ResolveConfig merges overrides over the endpoint defaults and
// validates the result. Validation short-circuits on the first failure
// in fixed order: mint, merchant, decimals, cluster. A non-nil error
// always carries code CONFIG_INVALID.
func ResolveConfig(overrides *Overrides) (*Config, *CheckoutError) {
	if overrides == nil {
		overrides = &Overrides{}
	}

	cfg := &Config{
		RPCURL:       DefaultRPCURL,
		PortalURL:    DefaultPortalURL,
		PaymasterURL: DefaultPaymasterURL,
	}
	if v := strings.TrimSpace(overrides.RPCURL); v != "" {
		cfg.RPCURL = v
	}
	if v := strings.TrimSpace(overrides.PortalURL); v != "" {
		cfg.PortalURL = v
	}
	if v := strings.TrimSpace(overrides.PaymasterURL); v != "" {
		cfg.PaymasterURL = v
	}
	cfg.USDCMint = strings.TrimSpace(overrides.USDCMint)
	cfg.MerchantAddress = strings.TrimSpace(overrides.MerchantAddress)
	cfg.ClusterSimulation = overrides.ClusterSimulation
	if v := strings.TrimSpace(overrides.ErrorFAQURL); v != "" {
		cfg.ErrorFAQURL = v
	}

	if cfg.USDCMint == "" {
		return nil, NewError(ErrConfigInvalid, "Missing USDC mint", nil)
	}
	if cfg.MerchantAddress == "" {
		return nil, NewError(ErrConfigInvalid, "Missing merchant address", nil)
	}
	if overrides.USDCDecimals == nil {
		return nil, NewError(ErrConfigInvalid, "Missing USDC decimals", nil)
	}
	if d := *overrides.USDCDecimals; d < 0 || d > 18 {
		return nil, NewError(ErrConfigInvalid, fmt.Sprintf("USDC decimals must be between 0 and 18, got %d", d), nil)
	}
	cfg.USDCDecimals = *overrides.USDCDecimals
	if cfg.ClusterSimulation == "" {
		return nil, NewError(ErrConfigInvalid, "Missing cluster simulation mode", nil)
	}
	if !cfg.ClusterSimulation.Valid() {
		return nil, NewError(ErrConfigInvalid, fmt.Sprintf("Cluster simulation must be devnet or mainnet, got %q", cfg.ClusterSimulation), nil)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, NewError(ErrConfigInvalid, "Invalid configuration", err)
	}

	return cfg, nil
}
