package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sky887766/SwapHelper/pkg/types"
)

// Network is one named RPC endpoint with its chain id.
type Network struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID int64  `mapstructure:"chain_id"`
}

// Config holds the application configuration
type Config struct {
	APIKey       string             `mapstructure:"api_key"`
	APISecret    string             `mapstructure:"api_secret"`
	Passphrase   string             `mapstructure:"passphrase"`
	PrivateKey   string             `mapstructure:"private_key"`
	DefaultChain string             `mapstructure:"default_chain"`
	Slippage     string             `mapstructure:"slippage"`
	BuyAmount    string             `mapstructure:"buy_amount"`
	SellRatio    string             `mapstructure:"sell_ratio"`
	Networks     map[string]Network `mapstructure:"networks"`
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".swaphelper")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("slippage", "0.5")
	viper.SetDefault("sell_ratio", "100")

	// Read from environment variables
	viper.SetEnvPrefix("SWAPHELPER")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return cfg, nil
}

// Credentials returns the credential set for the swap session.
func (c *Config) Credentials() types.Credentials {
	return types.Credentials{
		APIKey:     c.APIKey,
		APISecret:  c.APISecret,
		Passphrase: c.Passphrase,
		PrivateKey: c.PrivateKey,
	}
}

// Chain resolves a named network, falling back to the configured default when
// name is empty.
func (c *Config) Chain(name string) (types.ChainContext, error) {
	if name == "" {
		name = c.DefaultChain
	}
	if name == "" {
		return types.ChainContext{}, fmt.Errorf("no chain specified and no default_chain configured")
	}

	network, exists := c.Networks[name]
	if !exists {
		return types.ChainContext{}, fmt.Errorf("chain %q not found in configuration", name)
	}
	if network.RPCURL == "" {
		return types.ChainContext{}, fmt.Errorf("RPC URL not configured for chain %q", name)
	}
	if network.ChainID == 0 {
		return types.ChainContext{}, fmt.Errorf("chain id not configured for chain %q", name)
	}

	return types.ChainContext{RPCURL: network.RPCURL, ChainID: network.ChainID}, nil
}
