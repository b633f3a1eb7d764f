package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/croswell/arb-scanner/pkg/types"
)

// Config holds all configuration for the arbitrage scanner
type Config struct {
	Provider  ProviderConfig
	Trade     TradeConfig
	Scanner   ScannerConfig
	Normalize NormalizeConfig
	Tokens    []TokenConfig
	Pairs     []string
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ProviderConfig holds quote provider (aggregation API) settings
type ProviderConfig struct {
	BaseURL        string
	Network        string
	Protocols      []string
	MainRouteParts int
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// TradeConfig holds the round-trip amounts, denominated in the source token
type TradeConfig struct {
	LoanAmount   decimal.Decimal
	MarginAmount decimal.Decimal
}

// ScannerConfig holds scanner-specific settings
type ScannerConfig struct {
	PollInterval time.Duration
}

// NormalizeConfig is the fixed native/wrapped address substitution pair
type NormalizeConfig struct {
	NativeAddress  string `mapstructure:"native_address"`
	WrappedAddress string `mapstructure:"wrapped_address"`
}

// TokenConfig is one registry entry as configured
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// MetricsConfig holds the prometheus listener settings
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Load reads configuration from environment and config file
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("provider.base_url", "https://api.1inch.io/v4.0")
	v.SetDefault("provider.network", "1")
	v.SetDefault("provider.protocols", []string{})
	v.SetDefault("provider.main_route_parts", 10)
	v.SetDefault("provider.request_timeout", "15s")
	v.SetDefault("provider.retry_attempts", 3)
	v.SetDefault("provider.retry_delay", "1s")

	v.SetDefault("trade.loan_amount", "10")
	v.SetDefault("trade.margin_amount", "0.5")

	v.SetDefault("scanner.poll_interval", "30s")

	// ETH placeholder used by the aggregation API vs. the ERC-20 it wraps
	v.SetDefault("normalize.native_address", "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	v.SetDefault("normalize.wrapped_address", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	v.SetDefault("tokens", []map[string]interface{}{
		{"symbol": "ETH", "address": "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE", "decimals": 18},
		{"symbol": "WETH", "address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "decimals": 18},
		{"symbol": "DAI", "address": "0x6B175474E89094C44Da98b954EedeAC495271d0F", "decimals": 18},
		{"symbol": "USDC", "address": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "decimals": 6},
		{"symbol": "WBTC", "address": "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", "decimals": 8},
	})
	v.SetDefault("pairs", []string{"ETH/DAI"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	// Environment variable support
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.arb-scanner")

	// Read config file (optional)
	_ = v.ReadInConfig()

	requestTimeout, err := time.ParseDuration(v.GetString("provider.request_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid provider.request_timeout: %w", err)
	}
	retryDelay, err := time.ParseDuration(v.GetString("provider.retry_delay"))
	if err != nil {
		return nil, fmt.Errorf("invalid provider.retry_delay: %w", err)
	}
	pollInterval, err := time.ParseDuration(v.GetString("scanner.poll_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid scanner.poll_interval: %w", err)
	}

	loan, err := decimal.NewFromString(v.GetString("trade.loan_amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid trade.loan_amount: %w", err)
	}
	margin, err := decimal.NewFromString(v.GetString("trade.margin_amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid trade.margin_amount: %w", err)
	}

	var tokens []TokenConfig
	if err := v.UnmarshalKey("tokens", &tokens); err != nil {
		return nil, fmt.Errorf("invalid tokens table: %w", err)
	}

	var normalize NormalizeConfig
	if err := v.UnmarshalKey("normalize", &normalize); err != nil {
		return nil, fmt.Errorf("invalid normalize section: %w", err)
	}

	cfg := &Config{
		Provider: ProviderConfig{
			BaseURL:        v.GetString("provider.base_url"),
			Network:        v.GetString("provider.network"),
			Protocols:      v.GetStringSlice("provider.protocols"),
			MainRouteParts: v.GetInt("provider.main_route_parts"),
			RequestTimeout: requestTimeout,
			RetryAttempts:  v.GetInt("provider.retry_attempts"),
			RetryDelay:     retryDelay,
		},
		Trade: TradeConfig{
			LoanAmount:   loan,
			MarginAmount: margin,
		},
		Scanner: ScannerConfig{
			PollInterval: pollInterval,
		},
		Normalize: normalize,
		Tokens:    tokens,
		Pairs:     v.GetStringSlice("pairs"),
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
	}

	return cfg, nil
}

// Registry builds the symbol -> token lookup from the configured table
func (c *Config) Registry() (map[string]types.Token, error) {
	reg := make(map[string]types.Token, len(c.Tokens))
	for _, t := range c.Tokens {
		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("token %s: invalid address %q", t.Symbol, t.Address)
		}
		reg[t.Symbol] = types.Token{
			Symbol:   t.Symbol,
			Address:  common.HexToAddress(t.Address),
			Decimals: t.Decimals,
		}
	}
	return reg, nil
}

// Validate enforces the startup preconditions the evaluator relies on
func (c *Config) Validate() error {
	if c.Provider.Network == "" {
		return fmt.Errorf("provider.network must be set")
	}
	if c.Provider.MainRouteParts <= 0 {
		return fmt.Errorf("provider.main_route_parts must be positive")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("provider.request_timeout must be positive")
	}
	if c.Provider.RetryAttempts < 1 {
		return fmt.Errorf("provider.retry_attempts must be at least 1")
	}
	if c.Scanner.PollInterval <= 0 {
		return fmt.Errorf("scanner.poll_interval must be positive")
	}
	if !c.Trade.LoanAmount.IsPositive() {
		return fmt.Errorf("trade.loan_amount must be positive, got %s", c.Trade.LoanAmount)
	}
	if c.Trade.MarginAmount.IsNegative() {
		return fmt.Errorf("trade.margin_amount must not be negative, got %s", c.Trade.MarginAmount)
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one pair must be configured")
	}

	reg, err := c.Registry()
	if err != nil {
		return err
	}
	for _, p := range c.Pairs {
		from, to, err := SplitPair(p)
		if err != nil {
			return err
		}
		if _, ok := reg[from]; !ok {
			return fmt.Errorf("pair %s: unknown token %s", p, from)
		}
		if _, ok := reg[to]; !ok {
			return fmt.Errorf("pair %s: unknown token %s", p, to)
		}
	}
	return nil
}

// SplitPair parses a "FROM/TO" pair string into its two symbols
func SplitPair(pair string) (string, string, error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid pair %q, expected FROM/TO", pair)
	}
	if parts[0] == parts[1] {
		return "", "", fmt.Errorf("invalid pair %q, tokens must differ", pair)
	}
	return parts[0], parts[1], nil
}
