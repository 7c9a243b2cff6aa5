// Package config loads the daemon's configuration via viper (YAML,
// with flag overrides bound through cobra), mirroring the teacher's
// `config.LoadConfig(configPath)` shape consumed from
// `cmd/coinjectured/main.go`.
package config

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LedgerConfig carries spec §6's configuration options.
type LedgerConfig struct {
	PalletID               string `mapstructure:"pallet_id"`
	IpsRegisterDeposit     string `mapstructure:"ips_register_deposit"`
	MinStakingAmount       string `mapstructure:"min_staking_amount"`
	BlocksPerEra           uint64 `mapstructure:"blocks_per_era"`
	BlocksPerYear          uint64 `mapstructure:"blocks_per_year"`
	UnbondingPeriod        uint32 `mapstructure:"unbonding_period"`
	MaxUniqueStakes        uint32 `mapstructure:"max_unique_stakes"`
	IpStakingInflationRate uint32 `mapstructure:"ip_staking_inflation_rate_pct"`
	IpsInflationPercentage uint32 `mapstructure:"ips_inflation_percentage"`
	StakerInflationPercentage uint32 `mapstructure:"staker_inflation_percentage"`
	InitialPerEraAmount    string `mapstructure:"initial_per_era_amount"`
}

// MetricsConfig / APIConfig are the ambient server sections.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

type APIConfig struct {
	Port int `mapstructure:"port"`
}

type EventsConfig struct {
	WebSocketEnabled bool `mapstructure:"websocket_enabled"`
}

// Config is the daemon's full configuration tree.
type Config struct {
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	API     APIConfig     `mapstructure:"api"`
	Events  EventsConfig  `mapstructure:"events"`
}

// Default returns the genesis defaults recovered from the original
// pallet's test mock (spec §5 "Supplemented features"): UNIT = 10^12,
// MinStakingAmount = 1 UNIT, BlocksPerEra = 1, UnbondingPeriod = 1,
// IpStakingInflationRate = 10%, IpsInflationPercentage = 60%,
// StakerInflationPercentage = 40%, initial per-era mint =
// 3_205_000_000_000_000.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			PalletID:                  "ia/ipstk",
			IpsRegisterDeposit:        "1000000000000",
			MinStakingAmount:          "1000000000000",
			BlocksPerEra:              1,
			BlocksPerYear:             365,
			UnbondingPeriod:           1,
			MaxUniqueStakes:           10,
			IpStakingInflationRate:    10,
			IpsInflationPercentage:    60,
			StakerInflationPercentage: 40,
			InitialPerEraAmount:       "3205000000000000",
		},
		Metrics: MetricsConfig{Port: 9090},
		API:     APIConfig{Port: 8080},
		Events:  EventsConfig{WebSocketEnabled: true},
	}
}

// LoadConfig reads configPath as YAML, falling back to Default()
// values for anything unset, then lets any already-bound pflags
// override via viper's flag-binding precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.GetViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	out := Default()
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return out, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("ledger.pallet_id", cfg.Ledger.PalletID)
	v.SetDefault("ledger.ips_register_deposit", cfg.Ledger.IpsRegisterDeposit)
	v.SetDefault("ledger.min_staking_amount", cfg.Ledger.MinStakingAmount)
	v.SetDefault("ledger.blocks_per_era", cfg.Ledger.BlocksPerEra)
	v.SetDefault("ledger.blocks_per_year", cfg.Ledger.BlocksPerYear)
	v.SetDefault("ledger.unbonding_period", cfg.Ledger.UnbondingPeriod)
	v.SetDefault("ledger.max_unique_stakes", cfg.Ledger.MaxUniqueStakes)
	v.SetDefault("ledger.ip_staking_inflation_rate_pct", cfg.Ledger.IpStakingInflationRate)
	v.SetDefault("ledger.ips_inflation_percentage", cfg.Ledger.IpsInflationPercentage)
	v.SetDefault("ledger.staker_inflation_percentage", cfg.Ledger.StakerInflationPercentage)
	v.SetDefault("ledger.initial_per_era_amount", cfg.Ledger.InitialPerEraAmount)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("events.websocket_enabled", cfg.Events.WebSocketEnabled)
}

// BindFlags wires a cobra command's flags to viper
// overrides, the same `viper.BindPFlags(rootCmd.PersistentFlags())`
// pattern used elsewhere in the retrieval pack.
func BindFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// ParseBig parses one of the config's big-integer-valued string
// fields (min staking amount, register deposit, initial mint).
func ParseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer value %q", s)
	}
	return v, nil
}
