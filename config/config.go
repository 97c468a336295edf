/*
Package config loads engine policy and server settings.

PURPOSE:
  Centralizes every tunable the engine must not hardcode: minimum movement
  amount, minimum loan principal, account number prefix, default currency,
  plus server port and database path. Values come from environment
  variables, optionally seeded from a .env file, via viper.
*/
package config

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/bvolvy/bwat-sekre/ledger"
	"github.com/bvolvy/bwat-sekre/loan"
)

// Config holds all configuration for the server and the engine policies.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`

	// Engine policy
	MinTransactionAmount float64 `mapstructure:"MIN_TRANSACTION_AMOUNT"`
	MinLoanAmount        float64 `mapstructure:"MIN_LOAN_AMOUNT"`
	DefaultCurrency      string  `mapstructure:"DEFAULT_CURRENCY"`
	AccountNumberPrefix  string  `mapstructure:"ACCOUNT_NUMBER_PREFIX"`
}

// Load reads configuration from environment variables, with an optional
// .env file in path. Environment variables always win over file values.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "bwat-sekre.db")
	viper.SetDefault("MIN_TRANSACTION_AMOUNT", 5.0)
	viper.SetDefault("MIN_LOAN_AMOUNT", 50.0)
	viper.SetDefault("DEFAULT_CURRENCY", "HTG")
	viper.SetDefault("ACCOUNT_NUMBER_PREFIX", "BS")

	// The .env file is optional; only real read errors are surfaced.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LedgerPolicy converts the configured minimums into the ledger's policy.
func (c Config) LedgerPolicy() ledger.Policy {
	return ledger.Policy{MinAmount: decimal.NewFromFloat(c.MinTransactionAmount)}
}

// LoanPolicy converts the configured minimums into the loan book's policy.
func (c Config) LoanPolicy() loan.Policy {
	return loan.Policy{MinAmount: decimal.NewFromFloat(c.MinLoanAmount)}
}
