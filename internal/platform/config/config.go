package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config is used to hold all runtime configuration.
type Config struct {
	Registry struct {
		PrivateKey          string `envconfig:"PRIV_KEY"`
		AdminAccount        string `envconfig:"ADMIN_ACCOUNT"`
		OperatorAccount     string `envconfig:"OPERATOR_ACCOUNT"`
		FinanceAccount      string `envconfig:"FINANCE_ACCOUNT"`
		DefaultDiscountRate uint32 `default:"70" envconfig:"DISCOUNT_RATE"`
		DefaultSpreadRate   uint32 `default:"15" envconfig:"SPREAD_RATE"`
		IsTest              bool   `default:"true" envconfig:"IS_TEST"`
	}
	Executor struct {
		CacheBuffer   int    `default:"100" envconfig:"CACHE_BUFFER"`
		EventBuffer   int    `default:"100" envconfig:"EVENT_BUFFER"`
		FlushInterval uint64 `default:"60000000000" envconfig:"FLUSH_INTERVAL"` // Default 1 minute
	}
	Events struct {
		PostgresURL string `envconfig:"EVENT_DB_URL"`
		Migrate     bool   `default:"true" envconfig:"EVENT_DB_MIGRATE"`
	}
	Logging struct {
		Format   string `default:"text" envconfig:"LOG_FORMAT"`
		FilePath string `envconfig:"LOG_FILE_PATH"`
	}
	AWS struct {
		Region          string `default:"ap-southeast-2" envconfig:"AWS_REGION" json:"AWS_REGION"`
		AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID" json:"AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY" json:"AWS_SECRET_ACCESS_KEY"`
	}
	Storage struct {
		Bucket string `default:"standalone" envconfig:"STORAGE_BUCKET"`
		Root   string `default:"./tmp" envconfig:"STORAGE_ROOT"`
	}
}

// SafeConfig masks sensitive config values
func SafeConfig(cfg Config) *Config {
	cfgSafe := cfg

	if len(cfgSafe.Registry.PrivateKey) > 0 {
		cfgSafe.Registry.PrivateKey = "*** Masked ***"
	}
	if len(cfgSafe.Events.PostgresURL) > 0 {
		cfgSafe.Events.PostgresURL = "*** Masked ***"
	}
	if len(cfgSafe.AWS.AccessKeyID) > 0 {
		cfgSafe.AWS.AccessKeyID = "*** Masked ***"
	}
	if len(cfgSafe.AWS.SecretAccessKey) > 0 {
		cfgSafe.AWS.SecretAccessKey = "*** Masked ***"
	}

	return &cfgSafe
}

// Environment returns configuration sourced from environment variables
func Environment() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("PLEDGE", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
