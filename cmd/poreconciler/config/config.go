// Package config assembles the application configuration from flags,
// environment, and an optional config file, and exposes it as the component
// configs the services expect.
package config

import (
	"time"

	"github.com/spf13/viper"

	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/erp"
	"po-reconciliation-service/internal/server"
	"po-reconciliation-service/internal/syncer"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// AppConfig is the fully resolved application configuration
type AppConfig struct {
	DatabaseURL  string
	ERP          *erp.Config
	Engine       *comparer.EngineConfig
	Syncer       *syncer.Config
	Server       *server.Config
	SyncSchedule string
	Logging      *logger.Config
}

// SetDefaults registers every configuration default with viper. Called once
// from command initialization before flags are bound.
func SetDefaults() {
	viper.SetDefault("erp.timeout", "30s")
	viper.SetDefault("erp.cache_ttl", "5m")
	viper.SetDefault("syncer.stale_after", "24h")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("sync.schedule", "0 */6 * * *")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// Load resolves the application configuration from viper
func Load() (*AppConfig, error) {
	erpConfig := erp.DefaultConfig()
	erpConfig.BaseURL = viper.GetString("erp.base_url")
	erpConfig.ClientID = viper.GetString("erp.client_id")
	erpConfig.ClientSecret = viper.GetString("erp.client_secret")
	if d := viper.GetDuration("erp.timeout"); d > 0 {
		erpConfig.Timeout = d
	}
	if d := viper.GetDuration("erp.cache_ttl"); d > 0 {
		erpConfig.CacheTTL = d
	}

	engineConfig := comparer.DefaultEngineConfig()
	if v := viper.GetString("engine.default_price_list"); v != "" {
		engineConfig.DefaultPriceList = v
	}
	if v := viper.GetFloat64("engine.source_score_threshold"); v > 0 {
		engineConfig.Matching.SourceScoreThreshold = v
	}
	if v := viper.GetFloat64("engine.invoice_score_threshold"); v > 0 {
		engineConfig.Matching.InvoiceScoreThreshold = v
	}
	if err := engineConfig.Validate(); err != nil {
		return nil, err
	}

	syncerConfig := syncer.DefaultConfig()
	if d := viper.GetDuration("syncer.stale_after"); d > 0 {
		syncerConfig.StaleAfter = d
	}

	serverConfig := server.DefaultConfig()
	if v := viper.GetString("server.addr"); v != "" {
		serverConfig.Addr = v
	}
	if d := viper.GetDuration("server.write_timeout"); d > 0 {
		serverConfig.WriteTimeout = d
	}

	logConfig := &logger.Config{
		Level:  logger.Level(viper.GetString("log.level")),
		Format: logger.Format(viper.GetString("log.format")),
		File:   viper.GetString("log.file"),
	}
	if viper.GetBool("verbose") {
		logConfig.Level = logger.DebugLevel
	}
	if err := logConfig.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig{
		DatabaseURL:  viper.GetString("database_url"),
		ERP:          erpConfig,
		Engine:       engineConfig,
		Syncer:       syncerConfig,
		Server:       serverConfig,
		SyncSchedule: viper.GetString("sync.schedule"),
		Logging:      logConfig,
	}, nil
}

// RequireDatabase fails when no database URL is configured. Commands that
// work purely from fixture files never call this.
func (c *AppConfig) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "database_url", nil, nil)
	}
	return nil
}

// RequireERP fails when the procurement API credentials are incomplete
func (c *AppConfig) RequireERP() error {
	return c.ERP.Validate()
}

// Timeout for one-shot CLI commands against external systems
const CommandTimeout = 10 * time.Minute
