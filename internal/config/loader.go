package config

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"catalog-importer/internal/db"
)

// Config collects runtime configuration for the server.
type Config struct {
	ServerAddr     string
	MigrationsPath string
	Database       db.Config
	Import         ImportConfig
	Webhook        WebhookConfig
}

// ImportConfig tunes the ingestion pipeline.
type ImportConfig struct {
	BatchSize      int
	CheckpointRows int
	MaxUploadBytes int64
}

// WebhookConfig tunes outbound webhook deliveries.
type WebhookConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		ServerAddr:     ":8080",
		MigrationsPath: "./migrations",
		Database:       db.DefaultConfig(),
		Import: ImportConfig{
			BatchSize:      1000,
			CheckpointRows: 100,
			MaxUploadBytes: 100 << 20, // 100 MiB
		},
		Webhook: WebhookConfig{
			Timeout:   10 * time.Second,
			UserAgent: "catalog-importer-webhook/1.0",
		},
	}
}

// Load reads config.yaml from configPath and applies environment
// overrides on top of the defaults.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()          // allow environment overrides
	v.SetEnvPrefix("CATALOG") // map env vars like CATALOG_SERVER_ADDR
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("server.addr")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("import.batch_size")
	v.BindEnv("import.checkpoint_rows")
	v.BindEnv("import.max_upload_bytes")
	v.BindEnv("webhook.timeout")
	v.BindEnv("webhook.user_agent")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Use defaults + env.
		logrus.Info("no config.yaml found, using defaults and env vars")
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Info("loaded config.yaml")
	}

	if v.IsSet("server.addr") {
		cfg.ServerAddr = v.GetString("server.addr")
	}
	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("import.batch_size") {
		cfg.Import.BatchSize = v.GetInt("import.batch_size")
	}
	if v.IsSet("import.checkpoint_rows") {
		cfg.Import.CheckpointRows = v.GetInt("import.checkpoint_rows")
	}
	if v.IsSet("import.max_upload_bytes") {
		cfg.Import.MaxUploadBytes = v.GetInt64("import.max_upload_bytes")
	}
	if v.IsSet("webhook.timeout") {
		cfg.Webhook.Timeout = v.GetDuration("webhook.timeout")
	}
	if v.IsSet("webhook.user_agent") {
		cfg.Webhook.UserAgent = v.GetString("webhook.user_agent")
	}

	return cfg, nil
}
