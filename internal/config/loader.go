package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/fieldserve/rmaflow/internal/db"
	"github.com/fieldserve/rmaflow/internal/ingestion"
)

// Ingestion holds the import pipeline tunables.
type Ingestion struct {
	BatchSize  int
	BatchPause time.Duration
}

// Config is the full application configuration.
type Config struct {
	ListenAddr string
	Database   db.Config
	Ingestion  Ingestion
}

// Load reads config.yaml from configPath with environment overrides
// (RMA_DATABASE_HOST and friends). A missing file means defaults plus env.
func Load(configPath string) (Config, error) {
	cfg := Config{
		ListenAddr: ":8080",
		Database:   db.DefaultConfig(),
		Ingestion: Ingestion{
			BatchSize:  ingestion.DefaultBatchSize,
			BatchPause: ingestion.DefaultBatchPause,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("RMA")

	v.BindEnv("server.listen_addr")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("ingestion.batch_size")
	v.BindEnv("ingestion.batch_pause")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.listen_addr") {
		cfg.ListenAddr = v.GetString("server.listen_addr")
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
	if v.IsSet("ingestion.batch_size") {
		cfg.Ingestion.BatchSize = v.GetInt("ingestion.batch_size")
	}
	if v.IsSet("ingestion.batch_pause") {
		cfg.Ingestion.BatchPause = v.GetDuration("ingestion.batch_pause")
	}

	return cfg, nil
}
