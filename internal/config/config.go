package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	LogLevel       string        `mapstructure:"log_level"`
	Port           int           `mapstructure:"port"`
	SignalingURL   string        `mapstructure:"signaling_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Secret         string        `mapstructure:"secret"`
	Account        string        `mapstructure:"account"`
	UserID         string        `mapstructure:"user_id"`
	DisplayName    string        `mapstructure:"display_name"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8090)
	v.SetDefault("signaling_url", "ws://localhost:8080/ws")
	v.SetDefault("reconnect_delay", "2s")
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("secret", "roomlink-dev-secret")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Signaling: %s\n", cfg.Mode, cfg.Port, cfg.SignalingURL)
	return &cfg, nil
}
