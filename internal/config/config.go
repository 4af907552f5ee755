package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PaymobConfig struct {
	APIKey        string `yaml:"api_key"`
	HMACSecret    string `yaml:"hmac_secret"`
	IntegrationID int64  `yaml:"integration_id"`
	IframeID      string `yaml:"iframe_id"`
	BaseURL       string `yaml:"base_url"`
}

type PayPalConfig struct {
	ClientID  string `yaml:"client_id"`
	Secret    string `yaml:"secret"`
	WebhookID string `yaml:"webhook_id"`
	ReturnURL string `yaml:"return_url"`
	Sandbox   bool   `yaml:"sandbox"`
}

type GatewaysConfig struct {
	Paymob PaymobConfig `yaml:"paymob"`
	PayPal PayPalConfig `yaml:"paypal"`
}

type ReconcileConfig struct {
	Timeout time.Duration `yaml:"timeout"` // per-event budget, lock TTL derives from it
}

type SchedulerConfig struct {
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
	ReaperInterval time.Duration `yaml:"reaper_interval"`
	CheckoutMaxAge time.Duration `yaml:"checkout_max_age"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type AlertsConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Gateways  GatewaysConfig  `yaml:"gateways"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`
	Alerts    AlertsConfig    `yaml:"alerts"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Reconcile.Timeout <= 0 {
		cfg.Reconcile.Timeout = 10 * time.Second
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Scheduler.ReaperInterval <= 0 {
		cfg.Scheduler.ReaperInterval = 15 * time.Minute
	}
	if cfg.Scheduler.CheckoutMaxAge <= 0 {
		cfg.Scheduler.CheckoutMaxAge = 24 * time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}
	if cfg.Gateways.Paymob.APIKey == "" && cfg.Gateways.PayPal.ClientID == "" {
		return nil, errors.New("at least one gateway must be configured")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
