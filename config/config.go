// Package config provides configuration management for the wxpay payment service.
// Configuration can be loaded from YAML files and overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"wxpay/entity"
)

const (
	DefaultApiUrl     = "https://api.mch.weixin.qq.com"
	DefaultSandboxUrl = "https://api.mch.weixin.qq.com/sandboxnew"
)

// Config holds all configuration for the wxpay payment service.
// Values can be set via YAML configuration file or environment variables.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug bool `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	Listen  struct {
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5100"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:""`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"wxpay"`
	} `yaml:"mongo"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:""`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL" env-default:"24h"`
	} `yaml:"redis"`
	App struct {
		Id string `yaml:"id" env:"APP_ID" env-default:""`
	} `yaml:"app"`
	Merchant struct {
		Id        string `yaml:"id" env:"MERCHANT_ID" env-default:""`
		SignKey   string `yaml:"sign_key" env:"MERCHANT_SIGN_KEY" env-default:""`
		NotifyUrl string `yaml:"notify_url" env:"MERCHANT_NOTIFY_URL" env-default:""`
		ApiUrl    string `yaml:"api_url" env:"MERCHANT_API_URL" env-default:""`
		TradeType string `yaml:"trade_type" env:"MERCHANT_TRADE_TYPE" env-default:"APP"`
		Sandbox   bool   `yaml:"sandbox" env:"MERCHANT_SANDBOX" env-default:"false"`
		// Timeout bounds a single gateway request.
		Timeout time.Duration `yaml:"timeout" env:"MERCHANT_TIMEOUT" env-default:"30s"`
	} `yaml:"merchant"`
}

// Load reads configuration from the YAML file at path. Values from a .env file
// in the working directory and from the process environment override the file.
// Every call returns a fresh Config; callers pass it on by pointer.
//
// Example:
//
//	cfg, err := config.Load("config.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("load config: %w; %s", err, desc)
	}
	return conf, nil
}

// FromEnv builds configuration from environment variables only.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{}
	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return conf, nil
}

// Check reports credentials that must be present before any signing call.
func (c *Config) Check() error {
	var missing []string
	if c.App.Id == "" {
		missing = append(missing, "app.id")
	}
	if c.Merchant.Id == "" {
		missing = append(missing, "merchant.id")
	}
	if c.Merchant.SignKey == "" {
		missing = append(missing, "merchant.sign_key")
	}
	if len(missing) > 0 {
		return errors.New("merchant not configured: " + strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) AppConfig() *entity.App {
	return &entity.App{Id: c.App.Id}
}

func (c *Config) MerchantConfig() *entity.Merchant {
	return &entity.Merchant{
		Id:      c.Merchant.Id,
		SignKey: c.Merchant.SignKey,
	}
}

// BaseUrl returns the gateway endpoint root without a trailing slash.
func (c *Config) BaseUrl() string {
	if c.Merchant.ApiUrl != "" {
		return strings.TrimRight(c.Merchant.ApiUrl, "/")
	}
	if c.Merchant.Sandbox {
		return DefaultSandboxUrl
	}
	return DefaultApiUrl
}
