package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string         `mapstructure:"port" validate:"required,numeric"`
	Env      string         `mapstructure:"env" validate:"oneof=development staging production test"`
	Locale   string         `mapstructure:"locale" validate:"oneof=en pt"`
	Timezone string         `mapstructure:"timezone" validate:"required"`
	Store    StoreConfig    `mapstructure:"store"`
	MongoDB  MongoConfig    `mapstructure:"mongodb"`
	Redis    RedisConfig    `mapstructure:"redis"`
	ZAPI     ZAPIConfig     `mapstructure:"zapi"`
	Log      LogConfig      `mapstructure:"log"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=mongo memory"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database" validate:"required"`
}

// RedisConfig enables the distributed per-actor lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" validate:"min=1s"`
}

// ZAPIConfig points at a Z-API WhatsApp instance.
type ZAPIConfig struct {
	BaseURL     string `mapstructure:"base_url" validate:"omitempty,url"`
	Instance    string `mapstructure:"instance"`
	Token       string `mapstructure:"token"`
	ClientToken string `mapstructure:"client_token"`
	// Interactive sends choices as buttons or option lists instead of numbered text.
	Interactive bool `mapstructure:"interactive"`
	// WebhookToken, when set, must match the token query parameter of inbound webhooks.
	WebhookToken string `mapstructure:"webhook_token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type WorkflowConfig struct {
	MaxBatchSpan     int    `mapstructure:"max_batch_span" validate:"min=1,max=500"`
	UnitsPerFloor    int    `mapstructure:"units_per_floor" validate:"min=1,max=99"`
	CountryCode      string `mapstructure:"country_code" validate:"omitempty,numeric"`
	DefaultBreakFrom string `mapstructure:"default_break_from" validate:"required"`
	DefaultBreakTo   string `mapstructure:"default_break_to" validate:"required"`
}

var validate = validator.New()

// Load reads defaults, an optional config file and the environment, in increasing precedence.
// Keys map to environment variables by upper-casing and replacing dots, e.g. mongodb.uri -> MONGODB_URI.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "3000")
	v.SetDefault("env", "development")
	v.SetDefault("locale", "pt")
	v.SetDefault("timezone", "Europe/Lisbon")

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "startia")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30s")

	v.SetDefault("zapi.base_url", "https://api.z-api.io")
	v.SetDefault("zapi.instance", "")
	v.SetDefault("zapi.token", "")
	v.SetDefault("zapi.client_token", "")
	v.SetDefault("zapi.interactive", true)
	v.SetDefault("zapi.webhook_token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("workflow.max_batch_span", 50)
	v.SetDefault("workflow.units_per_floor", 10)
	v.SetDefault("workflow.country_code", "351")
	v.SetDefault("workflow.default_break_from", "12:00")
	v.SetDefault("workflow.default_break_to", "13:00")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ZAPI.BaseURL = strings.TrimRight(cfg.ZAPI.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Store.Driver == "mongo" && c.MongoDB.URI == "" {
		return fmt.Errorf("config validation failed: mongodb.uri is required for the mongo store")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config validation failed: timezone: %w", err)
	}
	return nil
}

// Location returns the configured time zone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ZAPIEnabled reports whether outbound delivery through Z-API is configured.
func (c *Config) ZAPIEnabled() bool {
	return c.ZAPI.Instance != "" && c.ZAPI.Token != ""
}
