package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the main config struct
type Config struct {
	Environment string         `yaml:"environment" env:"ENVIRONMENT" env-default:"production" env-description:"Environment name"`
	Secret      string         `yaml:"secret" env:"SECRET" env-default:"" env-description:"Bearer token the game host uses to call the API"`
	Verbose     string         `yaml:"verbose" env:"VERBOSE" env-default:"info" env-description:"Verbose mode for debug output"`
	LogFormat   string         `yaml:"log_format" env:"LOG_FORMAT" env-default:"text" env-description:"Log output format: text or json"`
	Database    DatabaseConfig `yaml:"database"`
	API         APIConfig      `yaml:"api"`
	Ban         BanConfig      `yaml:"ban"`
	Webhooks    WebhooksConfig `yaml:"webhooks"`
	Telegram    TelegramConfig `yaml:"telegram"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Cache       CacheConfig    `yaml:"cache"`
	Proxy       ProxyConfig    `yaml:"proxy"`
}

// Ban engine config
type BanConfig struct {
	// Instance identifies this game server in the servers table.
	Instance string `yaml:"instance" env:"BAN_INSTANCE" env-default:"default" env-description:"Name of this game server instance"`
	// CaptureIdentifiers controls whether issued bans record the ip and hwid of the target.
	// No env-default: cleanenv would apply it over an explicit false in the yaml file.
	CaptureIdentifiers  bool   `yaml:"capture_identifiers" env:"BAN_CAPTURE_IDENTIFIERS" env-description:"Record ip and hwid on issued bans"`
	EvasionReason       string `yaml:"evasion_reason" env:"BAN_EVASION_REASON" env-default:"Ban evasion via a known address or device"`
	NewIdentifierReason string `yaml:"new_identifier_reason" env:"BAN_NEW_IDENTIFIER_REASON" env-default:"Banned account connected from a new address or device"`
	SystemActor         string `yaml:"system_actor" env:"BAN_SYSTEM_ACTOR" env-default:"Ban evasion detection"`
	ExternalActor       string `yaml:"external_actor" env:"BAN_EXTERNAL_ACTOR" env-default:"External"`
}

// Outbound webhook config, one entry per event kind
type WebhooksConfig struct {
	DisplayName string        `yaml:"display_name" env:"WEBHOOKS_DISPLAY_NAME" env-default:"Global Ban"`
	ImageURL    string        `yaml:"image_url" env:"WEBHOOKS_IMAGE_URL" env-default:""`
	Timeout     time.Duration `yaml:"timeout" env:"WEBHOOKS_TIMEOUT" env-default:"10s"`
	Ban         WebhookConfig `yaml:"ban" env-prefix:"WEBHOOKS_BAN_"`
	BanEvading  WebhookConfig `yaml:"banevading" env-prefix:"WEBHOOKS_BANEVADING_"`
	Kick        WebhookConfig `yaml:"kick" env-prefix:"WEBHOOKS_KICK_"`
	Unban       WebhookConfig `yaml:"unban" env-prefix:"WEBHOOKS_UNBAN_"`
}

// Single webhook destination
type WebhookConfig struct {
	URL   string `yaml:"url" env:"URL" env-default:""`
	Color int    `yaml:"color" env:"COLOR" env-default:"0"`
}

// Telegram config
type TelegramConfig struct {
	Token   string        `yaml:"token" env:"TELEGRAM_TOKEN" env-default:"" env-description:"Telegram bot token, empty disables the bot"`
	API     string        `yaml:"api" env:"TELEGRAM_API" env-default:"https://api.telegram.org" env-description:"Bot API server"`
	Timeout time.Duration `yaml:"timeout" env:"TELEGRAM_TIMEOUT" env-default:"10s"`
	ChatID  int64         `yaml:"chat_id" env:"TELEGRAM_CHAT_ID" env-default:"0" env-description:"Chat that receives ban events"`
	Admins  []int64       `yaml:"admins" env:"TELEGRAM_ADMINS" env-description:"Telegram users allowed to run ban commands"`
	Poll    bool          `yaml:"poll" env:"TELEGRAM_POLL" env-default:"false" env-description:"Poll for admin commands"`
}

// API config
type APIConfig struct {
	Host         string        `yaml:"host" env:"API_HOST" env-default:"localhost" env-description:"API host address to bind to"`
	Port         int           `yaml:"port" env:"API_PORT" env-default:"8080" env-description:"API port to bind to"`
	Timeout      time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"API_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"API_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"API_IDLE_TIMEOUT" env-default:"15s"`
}

// SQLite, PostgreSQL or MySQL config
type DatabaseConfig struct {
	// Driver is the database driver to use. Supported drivers are "sqlite3", "postgres" and "mysql".
	Driver     string        `yaml:"driver" env:"DATABASE_DRIVER" env-default:"sqlite3" env-description:"Database driver to use"`
	Connection string        `yaml:"connection" env:"DATABASE_CONNECTION" env-default:":memory:" env-description:"Database connection string"`
	Timeout    time.Duration `yaml:"timeout" env:"DATABASE_TIMEOUT" env-default:"3s" env-description:"Upper bound for a single store operation"`
}

// InfluxDB config, empty URL disables metrics
type MetricsConfig struct {
	URL    string `yaml:"url" env:"METRICS_URL" env-default:""`
	Token  string `yaml:"token" env:"METRICS_TOKEN" env-default:""`
	Org    string `yaml:"org" env:"METRICS_ORG" env-default:""`
	Bucket string `yaml:"bucket" env:"METRICS_BUCKET" env-default:"bans"`
}

// Display name cache config
type CacheConfig struct {
	NumCounters int64         `yaml:"num_counters" env:"CACHE_NUM_COUNTERS" env-default:"100000"`
	MaxCost     int64         `yaml:"max_cost" env:"CACHE_MAX_COST" env-default:"10000"`
	TTL         time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"10m"`
}

// SOCKS5 proxy for outbound notifications
type ProxyConfig struct {
	Address  string `yaml:"address" env:"PROXY_ADDRESS" env-default:""`
	Port     int    `yaml:"port" env:"PROXY_PORT" env-default:"0"`
	Username string `yaml:"username" env:"PROXY_USERNAME" env-default:""`
	Password string `yaml:"password" env:"PROXY_PASSWORD" env-default:""`
}

// ConfigError is returned when the config file cannot be loaded
type ConfigError struct {
	Message string
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	return e.Message
}

func MustLoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Config file does not exist: %s", configPath),
		}
	}

	var config Config

	if err := cleanenv.ReadConfig(configPath, &config); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Cannot read config file: %s", err),
		}
	}

	return &config, nil
}
