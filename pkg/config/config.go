package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Storage struct {
		Backend string `yaml:"backend"` // clickhouse or memory
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Backend string        `yaml:"backend"` // memory or redis
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Streaming struct {
		Intervals  []string `yaml:"intervals"`
		BufferSize int      `yaml:"buffer_size"`
		Binance    struct {
			Enabled          bool          `yaml:"enabled"`
			Symbols          []string      `yaml:"symbols"`
			Transport        string        `yaml:"transport"` // ws, rest, or auto
			WebSocketURL     string        `yaml:"websocket_url"`
			RESTURL          string        `yaml:"rest_url"`
			RESTPollInterval time.Duration `yaml:"rest_poll_interval"`
		} `yaml:"binance"`
		Oanda struct {
			Enabled     bool     `yaml:"enabled"`
			Instruments []string `yaml:"instruments"`
			APIKey      string   `yaml:"api_key"`
			AccountID   string   `yaml:"account_id"`
			Environment string   `yaml:"environment"` // practice or live
		} `yaml:"oanda"`
	} `yaml:"streaming"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("BINANCE_SYMBOLS"); v != "" {
		c.Streaming.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BINANCE_TRANSPORT"); v != "" {
		c.Streaming.Binance.Transport = v
	}
	if v := os.Getenv("OANDA_API_KEY"); v != "" {
		c.Streaming.Oanda.APIKey = v
	}
	if v := os.Getenv("OANDA_ACCOUNT_ID"); v != "" {
		c.Streaming.Oanda.AccountID = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "clickhouse"
	}
	if len(c.Streaming.Intervals) == 0 {
		c.Streaming.Intervals = []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w"}
	}
	if c.Streaming.BufferSize <= 0 {
		c.Streaming.BufferSize = 2000
	}
	if c.Streaming.Binance.Transport == "" {
		c.Streaming.Binance.Transport = "auto"
	}
	if c.Streaming.Binance.WebSocketURL == "" {
		c.Streaming.Binance.WebSocketURL = "wss://stream.binance.com:9443"
	}
	if c.Streaming.Binance.RESTURL == "" {
		c.Streaming.Binance.RESTURL = "https://api.binance.com/api/v3/klines"
	}
	if c.Streaming.Binance.RESTPollInterval < time.Second {
		c.Streaming.Binance.RESTPollInterval = 2 * time.Second
	}
	if c.Streaming.Oanda.Environment == "" {
		c.Streaming.Oanda.Environment = "practice"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 15 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Storage.Backend != "clickhouse" && c.Storage.Backend != "memory" {
		return fmt.Errorf("storage.backend must be 'clickhouse' or 'memory', got '%s'", c.Storage.Backend)
	}
	switch c.Streaming.Binance.Transport {
	case "ws", "rest", "auto":
	default:
		return fmt.Errorf("streaming.binance.transport must be 'ws', 'rest', or 'auto', got '%s'",
			c.Streaming.Binance.Transport)
	}
	if c.Streaming.Binance.Enabled && len(c.Streaming.Binance.Symbols) == 0 {
		return fmt.Errorf("streaming.binance.symbols cannot be empty when binance is enabled")
	}
	if c.Streaming.Oanda.Enabled {
		if c.Streaming.Oanda.APIKey == "" || c.Streaming.Oanda.AccountID == "" {
			return fmt.Errorf("streaming.oanda requires api_key and account_id when enabled")
		}
		if len(c.Streaming.Oanda.Instruments) == 0 {
			return fmt.Errorf("streaming.oanda.instruments cannot be empty when oanda is enabled")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	return nil
}
