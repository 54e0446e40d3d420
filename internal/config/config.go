package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	SendQueue  int           `mapstructure:"send_queue"`

	JWTSecret string `mapstructure:"jwt_secret"`
	JWTAlg    string `mapstructure:"jwt_alg"`

	Store             string        `mapstructure:"store"`
	MongoURI          string        `mapstructure:"mongo_uri"`
	MongoDatabase     string        `mapstructure:"mongo_database"`
	MongoMaxRetry     int           `mapstructure:"mongo_max_retry"`
	MongoRetryDelay   time.Duration `mapstructure:"mongo_retry_delay"`
	MongoMaxPoolSize  uint64        `mapstructure:"mongo_max_pool_size"`
	OpTimeout         time.Duration `mapstructure:"op_timeout"`
	ClearHostsOnStart bool          `mapstructure:"clear_hosts_on_start"`

	Backpressure      string        `mapstructure:"backpressure"`
	HandshakeLimit    int           `mapstructure:"handshake_limit"`
	HandshakeInterval time.Duration `mapstructure:"handshake_interval"`
}

// Load reads config/config.<env>.yaml, then environment, then flags.
// env comes from --env or CONFIG_ENV and defaults to dev.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("farmrelay", pflag.ContinueOnError)
	fs.String("env", "", "config environment (config/config.<env>.yaml)")
	fs.Int("port", 0, "listen port")
	fs.String("store", "", "store driver: mongo or memory")
	fs.String("log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env, _ := fs.GetString("env")
	if env == "" {
		env = os.Getenv("CONFIG_ENV")
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 5050)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 100_000_000)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("send_queue", 256)
	v.SetDefault("jwt_alg", "HS256")
	v.SetDefault("store", "mongo")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "farmcontrol")
	v.SetDefault("mongo_max_retry", 3)
	v.SetDefault("mongo_retry_delay", "2s")
	v.SetDefault("mongo_max_pool_size", 0)
	v.SetDefault("op_timeout", "5s")
	v.SetDefault("clear_hosts_on_start", true)
	v.SetDefault("backpressure", "drop")
	v.SetDefault("handshake_limit", 0)
	v.SetDefault("handshake_interval", "10s")

	// names kept from the deployed environment
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("mongo_uri", "MONGO_URI")

	if f := fs.Lookup("port"); f.Changed {
		_ = v.BindPFlag("port", f)
	}
	if f := fs.Lookup("store"); f.Changed {
		_ = v.BindPFlag("store", f)
	}
	if f := fs.Lookup("log-level"); f.Changed {
		_ = v.BindPFlag("log_level", f)
	}

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Store: %s\n", cfg.Mode, cfg.Port, cfg.Store)
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (set JWT_SECRET)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PongWait <= c.PingPeriod {
		return fmt.Errorf("pong_wait (%s) must exceed ping_period (%s)", c.PongWait, c.PingPeriod)
	}
	if c.MongoRetryDelay < 0 {
		return fmt.Errorf("mongo_retry_delay must not be negative")
	}
	switch c.Store {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.Backpressure {
	case "drop", "kick":
	default:
		return fmt.Errorf("unknown backpressure policy %q", c.Backpressure)
	}
	return nil
}
