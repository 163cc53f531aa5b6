package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Etcd      EtcdConfig      `mapstructure:"etcd"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Orders    OrdersConfig    `mapstructure:"orders"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCConfig controls the health endpoint. Port 0 disables it.
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// NATSConfig enables cross-instance order status broadcast over NATS. It takes
// precedence over Redis pub/sub when both are set.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type MongoDBConfig struct {
	URI             string `mapstructure:"uri"`
	Database        string `mapstructure:"database"`
	AuditCollection string `mapstructure:"audit_collection"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	AdminEmails []string      `mapstructure:"admin_emails"`
}

type OrdersConfig struct {
	LowStockThreshold int           `mapstructure:"low_stock_threshold"`
	CancelWindow      time.Duration `mapstructure:"cancel_window"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type UploadsConfig struct {
	Dir           string `mapstructure:"dir"`
	URLPrefix     string `mapstructure:"url_prefix"`
	MaxBytes      int64  `mapstructure:"max_bytes"`
	CloudinaryURL string `mapstructure:"cloudinary_url"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "soukstyle-api")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("grpc.port", 0)

	v.SetDefault("etcd.endpoints", []string{})
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("nats.url", "")

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "soukstyle")
	v.SetDefault("mongodb.audit_collection", "audit_logs")

	v.SetDefault("storage.driver", DriverMongo)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.admin_emails", []string{})

	v.SetDefault("orders.low_stock_threshold", 5)
	v.SetDefault("orders.cancel_window", 24*time.Hour)

	v.SetDefault("rate_limit.requests", 500)
	v.SetDefault("rate_limit.window", 15*time.Minute)

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.url_prefix", "/uploads")
	v.SetDefault("uploads.max_bytes", int64(5<<20))
	v.SetDefault("uploads.cloudinary_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads the optional YAML file at configPath, then applies environment
// overrides. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// short names used by existing deployments
	_ = v.BindEnv("mongodb.uri", "MONGODB_URI", "MONGO_URI")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("nats.url", "NATS_URL")
	_ = v.BindEnv("uploads.cloudinary_url", "UPLOADS_CLOUDINARY_URL", "CLOUDINARY_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// ADMIN_EMAILS arrives as one comma separated string
	if raw, ok := os.LookupEnv("ADMIN_EMAILS"); ok {
		config.Auth.AdminEmails = splitList(raw)
	}
	config.Auth.AdminEmails = normalizeEmails(config.Auth.AdminEmails)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	switch c.Storage.Driver {
	case DriverMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("mongodb.uri (MONGO_URI) is required")
		}
		if c.MongoDB.Database == "" {
			return fmt.Errorf("mongodb.database is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Orders.CancelWindow <= 0 {
		return fmt.Errorf("orders.cancel_window must be positive")
	}
	return nil
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		// a single YAML/env value may itself be comma separated
		for _, part := range splitList(e) {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
