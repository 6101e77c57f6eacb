package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	AppPort    int    `mapstructure:"app_port"`
	SocketPort int    `mapstructure:"socket_port"`
}

func (s ServerConfig) AppAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.AppPort)
}

func (s ServerConfig) SocketAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.SocketPort)
}

type MongoConfig struct {
	URI                     string `mapstructure:"uri"`
	Database                string `mapstructure:"database"`
	ConversationsCollection string `mapstructure:"conversations_collection"`
	MessagesCollection      string `mapstructure:"messages_collection"`
	UsersCollection         string `mapstructure:"users_collection"`
	ListingsCollection      string `mapstructure:"listings_collection"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type BlobConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type ThrottleConfig struct {
	// Per-sender, per-conversation message budget.
	SendCapacity  int64 `mapstructure:"send_capacity"`
	SendPerSecond int64 `mapstructure:"send_per_second"`
	// Shared budget for everything outside the chat routes.
	GlobalCapacity int64 `mapstructure:"global_capacity"`
	GlobalRefill   int64 `mapstructure:"global_refill"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Blob     BlobConfig     `mapstructure:"blob"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// LoadConfig reads config.yaml from path (plus CHAT_-prefixed environment
// overrides, e.g. CHAT_MONGO_URI) and fills in defaults for anything the
// file omits. A missing file is fine; a malformed one is not.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.app_port", 8080)
	v.SetDefault("server.socket_port", 8081)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "realestate")
	v.SetDefault("mongo.conversations_collection", "conversations")
	v.SetDefault("mongo.messages_collection", "messages")
	v.SetDefault("mongo.users_collection", "users")
	v.SetDefault("mongo.listings_collection", "listings")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)

	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("throttle.send_capacity", 10)
	v.SetDefault("throttle.send_per_second", 1)
	v.SetDefault("throttle.global_capacity", 100)
	v.SetDefault("throttle.global_refill", 50)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
}
