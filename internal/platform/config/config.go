package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "CREDBRIDGE"

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
	WebhookAPIKey   string
	AllowedOrigins  []string
}

// Platform configures the upstream credential platform client.
type Platform struct {
	BaseURL  string
	APIToken string
	OrgID    string
	Timeout  time.Duration
}

// Session configures connection session lifetimes.
type Session struct {
	TTL time.Duration
}

// RedisConfig enables the Redis-backed session store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig enables the Postgres-backed proof store when URL is set.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// KafkaConfig enables publishing of platform events when Brokers is set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Config is the complete service configuration.
type Config struct {
	Server              Server
	Platform            Platform
	Session             Session
	Redis               RedisConfig
	Database            DatabaseConfig
	Kafka               KafkaConfig
	CredentialTypesFile string
	ProofAttributesFile string
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("addr", ":8080")
	vp.SetDefault("shutdown_timeout", 10*time.Second)
	vp.SetDefault("log.level", "info")
	vp.SetDefault("log.format", "json")
	vp.SetDefault("platform.timeout", 10*time.Second)
	vp.SetDefault("session.ttl", 30*time.Minute)
	vp.SetDefault("redis.pool_size", 10)
	vp.SetDefault("redis.min_idle_conns", 2)
	vp.SetDefault("redis.dial_timeout", 5*time.Second)
	vp.SetDefault("redis.read_timeout", 3*time.Second)
	vp.SetDefault("redis.write_timeout", 3*time.Second)
	vp.SetDefault("database.max_open_conns", 10)
	vp.SetDefault("database.max_idle_conns", 5)
	vp.SetDefault("kafka.topic", "credbridge.platform-events")
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables use the CREDBRIDGE_ prefix with "." replaced by "_",
// e.g. CREDBRIDGE_PLATFORM_ORG_ID.
func Load(path string) (*Config, error) {
	vp := viper.New()
	setDefaults(vp)
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return fromViper(vp), nil
}

// FromEnv builds the config from environment variables only so main stays lean.
func FromEnv() *Config {
	cfg, _ := Load("")
	return cfg
}

func fromViper(vp *viper.Viper) *Config {
	return &Config{
		Server: Server{
			Addr:            vp.GetString("addr"),
			ShutdownTimeout: vp.GetDuration("shutdown_timeout"),
			LogLevel:        vp.GetString("log.level"),
			LogFormat:       vp.GetString("log.format"),
			WebhookAPIKey:   vp.GetString("webhook.api_key"),
			AllowedOrigins:  splitList(vp.GetStringSlice("ws.allowed_origins")),
		},
		Platform: Platform{
			BaseURL:  strings.TrimRight(vp.GetString("platform.base_url"), "/"),
			APIToken: vp.GetString("platform.api_token"),
			OrgID:    vp.GetString("platform.org_id"),
			Timeout:  vp.GetDuration("platform.timeout"),
		},
		Session: Session{
			TTL: vp.GetDuration("session.ttl"),
		},
		Redis: RedisConfig{
			URL:          vp.GetString("redis.url"),
			PoolSize:     vp.GetInt("redis.pool_size"),
			MinIdleConns: vp.GetInt("redis.min_idle_conns"),
			DialTimeout:  vp.GetDuration("redis.dial_timeout"),
			ReadTimeout:  vp.GetDuration("redis.read_timeout"),
			WriteTimeout: vp.GetDuration("redis.write_timeout"),
		},
		Database: DatabaseConfig{
			URL:          vp.GetString("database.url"),
			MaxOpenConns: vp.GetInt("database.max_open_conns"),
			MaxIdleConns: vp.GetInt("database.max_idle_conns"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(vp.GetStringSlice("kafka.brokers")),
			Topic:   vp.GetString("kafka.topic"),
		},
		CredentialTypesFile: vp.GetString("credential_types.file"),
		ProofAttributesFile: vp.GetString("proof_attributes.file"),
	}
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// IsPlaceholder reports whether a required identifier is missing or still set
// to a template value.
func IsPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return true
	}
	switch strings.ToLower(v) {
	case "changeme", "change-me", "todo", "your-org-id", "your_org_id", "org-id", "placeholder":
		return true
	}
	return false
}
