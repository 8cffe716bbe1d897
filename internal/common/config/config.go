package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds connection settings for the relational store.
// DSN, when set, wins over the discrete fields (and selects sqlite when it is not a postgres URL).
type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	GroupPrefix string
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

// Load reads an optional .env file and returns a viper instance bound to the environment
// under the given prefix. Keys use dots; env vars use underscores (db.host -> PREFIX_DB_HOST).
func Load(prefix string) (*viper.Viper, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "development")
	v.SetDefault("service.port", "8080")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")

	if v.GetString("app.env") != "development" && v.GetString("jwt.secret") == "" {
		return nil, fmt.Errorf("%s_JWT_SECRET must be set outside development", prefix)
	}
	return v, nil
}

// GetAppEnv returns the deployment environment name.
func GetAppEnv(v *viper.Viper) string {
	return v.GetString("app.env")
}

// GetServicePort returns the listen address (":8080" style) for the HTTP server.
func GetServicePort(v *viper.Viper, key string) string {
	port := v.GetString(key)
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// LoadDatabaseConfig reads db.* keys; dbNameKey names the key holding the database name.
func LoadDatabaseConfig(v *viper.Viper, dbNameKey, defaultName string) DatabaseConfig {
	v.SetDefault(dbNameKey, defaultName)
	return DatabaseConfig{
		DSN:      v.GetString("db.dsn"),
		Host:     v.GetString("db.host"),
		Port:     v.GetString("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		DBName:   v.GetString(dbNameKey),
		SSLMode:  v.GetString("db.sslmode"),
	}
}

// LoadJWTConfig reads jwt.* keys. Development falls back to a fixed secret.
func LoadJWTConfig(v *viper.Viper) JWTConfig {
	secret := v.GetString("jwt.secret")
	if secret == "" {
		secret = "dev-only-secret"
	}
	return JWTConfig{
		Secret:   secret,
		TokenTTL: v.GetDuration("jwt.ttl"),
	}
}

// LoadKafkaConfig reads kafka.* keys. Brokers are comma separated.
func LoadKafkaConfig(v *viper.Viper) KafkaConfig {
	var brokers []string
	for _, b := range strings.Split(v.GetString("kafka.brokers"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Enabled:     v.GetBool("kafka.enabled"),
		Brokers:     brokers,
		GroupPrefix: v.GetString("kafka.group_prefix"),
	}
}

// LoadTracingConfig reads tracing.* keys.
func LoadTracingConfig(v *viper.Viper) TracingConfig {
	return TracingConfig{
		Enabled:  v.GetBool("tracing.enabled"),
		Endpoint: v.GetString("tracing.endpoint"),
	}
}
