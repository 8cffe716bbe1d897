package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/parkwise/service-parking/internal/common/config"
)

// EnvPrefix is the prefix of every environment variable the service reads.
const EnvPrefix = "PARKING"

// FeedConfig controls the public availability feed poller.
type FeedConfig struct {
	Enabled      bool
	URL          string
	PollInterval time.Duration
}

// BookingConfig controls booking time evaluation and expiry.
type BookingConfig struct {
	Location      *time.Location
	SweepInterval time.Duration
}

// SessionConfig controls login sessions.
type SessionConfig struct {
	WorkingSetSize int
	ReapInterval   time.Duration
}

// ServiceConfig holds all configuration for the parking service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	MigrationsDir string
	AdminEmails   []string
	DBConfig      config.DatabaseConfig
	JWTConfig     config.JWTConfig
	KafkaConfig   config.KafkaConfig
	TracingConfig config.TracingConfig
	Feed          FeedConfig
	Booking       BookingConfig
	Session       SessionConfig
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load(EnvPrefix)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper builds the service configuration from an already prepared viper instance.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	v.SetDefault("migrations.dir", "migrations")
	v.SetDefault("admin.emails", "")
	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.url", "https://api.data.gov.sg/v1/transport/carpark-availability")
	v.SetDefault("feed.poll_interval", "5m")
	v.SetDefault("booking.timezone", "Asia/Singapore")
	v.SetDefault("booking.sweep_interval", "60s")
	v.SetDefault("session.working_set_size", 200)
	v.SetDefault("session.reap_interval", "5m")

	loc, err := time.LoadLocation(v.GetString("booking.timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", v.GetString("booking.timezone"), err)
	}

	return &ServiceConfig{
		Port:          config.GetServicePort(v, "service.port"),
		AppEnv:        config.GetAppEnv(v),
		MigrationsDir: v.GetString("migrations.dir"),
		AdminEmails:   splitList(v.GetString("admin.emails")),
		DBConfig:      config.LoadDatabaseConfig(v, "db.name", "parking"),
		JWTConfig:     config.LoadJWTConfig(v),
		KafkaConfig:   config.LoadKafkaConfig(v),
		TracingConfig: config.LoadTracingConfig(v),
		Feed: FeedConfig{
			Enabled:      v.GetBool("feed.enabled"),
			URL:          v.GetString("feed.url"),
			PollInterval: v.GetDuration("feed.poll_interval"),
		},
		Booking: BookingConfig{
			Location:      loc,
			SweepInterval: v.GetDuration("booking.sweep_interval"),
		},
		Session: SessionConfig{
			WorkingSetSize: v.GetInt("session.working_set_size"),
			ReapInterval:   v.GetDuration("session.reap_interval"),
		},
	}, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *ServiceConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
