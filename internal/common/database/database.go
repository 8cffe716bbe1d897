package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// pure-Go sqlite driver registered as "sqlite"
	_ "modernc.org/sqlite"
)

// PostgresConfig describes a postgres connection. A non-empty DSN overrides the other fields;
// a DSN that is not a postgres URL opens sqlite instead (local development and tests).
type PostgresConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DatabaseURL returns the postgres URL form used by golang-migrate.
func (c PostgresConfig) DatabaseURL() string {
	if c.IsPostgresDSN() {
		return c.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// IsPostgresDSN reports whether the explicit DSN is a postgres URL.
func (c PostgresConfig) IsPostgresDSN() bool {
	return strings.HasPrefix(c.DSN, "postgres://") || strings.HasPrefix(c.DSN, "postgresql://")
}

// IsSQLite reports whether Connect will open sqlite.
func (c PostgresConfig) IsSQLite() bool {
	return c.DSN != "" && !c.IsPostgresDSN()
}

// Connect opens the database and configures the pool.
func Connect(cfg PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	if cfg.IsSQLite() {
		log.Info("using sqlite", zap.String("dsn", cfg.DSN))
		db, err := OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return db, nil
	}

	log.Info("connecting to postgres", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// OpenSQLite opens a sqlite database through the modernc driver.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
}
