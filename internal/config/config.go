// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`

	// Engine settings
	EngineVersion string `mapstructure:"engineversion"`

	// Raw document collections
	TrackingCollection   string `mapstructure:"trackingcollection"`
	ListingsCollection   string `mapstructure:"listingscollection"`
	CategoriesCollection string `mapstructure:"categoriescollection"`
	MaxTrackingRows      int    `mapstructure:"maxtrackingrows"`
	MaxListingRows       int    `mapstructure:"maxlistingrows"`
	MaxCategoryRows      int    `mapstructure:"maxcategoryrows"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	GeoDBPath             string `mapstructure:"geodbpath"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Data retention settings
	RawDocsRetentionDays int `mapstructure:"rawdocsretentiondays"`

	// Insights cache settings
	InsightsCacheTTLSeconds int `mapstructure:"insightscachettlseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "shoplens")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("engineversion", "insights-v2")
		v.SetDefault("trackingcollection", "tracking_docs")
		v.SetDefault("listingscollection", "listing_docs")
		v.SetDefault("categoriescollection", "category_docs")
		v.SetDefault("maxtrackingrows", 20000)
		v.SetDefault("maxlistingrows", 5000)
		v.SetDefault("maxcategoryrows", 2000)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("publicdir", "")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("jobintervalseconds", 60)
		v.SetDefault("rawdocsretentiondays", 90)
		v.SetDefault("insightscachettlseconds", 300)

		// Bind environment variables
		v.BindEnv("appname", "SHOPLENS_APP_NAME")
		v.BindEnv("appport", "SHOPLENS_APP_PORT")
		v.BindEnv("environment", "SHOPLENS_ENV")
		v.BindEnv("loglevel", "SHOPLENS_LOG_LEVEL")
		v.BindEnv("privatekey", "SHOPLENS_PRIVATE_KEY")
		v.BindEnv("engineversion", "SHOPLENS_ENGINE_VERSION")
		v.BindEnv("trackingcollection", "SHOPLENS_TRACKING_COLLECTION")
		v.BindEnv("listingscollection", "SHOPLENS_LISTINGS_COLLECTION")
		v.BindEnv("categoriescollection", "SHOPLENS_CATEGORIES_COLLECTION")
		v.BindEnv("maxtrackingrows", "SHOPLENS_MAX_TRACKING_ROWS")
		v.BindEnv("maxlistingrows", "SHOPLENS_MAX_LISTING_ROWS")
		v.BindEnv("maxcategoryrows", "SHOPLENS_MAX_CATEGORY_ROWS")
		v.BindEnv("storagepath", "SHOPLENS_STORAGE_PATH")
		v.BindEnv("geodbpath", "SHOPLENS_GEODB_PATH")
		v.BindEnv("logsdir", "SHOPLENS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "SHOPLENS_LOGS_MAX_SIZE_MB")
		v.BindEnv("logsmaxbackups", "SHOPLENS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "SHOPLENS_LOGS_MAX_AGE_DAYS")
		v.BindEnv("dbtype", "SHOPLENS_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "SHOPLENS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "SHOPLENS_DB_MAX_IDLE_CONNS")
		v.BindEnv("jobintervalseconds", "SHOPLENS_JOB_INTERVAL_SECONDS")
		v.BindEnv("rawdocsretentiondays", "SHOPLENS_RAW_DOCS_RETENTION_DAYS")
		v.BindEnv("insightscachettlseconds", "SHOPLENS_INSIGHTS_CACHE_TTL_SECONDS")

		v.AutomaticEnv()

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			panic(fmt.Sprintf("failed to unmarshal config: %v", err))
		}
		cfg.DatabaseName = cfg.GetDatabasePath()
	})

	return cfg
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// If explicitly set via env var, uses that value.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1 // Required for E2E test stability
	}

	return 10 // Allows concurrent reads for parallel insight queries
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment.
// If explicitly set via env var, uses that value.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1 // Matches MaxOpenConns for test stability
	}

	return 5 // Keep half the pool warm
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
