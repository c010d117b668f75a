package geoip

import (
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"shoplens/internal/config"
)

var (
	geoDB  *geoip2.Reader
	once   sync.Once
	mu     sync.RWMutex
	logger *slog.Logger
)

// InitLogger sets the logger for the geoip package.
func InitLogger(l *slog.Logger) {
	logger = l
}

// InitGeoDB initializes the GeoLite2 database.
// Returns nil if the database is not configured or not found (GeoIP is optional).
func InitGeoDB() *geoip2.Reader {
	config := config.GetConfig()
	if config.GeoDBPath == "" {
		if logger != nil {
			logger.Debug("GeoIP database path not configured - GeoIP features disabled")
		}
		return nil
	}

	absPath, err := filepath.Abs(config.GeoDBPath)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to get absolute path for GeoDB",
				slog.String("path", config.GeoDBPath),
				slog.Any("error", err))
		}
	} else if logger != nil {
		logger.Debug("GeoIP database absolute path", slog.String("abs_path", absPath))
	}

	// Check if the file exists (GeoIP is optional)
	if _, err := os.Stat(config.GeoDBPath); os.IsNotExist(err) {
		if logger != nil {
			logger.Info("GeoLite2 database not found - GeoIP features disabled",
				slog.String("path", config.GeoDBPath),
				slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		}
		return nil
	} else if err != nil {
		if logger != nil {
			logger.Warn("Error checking GeoLite2 database file",
				slog.String("path", config.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	db, err := geoip2.Open(config.GeoDBPath)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to open GeoLite2 database",
				slog.String("path", config.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	if logger != nil {
		logger.Info("GeoLite2 database initialized successfully",
			slog.String("path", config.GeoDBPath))
	}
	return db
}

// GetGeoDB returns the GeoLite2 database reader, initializing it if necessary.
func GetGeoDB() *geoip2.Reader {
	once.Do(func() {
		mu.Lock()
		geoDB = InitGeoDB()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return geoDB
}

// ReloadGeoDB reloads the GeoLite2 database from disk.
// Call this after replacing the database file.
func ReloadGeoDB() {
	mu.Lock()
	defer mu.Unlock()

	if geoDB != nil {
		geoDB.Close()
	}

	geoDB = InitGeoDB()

	if geoDB != nil && logger != nil {
		logger.Info("GeoLite2 database reloaded successfully")
	}
}

// CountryCode resolves an IP address to its ISO country code. Returns the
// empty string when GeoIP is disabled or the address cannot be resolved;
// callers treat that as "country unknown", never as an error.
func CountryCode(ipAddress string) string {
	db := GetGeoDB()
	if db == nil {
		return ""
	}
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return ""
	}
	country, err := db.Country(ip)
	if err != nil {
		return ""
	}
	return country.Country.IsoCode
}
