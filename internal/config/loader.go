package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort           int
	SQLitePath         string
	Location           *time.Location
	Admins             []string
	MembershipURL      string
	MembershipTimeout  time.Duration
	MembershipCacheTTL time.Duration
	RedisAddr          string
	RulesFile          string
	LogLevel           string
	LogFormat          string
	AppKeyHash         string
}

// LoadDotEnv loads variables from a .env file without overriding values
// already present in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields, validates required values
// and reports every missing or invalid entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		MembershipTimeout:  5 * time.Second,
		MembershipCacheTTL: time.Hour,
		LogLevel:           "info",
		LogFormat:          "json",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if portValue := env("BOOKING_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := env("BOOKING_SQLITE_PATH"); path == "" {
		missing = append(missing, "BOOKING_SQLITE_PATH")
	} else {
		cfg.SQLitePath = path
	}

	zone := env("BOOKING_TIMEZONE")
	if zone == "" {
		zone = "America/Los_Angeles"
	}
	if loc, err := time.LoadLocation(zone); err != nil {
		invalid = append(invalid, "BOOKING_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	for _, admin := range strings.Split(env("BOOKING_ADMINS"), ",") {
		if admin = strings.ToLower(strings.TrimSpace(admin)); admin != "" {
			cfg.Admins = append(cfg.Admins, admin)
		}
	}

	cfg.MembershipURL = env("BOOKING_MEMBERSHIP_URL")
	cfg.RedisAddr = env("BOOKING_REDIS_ADDR")
	cfg.RulesFile = env("BOOKING_RULES_FILE")
	cfg.AppKeyHash = env("BOOKING_APP_KEY_HASH")

	if !parseDuration("BOOKING_MEMBERSHIP_TIMEOUT", &cfg.MembershipTimeout) {
		invalid = append(invalid, "BOOKING_MEMBERSHIP_TIMEOUT")
	}
	if !parseDuration("BOOKING_MEMBERSHIP_CACHE_TTL", &cfg.MembershipCacheTTL) {
		invalid = append(invalid, "BOOKING_MEMBERSHIP_CACHE_TTL")
	}

	if level := strings.ToLower(env("BOOKING_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "BOOKING_LOG_LEVEL")
		}
	}

	if format := strings.ToLower(env("BOOKING_LOG_FORMAT")); format != "" {
		switch format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "BOOKING_LOG_FORMAT")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// parseDuration overwrites target when key is set and reports whether the
// value, if any, was a positive duration.
func parseDuration(key string, target *time.Duration) bool {
	value := env(key)
	if value == "" {
		return true
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return false
	}
	*target = d
	return true
}
