package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresURL string
	AppURL      string

	NSQDAddress     string
	NSQAlertTopic   string
	NSQAlertChannel string
	RunConsumers    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EnableMetrics bool

	GeoIPCityMMDB string

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	TransportTimeout time.Duration
	RetentionSweep   time.Duration
	BucketSweep      time.Duration
	BucketMaxIdle    time.Duration
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		PostgresURL:     strings.TrimSpace(os.Getenv("POSTGRES_URL")),
		AppURL:          strings.TrimRight(getenvDefault("APP_URL", "http://localhost:3000"), "/"),
		NSQDAddress:     getenvDefault("NSQD_ADDRESS", "127.0.0.1:4150"),
		NSQAlertTopic:   getenvDefault("NSQ_ALERT_TOPIC", "alert-triggers"),
		NSQAlertChannel: getenvDefault("NSQ_ALERT_CHANNEL", "alert-dispatcher"),
		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         parseIntDefault(getenvDefault("REDIS_DB", "0"), 0),
		GeoIPCityMMDB:   strings.TrimSpace(os.Getenv("GEOIP_CITY_MMDB")),
		SMTPHost:        strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:        parseIntDefault(getenvDefault("SMTP_PORT", "587"), 587),
		SMTPFrom:        getenvDefault("SMTP_FROM", "alerts@bugwatch.dev"),
		SMTPUsername:    strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
	}

	cfg.RunConsumers = parseBoolDefault(getenvDefault("RUN_CONSUMERS", "true"), true)
	cfg.EnableMetrics = parseBoolDefault(getenvDefault("ENABLE_METRICS", "true"), true) && cfg.RedisAddr != ""
	cfg.TransportTimeout = parseDurationDefault(getenvDefault("TRANSPORT_TIMEOUT", "10s"), 10*time.Second)
	cfg.RetentionSweep = parseDurationDefault(getenvDefault("RETENTION_SWEEP_INTERVAL", "24h"), 24*time.Hour)
	cfg.BucketSweep = parseDurationDefault(getenvDefault("BUCKET_SWEEP_INTERVAL", "1h"), time.Hour)
	cfg.BucketMaxIdle = parseDurationDefault(getenvDefault("BUCKET_MAX_IDLE", "1h"), time.Hour)

	if cfg.PostgresURL == "" {
		return Config{}, errors.New("POSTGRES_URL is required")
	}
	if strings.TrimSpace(cfg.NSQDAddress) == "" {
		return Config{}, errors.New("NSQD_ADDRESS is required")
	}
	return cfg, nil
}

func getenvDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolDefault(value string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseIntDefault(value string, defaultValue int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationDefault(value string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func (c Config) String() string {
	return fmt.Sprintf(
		"http=%s pg=%s nsqd=%s consumers=%v redis=%s metrics=%v geoip=%v smtp=%v app=%s",
		c.HTTPAddr,
		redactPostgresURL(c.PostgresURL),
		c.NSQDAddress,
		c.RunConsumers,
		redactAddr(c.RedisAddr),
		c.EnableMetrics,
		c.GeoIPCityMMDB != "",
		c.SMTPHost != "",
		c.AppURL,
	)
}

func redactPostgresURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "<none>"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<set>"
	}
	user := "?"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	host := u.Host
	if host == "" {
		host = "?"
	}
	database := strings.TrimPrefix(u.Path, "/")
	if database == "" {
		database = "?"
	}
	return fmt.Sprintf("%s@%s/%s", user, host, database)
}

func redactAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "<none>"
	}
	return addr
}
