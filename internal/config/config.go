package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr           string // API bind address, e.g., "127.0.0.1:8080" (Windows) or ":8080" (Docker)
	LogDir         string // logs directory
	ProbeLogFile   string // raw ping output, inside LogDir
	ProbeLogFormat string // "txt" or "json"

	Hosts          []string      // hosts to ping; observations for other hosts are admitted too
	PingInterval   time.Duration // ping -i
	PingInterface  string        // ping -I, empty = system default
	RestartBackoff time.Duration // wait before respawning a ping that exited

	DatabaseURL string // postgres://... ; takes precedence over SQLitePath
	SQLitePath  string // empty with no DatabaseURL means in-memory history
	RedisURL    string // publish transitions to redis when set

	SlackWebhook    string
	AlertCooldown   time.Duration // minimum gap between two "network down" alerts
	AlertOnRecovery bool
	AlertRatePerMin int

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	AllowedOrigins []string
	PublicRPM      int
	PublicBurst    int
	AdminRPM       int
	AdminBurst     int

	SpeedTestURL      string
	SpeedTestInterval time.Duration // 0 disables throughput measurement
}

func FromEnv() Config {
	// Bind address (Windows-friendly default)
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = os.Getenv("ADDR")
	}
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	// Logs
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	return Config{
		Addr:           addr,
		LogDir:         logDir,
		ProbeLogFile:   getenv("PROBE_LOG_FILE", "probes.log"),
		ProbeLogFormat: getenv("PROBE_LOG_FORMAT", "json"),

		Hosts:          splitList(os.Getenv("HOSTS")),
		PingInterval:   envMillis("PING_INTERVAL_MS", 3*time.Second),
		PingInterface:  os.Getenv("PING_INTERFACE"),
		RestartBackoff: envMillis("RESTART_BACKOFF_MS", 2*time.Second),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		RedisURL:    os.Getenv("REDIS_URL"),

		SlackWebhook:    os.Getenv("SLACK_WEBHOOK_URL"),
		AlertCooldown:   envMillis("ALERT_COOLDOWN_MS", 5*time.Minute),
		AlertOnRecovery: envBool("ALERT_ON_RECOVERY", true),
		AlertRatePerMin: envInt("ALERT_RATE_PER_MIN", 6),

		PublicAPIKeys:  splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:   splitList(os.Getenv("ADMIN_API_KEYS")),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		PublicRPM:      envInt("PUBLIC_RPM", 120),
		PublicBurst:    envInt("PUBLIC_BURST", 60),
		AdminRPM:       envInt("ADMIN_RPM", 600),
		AdminBurst:     envInt("ADMIN_BURST", 120),

		SpeedTestURL:      getenv("SPEEDTEST_URL", "https://google.com"),
		SpeedTestInterval: envMillis("SPEEDTEST_INTERVAL_MS", 5*time.Minute),
	}
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE.
// Only non-zero values override the environment.
type fileConfig struct {
	Hosts []string `yaml:"hosts"`
	Ping  struct {
		Interval  time.Duration `yaml:"interval"`
		Interface string        `yaml:"interface"`
	} `yaml:"ping"`
	Alerts struct {
		SlackWebhook string        `yaml:"slack_webhook"`
		Cooldown     time.Duration `yaml:"cooldown"`
		OnRecovery   *bool         `yaml:"on_recovery"`
	} `yaml:"alerts"`
	SpeedTest struct {
		URL      string        `yaml:"url"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"speedtest"`
}

// Load reads .env (if present), the environment, then CONFIG_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := cfg.overlay(data); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) overlay(data []byte) error {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	if len(f.Hosts) > 0 {
		c.Hosts = f.Hosts
	}
	if f.Ping.Interval > 0 {
		c.PingInterval = f.Ping.Interval
	}
	if f.Ping.Interface != "" {
		c.PingInterface = f.Ping.Interface
	}
	if f.Alerts.SlackWebhook != "" {
		c.SlackWebhook = f.Alerts.SlackWebhook
	}
	if f.Alerts.Cooldown > 0 {
		c.AlertCooldown = f.Alerts.Cooldown
	}
	if f.Alerts.OnRecovery != nil {
		c.AlertOnRecovery = *f.Alerts.OnRecovery
	}
	if f.SpeedTest.URL != "" {
		c.SpeedTestURL = f.SpeedTest.URL
	}
	if f.SpeedTest.Interval > 0 {
		c.SpeedTestInterval = f.SpeedTest.Interval
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
