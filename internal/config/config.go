package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	// RedisURL is optional: empty falls back to the in-process presence store.
	RedisURL string

	JWTSecret string

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Location resolves booking time-of-day strings to instants.
	Location *time.Location

	ReminderLead       time.Duration
	WorkerPollInterval time.Duration
	JobStaleAfter      time.Duration
	HostActiveTTL      time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		RedisURL:             getenv("REDIS_URL", ""),
		JWTSecret:            mustGetenv("JWT_SECRET"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	loc, err := time.LoadLocation(getenv("TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, errors.Wrap(err, "load TIMEZONE")
	}
	cfg.Location = loc

	if cfg.ReminderLead, err = getdur("REMINDER_LEAD", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.WorkerPollInterval, err = getdur("WORKER_POLL_INTERVAL", 800*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.JobStaleAfter, err = getdur("JOB_STALE_AFTER", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.HostActiveTTL, err = getdur("HOST_ACTIVE_TTL", 2*time.Hour); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}

func getdur(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	return d, nil
}
