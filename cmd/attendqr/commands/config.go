package commands

import (
	"attendqr/lib/chrono"
	"attendqr/lib/configutil"
	"attendqr/lib/scrapers/portal"
	"attendqr/lib/sqliteutil"
	"attendqr/lib/timezone"
	"attendqr/services/attendance"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
)

const appName = "attendqr"

type Config struct {
	SchoolUrl          string  `json:"school_url" yaml:"school_url"`
	Username           string  `json:"username" yaml:"username"`
	Password           string  `json:"password" yaml:"password"`
	IntervalMinutes    int     `json:"interval_minutes" yaml:"interval_minutes"`
	OutputDir          string  `json:"output_dir" yaml:"output_dir"`
	Port               int     `json:"port" yaml:"port"`
	HttpTimeoutSeconds int     `json:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	RequestsPerSecond  float64 `json:"requests_per_second" yaml:"requests_per_second"`
	CloudflareBypass   bool    `json:"cloudflare_bypass" yaml:"cloudflare_bypass"`
	// IANA zone of the portal, used for capture file names and timestamps
	Timezone string `json:"timezone" yaml:"timezone"`

	History sqliteutil.Config      `json:"history" yaml:"history"`
	Email   attendance.EmailConfig `json:"email" yaml:"email"`
}

func defaultConfig() Config {
	return Config{
		SchoolUrl:          "https://qehsn.ha.org.hk",
		IntervalMinutes:    30,
		OutputDir:          "qr_codes",
		Port:               8080,
		HttpTimeoutSeconds: 30,
		RequestsPerSecond:  5,
	}
}

var defaultConfigFiles = []string{"config.json5", "config.yaml"}

// LoadConfig layers the defaults, the config file (path, or the first of
// config.json5/config.yaml that exists) and the environment, in that order.
func LoadConfig(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := defaultConfig()

	var file Config
	var err error
	if path != "" {
		file, err = configutil.ReadConfig[Config](path)
	} else {
		file, err = configutil.ReadFirst[Config](defaultConfigFiles...)
		if os.IsNotExist(err) {
			err = nil
		}
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	err = mergo.Merge(&cfg, file, mergo.WithOverride)
	if err != nil {
		return Config{}, err
	}

	err = applyEnv(&cfg, lookupEnv)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	if value, ok := lookupEnv("SCHOOL_URL"); ok && value != "" {
		cfg.SchoolUrl = value
	}
	if value, ok := lookupEnv("USERNAME"); ok {
		cfg.Username = value
	}
	if value, ok := lookupEnv("PASSWORD"); ok {
		cfg.Password = value
	}
	if value, ok := lookupEnv("OUTPUT_DIR"); ok && value != "" {
		cfg.OutputDir = value
	}
	if value, ok := lookupEnv("INTERVAL_MINUTES"); ok && value != "" {
		minutes, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("INTERVAL_MINUTES: %w", err)
		}
		cfg.IntervalMinutes = minutes
	}
	if value, ok := lookupEnv("PORT"); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = port
	}
	return nil
}

func (c Config) validate() error {
	if c.IntervalMinutes < 1 {
		return fmt.Errorf("interval_minutes must be at least 1, got %d", c.IntervalMinutes)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.HttpTimeoutSeconds < 1 {
		return fmt.Errorf("http_timeout_seconds must be at least 1, got %d", c.HttpTimeoutSeconds)
	}
	_, err := timezone.Resolve(c.Timezone)
	return err
}

// Credentials is nil unless both a username and a password are configured.
func (c Config) Credentials() *portal.Credentials {
	if c.Username == "" || c.Password == "" {
		return nil
	}
	return &portal.Credentials{
		Username: c.Username,
		Password: c.Password,
	}
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c Config) clock() chrono.TimeAPI {
	location, err := timezone.Resolve(c.Timezone)
	if err != nil {
		// rejected by validate
		location = time.Local
	}
	return chrono.NewStandardTime(location)
}

func (c Config) Extractor() portal.Extractor {
	extractor := portal.NewExtractor(c.SessionOptions())
	extractor.Time = c.clock()
	return extractor
}

func (c Config) SessionOptions() portal.SessionOptions {
	opts := portal.DefaultSessionOptions()
	opts.Timeout = time.Duration(c.HttpTimeoutSeconds) * time.Second
	opts.CloudflareBypass = c.CloudflareBypass
	if c.RequestsPerSecond > 0 {
		opts.RequestsPerSecond = c.RequestsPerSecond
	}
	return opts
}

// HistoryDB falls back to a sqlite file in the xdg data directory.
func (c Config) HistoryDB() sqliteutil.Config {
	if c.History.File != "" || c.History.Url != "" {
		return c.History
	}
	return sqliteutil.Config{
		File: filepath.Join(xdg.DataHome, appName, "history.db"),
	}
}

func (c Config) ServiceConfig() attendance.Config {
	return attendance.Config{
		BaseUrl:     c.SchoolUrl,
		Credentials: c.Credentials(),
		OutputDir:   c.OutputDir,
		Interval:    c.Interval(),
		Time:        c.clock(),
	}
}
