package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	HTTPPort       int        `yaml:"http_port" env:"VW_HTTP_PORT"`
	LogLevel       string     `yaml:"log_level" env:"VW_LOG_LEVEL"`
	LogJSON        bool       `yaml:"log_json" env:"VW_LOG_JSON"`
	Storage        string     `yaml:"storage" env:"VW_STORAGE"` // memory | postgres
	AllowedOrigins []string   `yaml:"allowed_origins" env:"VW_ALLOWED_ORIGINS"`
	HTTPS          bool       `yaml:"https"`
	// ChangeHandlers runs the resolution notifier and engagement counters on this instance.
	// With several instances on one database, enable it on exactly one of them.
	ChangeHandlers bool       `yaml:"change_handlers" env:"VW_CHANGE_HANDLERS"`
	Retention      Retention  `yaml:"retention"`
	Notifier       Notifier   `yaml:"notifier"`
	RateLimits     RateLimits `yaml:"rate_limits"`
}

type Retention struct {
	Interval        time.Duration `yaml:"interval" env:"VW_RETENTION_INTERVAL"`
	MaxAge          time.Duration `yaml:"max_age" env:"VW_RETENTION_MAX_AGE"`
	CascadeComments bool          `yaml:"cascade_comments" env:"VW_RETENTION_CASCADE_COMMENTS"`
}

type Notifier struct {
	Concurrency int    `yaml:"concurrency"` // parallel sends per resolved poll
	SiteName    string `yaml:"site_name"`
}

// RateLimits are token bucket parameters: rate is tokens per second.
type RateLimits struct {
	VoteRate     float64 `yaml:"vote_rate"`
	VoteBurst    float64 `yaml:"vote_burst"`
	CommentRate  float64 `yaml:"comment_rate"`
	CommentBurst float64 `yaml:"comment_burst"`
}

type Pg struct {
	Host     string `yaml:"host" env:"VW_PG_HOST"`
	Port     int    `yaml:"port" env:"VW_PG_PORT"`
	User     string `yaml:"user" env:"VW_PG_USER"`
	Password string `yaml:"password" env:"VW_PG_PASSWORD"`
	Dbname   string `yaml:"dbname" env:"VW_PG_DBNAME"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server" env:"VW_SMTP_SERVER"`
	SMTPPort   int    `yaml:"smtp_port" env:"VW_SMTP_PORT"`
	Username   string `yaml:"username" env:"VW_SMTP_USERNAME"`
	Password   string `yaml:"password" env:"VW_SMTP_PASSWORD"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

type Private struct {
	Pg     Pg     `yaml:"pg"`
	Email  Email  `yaml:"email"`
	JwtKey string `yaml:"jwt_key" env:"VW_JWT_KEY"`
}

func (s *Config) JwtKey() string {
	return s.Private.JwtKey
}

// DefaultPublic holds values used when public.yaml omits a key.
func DefaultPublic() Public {
	return Public{
		HTTPPort:       8080,
		LogLevel:       "info",
		Storage:        StorageMemory,
		ChangeHandlers: true,
		Retention: Retention{
			Interval:        24 * time.Hour,
			MaxAge:          30 * 24 * time.Hour,
			CascadeComments: true,
		},
		Notifier: Notifier{
			Concurrency: 4,
			SiteName:    "VoiceWeave",
		},
		RateLimits: RateLimits{
			VoteRate:     1,
			VoteBurst:    3,
			CommentRate:  1.0 / 10,
			CommentBurst: 3,
		},
	}
}

func loadPath(configPath string, output interface{}) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder, then applies VW_* environment overrides.
func Load(configFolder string) (*Config, error) {
	cfg := &Config{Public: DefaultPublic()}
	if err := loadPath(path.Join(configFolder, "public.yaml"), &cfg.Public); err != nil {
		return nil, err
	}
	if err := loadPath(path.Join(configFolder, "private.yaml"), &cfg.Private); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (s *Config) validate() error {
	switch s.Public.Storage {
	case StorageMemory:
	case StoragePostgres:
		if s.Private.Pg.Host == "" || s.Private.Pg.Dbname == "" {
			return fmt.Errorf("pg.host and pg.dbname are required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", s.Public.Storage)
	}
	if s.Public.Retention.Interval <= 0 {
		return fmt.Errorf("retention.interval must be positive")
	}
	if s.Public.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be positive")
	}
	if s.Public.Notifier.Concurrency < 1 {
		return fmt.Errorf("notifier.concurrency must be at least 1")
	}
	if s.Private.JwtKey == "" {
		return fmt.Errorf("jwt_key is required")
	}
	return nil
}
