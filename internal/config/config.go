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
	"gopkg.in/yaml.v3"
)

type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Database  DatabaseConfig  `yaml:"database"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	NATS      NATSConfig      `yaml:"nats"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type SourceConfig struct {
	RootURL      string        `yaml:"root_url"`
	ListingURLs  []string      `yaml:"listing_urls"`
	RequestDelay time.Duration `yaml:"request_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

type CrawlConfig struct {
	// Window is how many of the most recent inmate rows are checked
	// for the synchronized / needs-backfill partition.
	Window     int    `yaml:"window"`
	StopEarly  bool   `yaml:"stop_early"`
	Schedule   string `yaml:"schedule"`
	RunOnStart bool   `yaml:"run_on_start"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Name         string `yaml:"name"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	MaxConns     int    `yaml:"max_conns"`
	EnsureSchema bool   `yaml:"ensure_schema"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether booking photos should be offloaded to object storage.
func (m MinIOConfig) Enabled() bool { return m.Endpoint != "" }

type EmbeddingConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
}

func (e EmbeddingConfig) Enabled() bool { return e.APIKey != "" }

type NATSConfig struct {
	URL string `yaml:"url"`
}

func (n NATSConfig) Enabled() bool { return n.URL != "" }

type ServerConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A missing file is not an error: the crawler can be configured purely from
// the environment. Variables from a .env file in the working directory are
// loaded first and never override the real environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the crawler cannot run with.
func (c *Config) Validate() error {
	if c.Source.RootURL == "" {
		return fmt.Errorf("config: source.root_url is required")
	}
	if len(c.Source.ListingURLs) == 0 {
		return fmt.Errorf("config: at least one source.listing_urls entry is required")
	}
	if c.Crawl.Window < 0 {
		return fmt.Errorf("config: crawl.window must not be negative")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Source.RootURL == "" {
		cfg.Source.RootURL = "https://www.scottcountyiowa.us/sheriff/inmates.php"
	}
	if len(cfg.Source.ListingURLs) == 0 {
		cfg.Source.ListingURLs = []string{cfg.Source.RootURL + "?comdate=today"}
	}
	if cfg.Source.RequestDelay == 0 {
		cfg.Source.RequestDelay = 75 * time.Millisecond
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = "jailcrawler/1.0"
	}
	if cfg.Crawl.Window == 0 {
		cfg.Crawl.Window = 500
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "scjailio-dev"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 60 * time.Second
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JAIL_ROOT_URL"); v != "" {
		cfg.Source.RootURL = v
	}
	if v := os.Getenv("JAIL_LISTING_URLS"); v != "" {
		cfg.Source.ListingURLs = splitList(v)
	}
	if v := os.Getenv("JAIL_REQUEST_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.RequestDelay = d
		}
	}
	if v := os.Getenv("JAIL_CRAWL_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Crawl.Window = n
		}
	}
	if _, ok := os.LookupEnv("STOP_EARLY"); ok {
		cfg.Crawl.StopEarly = true
	}
	if v := os.Getenv("JAIL_STOP_EARLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Crawl.StopEarly = b
		}
	}
	if v := os.Getenv("JAIL_SCHEDULE"); v != "" {
		cfg.Crawl.Schedule = v
	}
	if v := os.Getenv("JAIL_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("JAIL_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("JAIL_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("JAIL_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("JAIL_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("JAIL_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("JAIL_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("JAIL_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("JAIL_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("JAIL_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("JAIL_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("JAIL_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("JAIL_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("JAIL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
