package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered between the
// defaults and the environment.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Cache     CacheConfig     `koanf:"cache"`
	Pseudonym PseudonymConfig `koanf:"pseudonym"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Auth      AuthConfig      `koanf:"auth"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

// ArtifactsConfig describes the read-only artifact directory. File names are
// relative to Dir.
type ArtifactsConfig struct {
	Dir                 string `koanf:"dir"`
	Engine              string `koanf:"engine"`
	MaxMemory           string `koanf:"max_memory"`
	Threads             int    `koanf:"threads"`
	HistoryFile         string `koanf:"history_file"`
	DateFeaturesFile    string `koanf:"date_features_file"`
	SegmentFeaturesFile string `koanf:"segment_features_file"`
	SegmentsFile        string `koanf:"segments_file"`
	DateModelFile       string `koanf:"date_model_file"`
	SegmentModelFile    string `koanf:"segment_model_file"`
}

// CacheConfig sizes the in-process caches. WarmInterval of 0 disables the
// background refresh.
type CacheConfig struct {
	TTL          time.Duration `koanf:"ttl"`
	MaxEntries   int           `koanf:"max_entries"`
	ModelSlots   int           `koanf:"model_slots"`
	ResponseTTL  time.Duration `koanf:"response_ttl"`
	WarmInterval time.Duration `koanf:"warm_interval"`
}

type PseudonymConfig struct {
	Seed uint64 `koanf:"seed"`
}

type DashboardConfig struct {
	HistoryPageSize    int `koanf:"history_page_size"`
	MaxHistoryPageSize int `koanf:"max_history_page_size"`
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret      string `koanf:"secret"`
	ExpiryHours int    `koanf:"expiry_hours"`
}

// AuthConfig holds the single operator account allowed to use the dashboard.
// PasswordHash is a bcrypt hash.
type AuthConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Username       string `koanf:"username"`
	PasswordHash   string `koanf:"password_hash"`
	LoginPerMinute int    `koanf:"login_per_minute"`
}

type CORSConfig struct {
	AllowedOrigins string `koanf:"allowed_origins"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var sections = []string{
	"server", "artifacts", "cache", "pseudonym", "dashboard",
	"redis", "jwt", "auth", "cors", "log",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Artifacts: ArtifactsConfig{
			Dir:                 "data",
			Engine:              "gota",
			MaxMemory:           "1GB",
			Threads:             2,
			HistoryFile:         "historico_compras.csv",
			DateFeaturesFile:    "cb_previsao_data.csv",
			SegmentFeaturesFile: "cb_previsao_trecho.csv",
			SegmentsFile:        "classes.csv",
			DateModelFile:       "xgboost_model_dia_exato.json",
			SegmentModelFile:    "xgboost_model_trecho.json",
		},
		Cache: CacheConfig{
			TTL:          time.Hour,
			MaxEntries:   8,
			ModelSlots:   2,
			ResponseTTL:  60 * time.Second,
			WarmInterval: 15 * time.Minute,
		},
		Pseudonym: PseudonymConfig{Seed: 42},
		Dashboard: DashboardConfig{
			HistoryPageSize:    10,
			MaxHistoryPageSize: 100,
		},
		Redis: RedisConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    6379,
		},
		JWT: JWTConfig{
			Secret:      "",
			ExpiryHours: 24,
		},
		Auth: AuthConfig{
			Enabled:        false,
			Username:       "analyst",
			LoginPerMinute: 10,
		},
		CORS: CORSConfig{AllowedOrigins: "*"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig layers struct defaults, an optional YAML file and environment
// variables, in that order of priority.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch c.Artifacts.Engine {
	case "gota", "duckdb":
	default:
		errs = append(errs, fmt.Errorf("artifacts.engine must be gota or duckdb, got %q", c.Artifacts.Engine))
	}
	if c.Artifacts.Dir == "" {
		errs = append(errs, errors.New("artifacts.dir is required"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, errors.New("cache.max_entries must be positive"))
	}
	if c.Cache.WarmInterval < 0 {
		errs = append(errs, errors.New("cache.warm_interval must not be negative"))
	}
	if c.Cache.ModelSlots <= 0 {
		errs = append(errs, errors.New("cache.model_slots must be positive"))
	}
	if c.Dashboard.HistoryPageSize <= 0 || c.Dashboard.HistoryPageSize > c.Dashboard.MaxHistoryPageSize {
		errs = append(errs, fmt.Errorf("dashboard.history_page_size must be in [1, %d]", c.Dashboard.MaxHistoryPageSize))
	}
	if c.Auth.Enabled {
		if c.JWT.Secret == "" {
			errs = append(errs, errors.New("jwt.secret is required when auth is enabled"))
		}
		if c.Auth.PasswordHash == "" {
			errs = append(errs, errors.New("auth.password_hash is required when auth is enabled"))
		}
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps SECTION_FIELD_NAME to section.field_name and drops
// variables that do not belong to a known section.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	for _, s := range sections {
		if strings.HasPrefix(key, s+"_") {
			return s + "." + strings.TrimPrefix(key, s+"_")
		}
	}
	return ""
}
