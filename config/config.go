package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/skillbridge/skillbridge/server/progression"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Security    SecurityConfig    `mapstructure:"security"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Grader      GraderConfig      `mapstructure:"grader"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Store       StoreConfig       `mapstructure:"store"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Debug        bool          `mapstructure:"debug"`
	AdminKey     string        `mapstructure:"admin_key"`
	AdminIPs     []string      `mapstructure:"admin_ips"` // empty allows any IP
	Environment  string        `mapstructure:"environment"`
	Version      string        `mapstructure:"version"`
	ShutdownWait time.Duration `mapstructure:"shutdown_wait"`
}

type DatabaseConfig struct {
	Mode        string        `mapstructure:"mode"` // sqlite | mysql | postgres
	SQLitePath  string        `mapstructure:"sqlite_path"`
	MySQLDSN    string        `mapstructure:"mysql_dsn"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLife     time.Duration `mapstructure:"max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTLH   time.Duration `mapstructure:"jwt_ttl_h"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	// RequireSession rejects tokens without a live session entry in the
	// cache. Disable when tokens come from an external identity provider.
	RequireSession bool    `mapstructure:"require_session"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists CORS origins. An empty slice allows all origins
	// (local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ProgressionConfig struct {
	// AdvanceThresholds are the readiness scores needed to leave
	// life_skills, money_skills and practice, in that order.
	AdvanceThresholds []int   `mapstructure:"advance_thresholds"`
	MinPhaseActivity  []int   `mapstructure:"min_phase_activity"`
	ReadinessWindow   int     `mapstructure:"readiness_window"`
	ReadinessHalfLife float64 `mapstructure:"readiness_half_life"`
	CreditDivisor     int     `mapstructure:"credit_divisor"`
	SkillSwapCredits  int     `mapstructure:"skill_swap_credits"`
	DefaultLessonXP   int     `mapstructure:"default_lesson_xp"`
	Timezone          string  `mapstructure:"timezone"`
}

const (
	GraderRemote = "remote"
	GraderLocal  = "local"
)

type GraderConfig struct {
	Mode      string        `mapstructure:"mode"` // remote | local
	RemoteURL string        `mapstructure:"remote_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	// Path to a YAML catalog. Empty uses the built-in catalog.
	Path           string        `mapstructure:"path"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"` // 0 disables
}

type LeaderboardConfig struct {
	Size            int           `mapstructure:"size"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type StoreConfig struct {
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
	LockWait   time.Duration `mapstructure:"lock_wait"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP/HTTP host:port; empty uses stdout
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads config from the given YAML file path. A .env file in the
// working directory is loaded first, and SKILLBRIDGE_* environment
// variables override file values (server.port -> SKILLBRIDGE_SERVER_PORT).
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("skillbridge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.version", "dev")
	v.SetDefault("server.shutdown_wait", "10s")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/skillbridge.db")
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_secret", "change-me")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.jwt_issuer", "skillbridge")
	v.SetDefault("security.require_session", true)
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
	v.SetDefault("progression.advance_thresholds", []int{40, 60, 80})
	v.SetDefault("progression.min_phase_activity", []int{1, 2, 3})
	v.SetDefault("progression.readiness_window", 10)
	v.SetDefault("progression.readiness_half_life", 3.0)
	v.SetDefault("progression.credit_divisor", 10)
	v.SetDefault("progression.skill_swap_credits", 5)
	v.SetDefault("progression.default_lesson_xp", 10)
	v.SetDefault("progression.timezone", "UTC")
	v.SetDefault("grader.mode", GraderLocal)
	v.SetDefault("grader.timeout", "15s")
	v.SetDefault("catalog.reload_interval", "0s")
	v.SetDefault("leaderboard.size", 20)
	v.SetDefault("leaderboard.refresh_interval", "5m")
	v.SetDefault("store.lock_ttl", "5s")
	v.SetDefault("store.lock_wait", "3s")
	v.SetDefault("store.max_retries", 3)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "skillbridge")
	v.SetDefault("tracing.sample_ratio", 0.1)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Mode {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("config: unknown database.mode %q", c.Database.Mode)
	}
	switch c.Grader.Mode {
	case GraderLocal:
	case GraderRemote:
		if c.Grader.RemoteURL == "" {
			return errors.New("config: grader.remote_url is required when grader.mode is remote")
		}
	default:
		return fmt.Errorf("config: unknown grader.mode %q", c.Grader.Mode)
	}
	if c.Security.JWTSecret == "" {
		return errors.New("config: security.jwt_secret must be set")
	}
	p := c.Progression
	if len(p.AdvanceThresholds) != 3 {
		return fmt.Errorf("config: progression.advance_thresholds needs 3 values, got %d", len(p.AdvanceThresholds))
	}
	if len(p.MinPhaseActivity) != 3 {
		return fmt.Errorf("config: progression.min_phase_activity needs 3 values, got %d", len(p.MinPhaseActivity))
	}
	for i := 1; i < len(p.AdvanceThresholds); i++ {
		if p.AdvanceThresholds[i] <= p.AdvanceThresholds[i-1] {
			return errors.New("config: progression.advance_thresholds must be strictly increasing")
		}
	}
	if p.DefaultLessonXP < 0 {
		return errors.New("config: progression.default_lesson_xp must not be negative")
	}
	if _, err := p.Rules(); err != nil {
		return fmt.Errorf("config: progression: %w", err)
	}
	if c.Leaderboard.Size <= 0 {
		return errors.New("config: leaderboard.size must be positive")
	}
	if c.Store.MaxRetries < 0 {
		return errors.New("config: store.max_retries must not be negative")
	}
	return nil
}

// Rules converts the progression section into engine rules.
func (p ProgressionConfig) Rules() (progression.Rules, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return progression.Rules{}, err
	}
	r := progression.Rules{
		AdvanceThresholds: make(map[progression.Phase]int, len(p.AdvanceThresholds)),
		MinPhaseActivity:  make(map[progression.Phase]int, len(p.MinPhaseActivity)),
		ReadinessWindow:   p.ReadinessWindow,
		ReadinessHalfLife: p.ReadinessHalfLife,
		CreditDivisor:     p.CreditDivisor,
		SkillSwapCredits:  p.SkillSwapCredits,
		Location:          loc,
	}
	for i, th := range p.AdvanceThresholds {
		if i < len(progression.Phases)-1 {
			r.AdvanceThresholds[progression.Phases[i]] = th
		}
	}
	for i, n := range p.MinPhaseActivity {
		if i < len(progression.Phases)-1 {
			r.MinPhaseActivity[progression.Phases[i]] = n
		}
	}
	return r, r.Validate()
}
