package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the assessment service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	CORSOrigins    []string
	LogLevel       string
	DatabaseURL    string
	Database       DatabasePool
	RedisURL       string
	NATSURL        string
	EventChannel   string
	IngestLockTTL  time.Duration
	IngestLockWait time.Duration
	RateLimitMax   int
	RateLimitSpan  time.Duration
	Grading        GradingConfig
}

// DatabasePool tunes the SQL connection pool and slow query logging.
type DatabasePool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
}

// GradingConfig carries the grading settings injected into the engine.
type GradingConfig struct {
	QuizCriterionName         string
	PracticalCriterionName    string
	QuizCriterionMaximum      float64
	PracticalCriterionMaximum float64
	DefaultCriterionName      string
	DefaultAssessmentGroup    string
	RootAssessmentGroup       string
	DefaultGradingScale       string
	DefaultPlanMaximum        float64
	AutoCreateReferenceData   bool
}

// CriterionFor returns the configured criterion name and desired maximum for a source.
func (g GradingConfig) CriterionFor(source string) (string, float64) {
	switch source {
	case "quiz":
		return g.QuizCriterionName, g.QuizCriterionMaximum
	case "practical":
		return g.PracticalCriterionName, g.PracticalCriterionMaximum
	default:
		return "", 0
	}
}

// DefaultGradingConfig mirrors the defaults applied by Load.
func DefaultGradingConfig() GradingConfig {
	return GradingConfig{
		QuizCriterionName:       "Quiz Assessment",
		PracticalCriterionName:  "Practical Assessment",
		DefaultCriterionName:    "Written Assessment",
		DefaultAssessmentGroup:  "Default",
		RootAssessmentGroup:     "All Assessment Groups",
		DefaultGradingScale:     "PASS OR FAIL",
		DefaultPlanMaximum:      100,
		AutoCreateReferenceData: true,
	}
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := DefaultGradingConfig()

	v.SetDefault("app.name", "GEMA Assessment")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.slow_query", "200ms")
	v.SetDefault("events.channel", "gema:assessment")
	v.SetDefault("ingest.lock_ttl", "30s")
	v.SetDefault("ingest.lock_wait", "5s")
	v.SetDefault("rate_limit.max", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("grading.quiz_criterion", defaults.QuizCriterionName)
	v.SetDefault("grading.practical_criterion", defaults.PracticalCriterionName)
	v.SetDefault("grading.quiz_criterion_max", 0)
	v.SetDefault("grading.practical_criterion_max", 0)
	v.SetDefault("grading.default_criterion", defaults.DefaultCriterionName)
	v.SetDefault("grading.assessment_group", defaults.DefaultAssessmentGroup)
	v.SetDefault("grading.root_assessment_group", defaults.RootAssessmentGroup)
	v.SetDefault("grading.grading_scale", defaults.DefaultGradingScale)
	v.SetDefault("grading.plan_max", defaults.DefaultPlanMaximum)
	v.SetDefault("grading.auto_create_reference", defaults.AutoCreateReferenceData)

	lockTTL, err := parseDuration(v, "ingest.lock_ttl", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	lockWait, err := parseDuration(v, "ingest.lock_wait", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	rateWindow, err := parseDuration(v, "rate_limit.window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	connLifetime, err := parseDuration(v, "database.conn_max_lifetime", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}

	slowQuery, err := parseDuration(v, "database.slow_query", 200*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		CORSOrigins:    splitList(v.GetString("cors.allow_origins")),
		LogLevel:       strings.ToLower(v.GetString("log.level")),
		DatabaseURL:    v.GetString("database.url"),
		Database: DatabasePool{
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connLifetime,
			SlowQuery:       slowQuery,
		},
		RedisURL:       v.GetString("redis.url"),
		NATSURL:        v.GetString("nats.url"),
		EventChannel:   v.GetString("events.channel"),
		IngestLockTTL:  lockTTL,
		IngestLockWait: lockWait,
		RateLimitMax:   v.GetInt("rate_limit.max"),
		RateLimitSpan:  rateWindow,
		Grading: GradingConfig{
			QuizCriterionName:         strings.TrimSpace(v.GetString("grading.quiz_criterion")),
			PracticalCriterionName:    strings.TrimSpace(v.GetString("grading.practical_criterion")),
			QuizCriterionMaximum:      v.GetFloat64("grading.quiz_criterion_max"),
			PracticalCriterionMaximum: v.GetFloat64("grading.practical_criterion_max"),
			DefaultCriterionName:      strings.TrimSpace(v.GetString("grading.default_criterion")),
			DefaultAssessmentGroup:    strings.TrimSpace(v.GetString("grading.assessment_group")),
			RootAssessmentGroup:       strings.TrimSpace(v.GetString("grading.root_assessment_group")),
			DefaultGradingScale:       strings.TrimSpace(v.GetString("grading.grading_scale")),
			DefaultPlanMaximum:        v.GetFloat64("grading.plan_max"),
			AutoCreateReferenceData:   v.GetBool("grading.auto_create_reference"),
		},
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.Grading.QuizCriterionName == "" || cfg.Grading.PracticalCriterionName == "" {
		return Config{}, fmt.Errorf("quiz and practical criterion names must be provided")
	}

	if cfg.Grading.QuizCriterionMaximum < 0 || cfg.Grading.PracticalCriterionMaximum < 0 {
		return Config{}, fmt.Errorf("criterion maximum scores must not be negative")
	}

	if cfg.Grading.DefaultPlanMaximum <= 0 {
		cfg.Grading.DefaultPlanMaximum = defaults.DefaultPlanMaximum
	}

	if cfg.Grading.DefaultCriterionName == "" {
		cfg.Grading.DefaultCriterionName = defaults.DefaultCriterionName
	}

	if cfg.Database.MaxOpenConns < 0 || cfg.Database.MaxIdleConns < 0 {
		return Config{}, fmt.Errorf("database pool sizes must not be negative")
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 60
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
