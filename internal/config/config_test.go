package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMA_DATABASE_URL", "file:config-defaults?mode=memory")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "gema:assessment", cfg.EventChannel)
	require.Equal(t, 30*time.Second, cfg.IngestLockTTL)
	require.Equal(t, 5*time.Second, cfg.IngestLockWait)
	require.Equal(t, 60, cfg.RateLimitMax)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, DefaultGradingConfig(), cfg.Grading)
	require.Equal(t, DatabasePool{MaxOpenConns: 25, MaxIdleConns: 10, ConnMaxLifetime: 30 * time.Minute, SlowQuery: 200 * time.Millisecond}, cfg.Database)
}

func TestLoadReadsDatabasePool(t *testing.T) {
	t.Setenv("GEMA_DATABASE_URL", "postgres://localhost/gema")
	t.Setenv("GEMA_DATABASE_MAX_OPEN_CONNS", "40")
	t.Setenv("GEMA_DATABASE_CONN_MAX_LIFETIME", "5m")
	t.Setenv("GEMA_DATABASE_SLOW_QUERY", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 40, cfg.Database.MaxOpenConns)
	require.Equal(t, 10, cfg.Database.MaxIdleConns)
	require.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	require.Equal(t, time.Second, cfg.Database.SlowQuery)

	t.Setenv("GEMA_DATABASE_MAX_IDLE_CONNS", "-1")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadReadsGradingOverrides(t *testing.T) {
	t.Setenv("GEMA_DATABASE_URL", "postgres://localhost/gema")
	t.Setenv("GEMA_APP_PORT", ":9090")
	t.Setenv("GEMA_LOG_LEVEL", "DEBUG")
	t.Setenv("GEMA_INGEST_LOCK_WAIT", "250ms")
	t.Setenv("GEMA_GRADING_QUIZ_CRITERION", " Online Quiz ")
	t.Setenv("GEMA_GRADING_QUIZ_CRITERION_MAX", "80")
	t.Setenv("GEMA_GRADING_AUTO_CREATE_REFERENCE", "false")
	t.Setenv("GEMA_CORS_ALLOW_ORIGINS", "https://lms.example.com, https://quiz.example.com,")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 250*time.Millisecond, cfg.IngestLockWait)
	require.Equal(t, "Online Quiz", cfg.Grading.QuizCriterionName)
	require.Equal(t, 80.0, cfg.Grading.QuizCriterionMaximum)
	require.False(t, cfg.Grading.AutoCreateReferenceData)
	require.Equal(t, []string{"https://lms.example.com", "https://quiz.example.com"}, cfg.CORSOrigins)

	name, maximum := cfg.Grading.CriterionFor("quiz")
	require.Equal(t, "Online Quiz", name)
	require.Equal(t, 80.0, maximum)

	name, maximum = cfg.Grading.CriterionFor("practical")
	require.Equal(t, "Practical Assessment", name)
	require.Zero(t, maximum)

	name, _ = cfg.Grading.CriterionFor("essay")
	require.Empty(t, name)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("GEMA_DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("GEMA_DATABASE_URL", "file:config-invalid?mode=memory")
	t.Setenv("GEMA_INGEST_LOCK_TTL", "soon")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("GEMA_INGEST_LOCK_TTL", "10s")
	t.Setenv("GEMA_GRADING_PRACTICAL_CRITERION_MAX", "-1")
	_, err = Load()
	require.Error(t, err)
}
