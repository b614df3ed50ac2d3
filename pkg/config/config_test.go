package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Materials.SignedURLTTL)
	assert.Equal(t, int64(20*1024*1024), cfg.Materials.MaxFileSizeBytes)
	assert.True(t, cfg.Enrollment.UseTransactions)
	assert.Equal(t, "AWAITING_APPROVAL", cfg.Assignments.StatusPrecedence)
	assert.Equal(t, 5*time.Minute, cfg.Progress.CacheTTL)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORAGE_DRIVER", "S3")
	v.Set("PROGRESS_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	v.Set("ASSIGNMENT_STATUS_PRECEDENCE", "in_progress")

	cfg := fromViper(v)
	assert.Equal(t, StorageDriverS3, cfg.Storage.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Progress.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "IN_PROGRESS", cfg.Assignments.StatusPrecedence)
}
