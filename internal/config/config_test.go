package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/config"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("ENABLE_DELTA_CHECK", "false")
	t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test")
	os.Unsetenv("IVDMW_CONFIG_FILE")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.EnableDeltaCheck)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
}

func TestLoadRequiresSecretKeyInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SECRET_KEY", "")
	os.Unsetenv("IVDMW_CONFIG_FILE")

	_, err := config.Load()
	require.Error(t, err)
}
