package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
jwt:
  secret: s3cret
claims:
  generic_email_domains: [gmail.com, proton.me]
  fallback_admin_email: admin@muralhub.app
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, []string{"gmail.com", "proton.me"}, cfg.Claims.GenericEmailDomains)
	assert.Equal(t, "admin@muralhub.app", cfg.Claims.FallbackAdminEmail)
	assert.Equal(t, "mailto:support@muralhub.app", cfg.Claims.SupportContactURL)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: x\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultGenericEmailDomains, cfg.Claims.GenericEmailDomains)
	assert.Equal(t, 120, cfg.RateLimit.CheckPerMinute)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_TrustedProxies(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: x\nrate_limit:\n  trusted_proxies: [10.0.0.0/8, 127.0.0.1]\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.RateLimit.TrustedProxies)

	path = writeConfig(t, "jwt:\n  secret: x\nrate_limit:\n  trusted_proxies: [lb.internal]\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "trusted_proxies")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: from-file\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 1\n")

	_, err := Load(path)
	assert.Error(t, err)
}
