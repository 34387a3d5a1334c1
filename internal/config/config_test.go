package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/realty-atlas/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MustLoadDefaults(t *testing.T) {
	cfg := config.MustLoad("")

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Empty(t, cfg.ConsumerDir)
	assert.Equal(t, "LAWD_서울경기.csv", cfg.RegionsFile)
	assert.Empty(t, cfg.Months)
	assert.Equal(t, "https://apis.data.go.kr/1613000", cfg.RTMS.BaseURL)
	assert.Equal(t, 1000, cfg.RTMS.PageSize)
	assert.Equal(t, 30*time.Second, cfg.RTMS.Timeout)
	assert.Equal(t, 3, cfg.RTMS.MaxAttempts)
	assert.Equal(t, time.Second, cfg.RTMS.InitialBackoff)
	assert.Equal(t, 8*time.Second, cfg.RTMS.MaxBackoff)
	assert.Equal(t, "kakao", cfg.Provider.Type)
	assert.Equal(t, 200*time.Millisecond, cfg.Geocode.Cooldown)
	assert.Equal(t, 50, cfg.Geocode.AutosaveEvery)
	assert.Equal(t, 1, cfg.Geocode.Workers)
	assert.True(t, cfg.Geocode.NormalizeSeoul)
	assert.Equal(t, config.CacheDriverJSON, cfg.Cache.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func Test_MustLoadFromEnv(t *testing.T) {
	t.Setenv("ATLAS_ENV", "local")
	t.Setenv("ATLAS_MONTHS", "202503, 202504")
	t.Setenv("ATLAS_PROVIDER_TYPE", "Google")
	t.Setenv("ATLAS_PROVIDER_API_KEY", " testAPIKey ")
	t.Setenv("ATLAS_GEOCODE_WORKERS", "4")
	t.Setenv("ATLAS_GEOCODE_COOLDOWN", "1s")
	t.Setenv("ATLAS_GEOCODE_NORMALIZE_SEOUL", "false")
	t.Setenv("ATLAS_GEOCODE_SHEETS", "아파트_매매,오피스텔_매매")
	t.Setenv("ATLAS_CACHE_DRIVER", "postgres")
	t.Setenv("ATLAS_SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "testHost")
	t.Setenv("DB_PORT", "12345")
	t.Setenv("DB_USERNAME", "admin")
	t.Setenv("DB_PASSWORD", "adminpass")
	t.Setenv("DB_NAME", "testName")

	cfg := config.MustLoad("")

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, []string{"202503", "202504"}, cfg.Months)
	assert.Equal(t, "google", cfg.Provider.Type)
	assert.Equal(t, "testAPIKey", cfg.Provider.APIKey)
	assert.Equal(t, 4, cfg.Geocode.Workers)
	assert.Equal(t, time.Second, cfg.Geocode.Cooldown)
	assert.False(t, cfg.Geocode.NormalizeSeoul)
	assert.Equal(t, []string{"아파트_매매", "오피스텔_매매"}, cfg.Geocode.Sheets)
	assert.Equal(t, config.CacheDriverPostgres, cfg.Cache.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Equal(t, "testName", cfg.Database.Name)
}

func Test_MustLoadAliases(t *testing.T) {
	t.Run("upstream names", func(t *testing.T) {
		t.Setenv("RTMS_SERVICE_KEY", "service-key")
		t.Setenv("KAKAO_REST_KEY", "kakao-key")

		cfg := config.MustLoad("")

		assert.Equal(t, "service-key", cfg.RTMS.ServiceKey)
		assert.Equal(t, "kakao-key", cfg.Provider.APIKey)
	})

	t.Run("prefixed names win", func(t *testing.T) {
		t.Setenv("ATLAS_RTMS_SERVICE_KEY", "prefixed")
		t.Setenv("RTMS_SERVICE_KEY", "upstream")

		cfg := config.MustLoad("")

		assert.Equal(t, "prefixed", cfg.RTMS.ServiceKey)
	})
}

func Test_MustLoadFromFile(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "atlas.yaml")
	filet.File(t, path, `env: development
data_dir: /srv/atlas/data
months: [202412, 202501]
rtms:
  page_size: 500
  max_backoff: 30s
provider:
  type: nominatim
geocode:
  autosave_every: 10
server:
  port: 8181
`)
	t.Setenv("ATLAS_GEOCODE_AUTOSAVE_EVERY", "25")

	cfg := config.MustLoad(path)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "/srv/atlas/data", cfg.DataDir)
	assert.Equal(t, []string{"202412", "202501"}, cfg.Months)
	assert.Equal(t, 500, cfg.RTMS.PageSize)
	assert.Equal(t, 30*time.Second, cfg.RTMS.MaxBackoff)
	assert.Equal(t, "nominatim", cfg.Provider.Type)
	assert.Equal(t, 25, cfg.Geocode.AutosaveEvery)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestMustLoad_FileError(t *testing.T) {
	assert.PanicsWithValue(t, "failed to read configuration file", func() {
		config.MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}

func TestMustLoad_TimeoutError(t *testing.T) {
	t.Setenv("ATLAS_RTMS_TIMEOUT", "error_value")

	assert.PanicsWithValue(t, "failed to parse rtms timeout from configuration", func() {
		config.MustLoad("")
	})
}

func TestMustLoad_CooldownError(t *testing.T) {
	t.Setenv("ATLAS_GEOCODE_COOLDOWN", "error_value")

	assert.PanicsWithValue(t, "failed to parse geocode cooldown from configuration", func() {
		config.MustLoad("")
	})
}

func TestMustLoad_PortError(t *testing.T) {
	t.Setenv("ATLAS_SERVER_PORT", "error_value")

	assert.PanicsWithValue(t, "failed to parse port for map data server from configuration", func() {
		config.MustLoad("")
	})
}

func TestMustLoad_WorkersError(t *testing.T) {
	t.Setenv("ATLAS_GEOCODE_WORKERS", "error_value")

	assert.PanicsWithValue(t, "failed to parse workers from configuration, must be an integer types", func() {
		config.MustLoad("")
	})
}

func TestConfig_RequireServiceKey(t *testing.T) {
	cfg := &config.Config{}
	require.ErrorIs(t, cfg.RequireServiceKey(), config.ErrMissingCredential)

	cfg.RTMS.ServiceKey = "key"
	assert.NoError(t, cfg.RequireServiceKey())
}

func TestConfig_RequireProviderKey(t *testing.T) {
	tests := []struct {
		name     string
		provider config.ProviderConfig
		wantErr  bool
	}{
		{"kakao without key", config.ProviderConfig{Type: "kakao"}, true},
		{"google without key", config.ProviderConfig{Type: "google"}, true},
		{"kakao with key", config.ProviderConfig{Type: "kakao", APIKey: "key"}, false},
		{"nominatim needs no key", config.ProviderConfig{Type: "nominatim"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Provider: tt.provider}

			err := cfg.RequireProviderKey()
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrMissingCredential)
				return
			}
			assert.NoError(t, err)
		})
	}
}
