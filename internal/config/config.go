package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredential is returned when an API key a command needs is not configured.
var ErrMissingCredential = errors.New("missing credential")

const errWorkers = "failed to parse workers from configuration, must be an integer types"

// Cache drivers.
const (
	CacheDriverJSON     = "json"
	CacheDriverPostgres = "postgres"
)

// Config holds the configuration settings of the collector, the geocode pass and the map data server.
//
// Fields:
// - Env: The current environment (local, development, production).
// - DataDir: Root of the collected workbooks, one subdirectory per year.
// - ConsumerDir: The map client directory manifest paths are relative to.
// - RegionsFile: CSV or XLSX catalog of the regions to collect.
// - Months: Default YYYYMM months to collect when no month flag is given.
type Config struct {
	Env         string
	DataDir     string
	ConsumerDir string
	RegionsFile string
	Months      []string
	RTMS        RTMSConfig
	Provider    ProviderConfig
	Geocode     GeocodeConfig
	Cache       CacheConfig
	Database    PostgresConfig
	Server      ServerConfig
}

// RTMSConfig configures the transaction API client.
type RTMSConfig struct {
	ServiceKey     string        // ServiceKey is the data.go.kr service key.
	BaseURL        string        // BaseURL is the API gateway.
	PageSize       int           // PageSize is the numOfRows of every page request.
	Timeout        time.Duration // Timeout bounds one HTTP request.
	MaxAttempts    int           // MaxAttempts per page, including the first one.
	InitialBackoff time.Duration // InitialBackoff is the wait before the first retry.
	MaxBackoff     time.Duration // MaxBackoff caps the exponential backoff.
}

// ProviderConfig selects the geocoding provider.
type ProviderConfig struct {
	Type      string // Type is kakao, google or nominatim.
	APIKey    string // APIKey is the REST key of the provider.
	RateLimit int    // RateLimit in requests per second, 0 for none.
}

// GeocodeConfig tunes the geocode pass.
type GeocodeConfig struct {
	Cooldown       time.Duration
	AutosaveEvery  int
	Workers        int
	NormalizeSeoul bool
	Sheets         []string
}

// CacheConfig selects where the address cache is persisted.
type CacheConfig struct {
	Driver string
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// ServerConfig configures the map data server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MustLoad reads the .env file, the optional YAML file at path and the ATLAS_* environment,
// and returns the resulting Config. It panics on values that cannot be parsed.
func MustLoad(path string) *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindAliases(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	return &Config{
		Env:         v.GetString("env"),
		DataDir:     v.GetString("data_dir"),
		ConsumerDir: v.GetString("consumer_dir"),
		RegionsFile: v.GetString("regions_file"),
		Months:      list(v, "months"),
		RTMS: RTMSConfig{
			ServiceKey:     strings.TrimSpace(v.GetString("rtms.service_key")),
			BaseURL:        v.GetString("rtms.base_url"),
			PageSize:       mustInt(v, "rtms.page_size", "failed to parse rtms page size from configuration"),
			Timeout:        mustDuration(v, "rtms.timeout", "failed to parse rtms timeout from configuration"),
			MaxAttempts:    mustInt(v, "rtms.max_attempts", "failed to parse rtms attempts from configuration"),
			InitialBackoff: mustDuration(v, "rtms.initial_backoff", "failed to parse rtms backoff from configuration"),
			MaxBackoff:     mustDuration(v, "rtms.max_backoff", "failed to parse rtms backoff from configuration"),
		},
		Provider: ProviderConfig{
			Type:      strings.ToLower(v.GetString("provider.type")),
			APIKey:    strings.TrimSpace(v.GetString("provider.api_key")),
			RateLimit: mustInt(v, "provider.rate_limit", "failed to parse provider rate limit from configuration"),
		},
		Geocode: GeocodeConfig{
			Cooldown:       mustDuration(v, "geocode.cooldown", "failed to parse geocode cooldown from configuration"),
			AutosaveEvery:  mustInt(v, "geocode.autosave_every", "failed to parse autosave interval from configuration"),
			Workers:        mustInt(v, "geocode.workers", errWorkers),
			NormalizeSeoul: v.GetBool("geocode.normalize_seoul"),
			Sheets:         list(v, "geocode.sheets"),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(v.GetString("cache.driver")),
		},
		Database: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db_name"),
		},
		Server: ServerConfig{
			Port:         mustInt(v, "server.port", "failed to parse port for map data server from configuration"),
			ReadTimeout:  mustDuration(v, "server.read_timeout", "failed to parse server timeouts from configuration"),
			WriteTimeout: mustDuration(v, "server.write_timeout", "failed to parse server timeouts from configuration"),
		},
	}
}

// RequireServiceKey reports ErrMissingCredential when no transaction API key is configured.
func (c *Config) RequireServiceKey() error {
	if c.RTMS.ServiceKey == "" {
		return fmt.Errorf("%w: set ATLAS_RTMS_SERVICE_KEY or RTMS_SERVICE_KEY", ErrMissingCredential)
	}
	return nil
}

// RequireProviderKey reports ErrMissingCredential when the selected provider needs a key that is not configured.
func (c *Config) RequireProviderKey() error {
	if c.Provider.Type == "nominatim" || c.Provider.APIKey != "" {
		return nil
	}
	return fmt.Errorf("%w: %s provider needs ATLAS_PROVIDER_API_KEY or KAKAO_REST_KEY", ErrMissingCredential, c.Provider.Type)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("data_dir", "data")
	v.SetDefault("consumer_dir", "")
	v.SetDefault("regions_file", "LAWD_서울경기.csv")
	v.SetDefault("months", []string{})

	v.SetDefault("rtms.service_key", "")
	v.SetDefault("rtms.base_url", "https://apis.data.go.kr/1613000")
	v.SetDefault("rtms.page_size", 1000)
	v.SetDefault("rtms.timeout", "30s")
	v.SetDefault("rtms.max_attempts", 3)
	v.SetDefault("rtms.initial_backoff", "1s")
	v.SetDefault("rtms.max_backoff", "8s")

	v.SetDefault("provider.type", "kakao")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.rate_limit", 0)

	v.SetDefault("geocode.cooldown", "200ms")
	v.SetDefault("geocode.autosave_every", 50)
	v.SetDefault("geocode.workers", 1)
	v.SetDefault("geocode.normalize_seoul", true)
	v.SetDefault("geocode.sheets", []string{})

	v.SetDefault("cache.driver", CacheDriverJSON)

	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
}

// bindAliases lets the well-known variable names of the upstream services stand in for ATLAS_* ones.
func bindAliases(v *viper.Viper) {
	aliases := map[string]string{
		"rtms.service_key":  "RTMS_SERVICE_KEY",
		"provider.api_key":  "KAKAO_REST_KEY",
		"postgres.host":     "DB_HOST",
		"postgres.port":     "DB_PORT",
		"postgres.user":     "DB_USERNAME",
		"postgres.password": "DB_PASSWORD",
		"postgres.db_name":  "DB_NAME",
	}
	for key, alias := range aliases {
		env := "ATLAS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, env, alias)
	}
}

func mustInt(v *viper.Viper, key, msg string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		panic(msg)
	}
	return n
}

func mustDuration(v *viper.Viper, key, msg string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		panic(msg)
	}
	return d
}

// list reads a string list that may also be given as one comma separated value.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
