package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix namespaces all environment overrides, e.g. APPEAL_DATABASE_HOST
// overrides database.host.
const envPrefix = "APPEAL"

func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/appealengine")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from the file at path (or the standard search
// locations when path is empty), layers environment overrides on top, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		// A missing file is acceptable when no explicit path was given;
		// environment variables and defaults may be sufficient.
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFromEnv builds configuration purely from environment variables and
// defaults, skipping the file search entirely.  Used by containerised
// deployments that inject everything through the environment.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKnownKeys(v)
	return unmarshal(v)
}

// Watch re-reads the configuration whenever the underlying file changes and
// invokes onChange with the freshly validated Config.  Invalid updates are
// dropped and reported through onError; the previous configuration stays in
// effect.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file for watching: %w", err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on failure.  For use in main() only.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// bindKnownKeys registers every configuration key with viper so AutomaticEnv
// can resolve them without a config file present.  Viper only consults the
// environment for keys it knows about.
func bindKnownKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
		"database.host", "database.port", "database.user", "database.password", "database.db_name",
		"database.ssl_mode", "database.max_open_conns", "database.max_idle_conns",
		"database.conn_max_lifetime", "database.conn_max_idle_time", "database.migrations_path",
		"redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.min_idle_conns",
		"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout", "redis.key_prefix", "redis.default_ttl",
		"kafka.brokers", "kafka.group_id", "kafka.producer_retries", "kafka.batch_timeout", "kafka.write_timeout",
		"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket", "minio.use_ssl",
		"opendata.base_url", "opendata.app_token", "opendata.timeout",
		"opendata.assessments_dataset", "opendata.sales_dataset", "opendata.max_rows",
		"engine.default_limit", "engine.max_limit", "engine.cache_ttl",
		"worker.concurrency", "worker.max_retries", "worker.poll_timeout",
		"log.level", "log.format", "log.output_paths", "log.error_output_paths",
	} {
		// BindEnv only fails on an empty key list.
		_ = v.BindEnv(key)
	}
}
