// Package config loads projection settings from an optional YAML file, a
// .env file and VDYP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"vdypcore/internal/blob"
	"vdypcore/internal/projection"
	"vdypcore/internal/runstore"
)

// EnvPrefix prefixes every environment override, e.g. VDYP_STORAGE_DRIVER.
const EnvPrefix = "VDYP"

// Metrics backends.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the resolved configuration.
type Config struct {
	WorkRoot string
	Cleanup  Cleanup
	Storage  runstore.Config
	Blob     blob.Config
	Metrics  string
	Log      Log
	Parallel int
}

// Cleanup controls what happens to execution folders after a run.
type Cleanup struct {
	Strategy projection.CleanupStrategy
	Delay    time.Duration
}

// Log selects the log level and handler format.
type Log struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("work_root", os.TempDir())
	v.SetDefault("cleanup.strategy", string(projection.CleanupImmediate))
	v.SetDefault("cleanup.delay", projection.DefaultRetentionDelay)
	v.SetDefault("storage.driver", string(runstore.DriverNone))
	v.SetDefault("storage.sqlite_path", "vdyp-runs.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", string(blob.DriverNone))
	v.SetDefault("blob.fs_root", "./archive")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("metrics.backend", MetricsNone)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("parallel", 1)
}

// Load reads .env from the working directory when present, then the YAML
// file at path, then the environment. With an empty path, vdyp.yaml in the
// working directory is used if it exists.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("vdyp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	strategy, err := projection.ParseCleanupStrategy(v.GetString("cleanup.strategy"))
	if err != nil {
		return Config{}, err
	}
	storageDriver, err := runstore.ParseDriver(v.GetString("storage.driver"))
	if err != nil {
		return Config{}, err
	}
	blobDriver, err := blob.ParseDriver(v.GetString("blob.driver"))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		WorkRoot: v.GetString("work_root"),
		Cleanup:  Cleanup{Strategy: strategy, Delay: v.GetDuration("cleanup.delay")},
		Storage: runstore.Config{
			Driver:      storageDriver,
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Blob: blob.Config{
			Driver: blobDriver,
			FSRoot: v.GetString("blob.fs_root"),
			S3: blob.S3Config{
				Bucket:    v.GetString("blob.s3.bucket"),
				Region:    v.GetString("blob.s3.region"),
				Endpoint:  v.GetString("blob.s3.endpoint"),
				PathStyle: v.GetBool("blob.s3.path_style"),
			},
		},
		Metrics:  strings.ToLower(v.GetString("metrics.backend")),
		Log:      Log{Level: v.GetString("log.level"), Format: v.GetString("log.format")},
		Parallel: v.GetInt("parallel"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no component can honour.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.WorkRoot) == "" {
		errs = append(errs, errors.New("work_root must not be empty"))
	}
	if c.Cleanup.Strategy == projection.CleanupDelayed && c.Cleanup.Delay <= 0 {
		errs = append(errs, fmt.Errorf("cleanup.delay must be positive for the delayed strategy, got %s", c.Cleanup.Delay))
	}
	if c.Storage.Driver == runstore.DriverPostgres && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
	}
	if c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
	}
	switch c.Metrics {
	case MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		errs = append(errs, fmt.Errorf("unknown metrics.backend %q", c.Metrics))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel must be at least 1, got %d", c.Parallel))
	}
	return errors.Join(errs...)
}
