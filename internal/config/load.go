package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. KPIETL_RUN_QUARTERS.
const EnvPrefix = "KPIETL"

// Load reads the configuration from path (YAML or JSON, chosen by extension)
// and applies environment overrides on top of Defaults. An empty path loads
// defaults plus environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// Pool and partition knobs may also come from the short env names used
	// by container deployments.
	cfg.Download.Workers = pickInt(getenvInt(EnvPrefix+"_WORKERS", 0), cfg.Download.Workers)
	cfg.Download.MaxPartitionSize = pickInt(getenvInt(EnvPrefix+"_MAX_PARTITION_SIZE", 0), cfg.Download.MaxPartitionSize)

	return cfg, nil
}

// setDefaults registers every known key with viper so AutomaticEnv can
// override keys that are absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("run.environment", d.Run.Environment)
	v.SetDefault("run.quarters", d.Run.Quarters)
	v.SetDefault("run.upload_landing", d.Run.UploadLanding)
	v.SetDefault("run.download_landing_from_bucket", d.Run.DownloadLandingFromBucket)
	v.SetDefault("run.process_landing", d.Run.ProcessLanding)
	v.SetDefault("run.upload_valid", d.Run.UploadValid)
	v.SetDefault("run.verify_geocodes", d.Run.VerifyGeocodes)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("api.requests_per_second", d.API.RequestsPerSecond)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("api.insecure_skip_verify", d.API.InsecureSkipVerify)

	v.SetDefault("download.max_partition_size", d.Download.MaxPartitionSize)
	v.SetDefault("download.workers", d.Download.Workers)

	v.SetDefault("dirs.landing", d.Dirs.Landing)
	v.SetDefault("dirs.valid", d.Dirs.Valid)
	v.SetDefault("dirs.error", d.Dirs.Error)

	v.SetDefault("bucket.kind", d.Bucket.Kind)
	v.SetDefault("bucket.name", d.Bucket.Name)
	v.SetDefault("bucket.region", d.Bucket.Region)
	v.SetDefault("bucket.endpoint", d.Bucket.Endpoint)
	v.SetDefault("bucket.access_key", d.Bucket.AccessKey)
	v.SetDefault("bucket.secret_key", d.Bucket.SecretKey)
	v.SetDefault("bucket.session_token", d.Bucket.SessionToken)
	v.SetDefault("bucket.role_arn", d.Bucket.RoleARN)
	v.SetDefault("bucket.external_id", d.Bucket.ExternalID)
	v.SetDefault("bucket.use_path_style", d.Bucket.UsePathStyle)
	v.SetDefault("bucket.secure", d.Bucket.Secure)
	v.SetDefault("bucket.root", d.Bucket.Root)
	v.SetDefault("bucket.landing_prefix", d.Bucket.LandingPrefix)
	v.SetDefault("bucket.valid_prefix", d.Bucket.ValidPrefix)
	v.SetDefault("bucket.error_prefix", d.Bucket.ErrorPrefix)
	v.SetDefault("bucket.geo_master_key", d.Bucket.GeoMasterKey)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.backend", d.Metrics.Backend)
	v.SetDefault("metrics.pushgateway_url", d.Metrics.PushgatewayURL)
	v.SetDefault("metrics.job", d.Metrics.Job)
	v.SetDefault("metrics.datadog_addr", d.Metrics.DatadogAddr)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.tags", d.Metrics.Tags)

	v.SetDefault("output.crlf", d.Output.CRLF)

	v.SetDefault("storage.kind", d.Storage.Kind)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.table_prefix", d.Storage.TablePrefix)
	v.SetDefault("storage.batch_size", d.Storage.BatchSize)
	v.SetDefault("storage.auto_create_table", d.Storage.AutoCreateTable)

	v.SetDefault("only", d.Only)
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
