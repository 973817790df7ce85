// Package config defines the configuration model for a kpietl run and the
// helpers that load and lint it.
//
// A run is described by a single YAML or JSON file plus environment
// overrides. The model mirrors the phases of a run:
//
//   - run:      which phases execute (download, upload, process, verify).
//   - api:      the statistical query service and its HTTP client settings.
//   - download: partition size and worker pool width.
//   - dirs:     local working directories (landing, valid, error).
//   - bucket:   the blob store used to exchange landing/valid/error files.
//   - logging, metrics, storage: ambient sinks.
//   - datasets: optional config-declared datasets; when empty the built-in
//     catalog is used.
//
// Example (trimmed):
//
//	run:
//	  quarters: 12
//	  upload_landing: true
//	bucket:
//	  kind: s3
//	  name: ops-mi-bucket
//	datasets:
//	  - name: claim_rate
//	    url: "{base_url}/NM_162_1.data.csv?geography={geo:UK}&date={interval_claims}&select=date_name,geography_code,geography_name,obs_value,gender_name,age_name"
//	    file: Claimant_Rate
//	    dir: claimant_rate
//	    output_header: [Date, Geocode, Geography, Value, Gender, Age]
//	    key_columns: [1, 2, 5, 6]
//	    required_columns: [1, 2, 4, 5, 6]
//	    transform: claim_rate
package config

import "time"

// Config is the top-level run configuration.
type Config struct {
	Run      RunConfig      `mapstructure:"run"`
	API      APIConfig      `mapstructure:"api"`
	Download DownloadConfig `mapstructure:"download"`
	Dirs     DirsConfig     `mapstructure:"dirs"`
	Bucket   BucketConfig   `mapstructure:"bucket"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Output   OutputConfig   `mapstructure:"output"`

	// Datasets declares datasets in configuration. When empty, the built-in
	// catalog is used.
	Datasets []Dataset `mapstructure:"datasets"`

	// Only restricts the run to the named datasets. Empty means all.
	Only []string `mapstructure:"only"`
}

// RunConfig selects the phases of a run.
type RunConfig struct {
	// Environment is informational and is attached to logs and metrics.
	Environment string `mapstructure:"environment"`

	// Quarters is the number of trailing quarters requested from the query
	// service. Monthly datasets request 3*Quarters months. Minimum 1.
	Quarters int `mapstructure:"quarters"`

	UploadLanding             bool `mapstructure:"upload_landing"`
	DownloadLandingFromBucket bool `mapstructure:"download_landing_from_bucket"`
	ProcessLanding            bool `mapstructure:"process_landing"`
	UploadValid               bool `mapstructure:"upload_valid"`
	VerifyGeocodes            bool `mapstructure:"verify_geocodes"`
}

// NeedsBucket reports whether any enabled phase talks to the blob store.
func (r RunConfig) NeedsBucket() bool {
	return r.UploadLanding || r.DownloadLandingFromBucket || r.UploadValid || r.VerifyGeocodes
}

// APIConfig configures the query service client.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRetries is 0 by default: a failed request is logged and skipped.
	MaxRetries int `mapstructure:"max_retries"`

	// RequestsPerSecond paces requests to the service. 0 disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`

	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// DownloadConfig controls partitioning and parallelism.
type DownloadConfig struct {
	MaxPartitionSize int `mapstructure:"max_partition_size"`
	Workers          int `mapstructure:"workers"`
}

// DirsConfig names the local working directories.
type DirsConfig struct {
	Landing string `mapstructure:"landing"`
	Valid   string `mapstructure:"valid"`
	Error   string `mapstructure:"error"`
}

// BucketConfig configures the blob store.
type BucketConfig struct {
	// Kind selects the backend: "s3", "minio", "local" or "none".
	Kind string `mapstructure:"kind"`
	Name string `mapstructure:"name"`

	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	SessionToken string `mapstructure:"session_token"`
	RoleARN      string `mapstructure:"role_arn"`
	ExternalID   string `mapstructure:"external_id"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	Secure       bool   `mapstructure:"secure"`

	// Root is the base directory of the "local" backend.
	Root string `mapstructure:"root"`

	LandingPrefix string `mapstructure:"landing_prefix"`
	ValidPrefix   string `mapstructure:"valid_prefix"`
	ErrorPrefix   string `mapstructure:"error_prefix"`
	GeoMasterKey  string `mapstructure:"geo_master_key"`
}

// LoggingConfig configures the console logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig selects and configures a metrics backend.
type MetricsConfig struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string   `mapstructure:"backend"`
	PushgatewayURL string   `mapstructure:"pushgateway_url"`
	Job            string   `mapstructure:"job"`
	DatadogAddr    string   `mapstructure:"datadog_addr"`
	Namespace      string   `mapstructure:"namespace"`
	Tags           []string `mapstructure:"tags"`
}

// StorageConfig configures the optional warehouse sink for canonical rows.
type StorageConfig struct {
	// Kind is "none", "postgres" or "sqlite".
	Kind            string `mapstructure:"kind"`
	DSN             string `mapstructure:"dsn"`
	TablePrefix     string `mapstructure:"table_prefix"`
	BatchSize       int    `mapstructure:"batch_size"`
	AutoCreateTable bool   `mapstructure:"auto_create_table"`
}

// OutputConfig shapes the valid CSV files.
type OutputConfig struct {
	// CRLF terminates records with \r\n instead of \n.
	CRLF bool `mapstructure:"crlf"`
}

// Dataset declares one KPI in configuration.
//
// KeyColumns and RequiredColumns are 1-based: KeyColumns index the landing
// header (the upper-cased select list of URL), RequiredColumns index
// OutputHeader.
type Dataset struct {
	Name            string   `mapstructure:"name"`
	URL             string   `mapstructure:"url"`
	File            string   `mapstructure:"file"`
	Dir             string   `mapstructure:"dir"`
	LandingFile     string   `mapstructure:"landing_file"`
	ValidFile       string   `mapstructure:"valid_file"`
	OutputHeader    []string `mapstructure:"output_header"`
	KeyColumns      []int    `mapstructure:"key_columns"`
	RequiredColumns []int    `mapstructure:"required_columns"`
	Transform       string   `mapstructure:"transform"`
}

// Defaults returns a configuration populated with the values used when a key
// is absent from both the file and the environment.
func Defaults() Config {
	return Config{
		Run: RunConfig{
			Environment: "development",
			Quarters:    12,
		},
		API: APIConfig{
			BaseURL: "http://www.nomisweb.co.uk/api/v01/dataset",
			Timeout: 5 * time.Minute,
			Burst:   1,
		},
		Download: DownloadConfig{
			MaxPartitionSize: 25000,
			Workers:          8,
		},
		Dirs: DirsConfig{
			Landing: "./landing",
			Valid:   "./valid",
			Error:   "./error",
		},
		Bucket: BucketConfig{
			Kind:          "none",
			Region:        "eu-west-2",
			LandingPrefix: "landing",
			ValidPrefix:   "valid",
			ErrorPrefix:   "error",
			GeoMasterKey:  "valid/master_mapping/all/all.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Backend: "none",
			Job:     "kpietl",
		},
		Storage: StorageConfig{
			Kind:      "none",
			BatchSize: 5000,
		},
	}
}
