package config

// This file adds a lightweight linter for Config values. It performs static
// checks over a decoded Config and returns a list of issues (errors and
// warnings) that callers can surface in the CLI or tests.

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Config.
//
// Path is a dotted path into the config (e.g. "bucket.name",
// "datasets[1].key_columns"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Config. It does not mutate cfg.
// Transform names of config-declared datasets are checked later, when the
// datasets are resolved against the transform registry.
func Validate(cfg Config) []Issue {
	var issues []Issue

	issues = append(issues, validateRun(cfg.Run)...)
	issues = append(issues, validateAPI(cfg.API)...)
	issues = append(issues, validateDownload(cfg.Download)...)
	issues = append(issues, validateDirs(cfg.Dirs)...)
	issues = append(issues, validateBucket(cfg.Bucket, cfg.Run)...)
	issues = append(issues, validateLogging(cfg.Logging)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateStorage(cfg.Storage)...)
	for i, ds := range cfg.Datasets {
		issues = append(issues, validateDataset(i, ds)...)
	}
	issues = append(issues, validateDuplicateNames(cfg.Datasets)...)

	return issues
}

func validateRun(r RunConfig) []Issue {
	var issues []Issue
	if r.Quarters < 1 {
		issues = append(issues, errIssue("run.quarters", "must be >= 1 (one quarter)"))
	}
	if r.VerifyGeocodes && !r.ProcessLanding {
		issues = append(issues, warnIssue("run.verify_geocodes", "has no effect unless run.process_landing is enabled"))
	}
	if r.UploadValid && !r.ProcessLanding {
		issues = append(issues, warnIssue("run.upload_valid", "has no effect unless run.process_landing is enabled"))
	}
	if r.DownloadLandingFromBucket && r.UploadLanding {
		issues = append(issues, warnIssue("run.upload_landing", "is skipped when landing files are downloaded from the bucket"))
	}
	return issues
}

func validateAPI(a APIConfig) []Issue {
	var issues []Issue
	if strings.TrimSpace(a.BaseURL) == "" {
		issues = append(issues, errIssue("api.base_url", "must not be empty"))
	} else if u, err := url.Parse(a.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, errIssue("api.base_url", fmt.Sprintf("%q is not an absolute URL", a.BaseURL)))
	}
	if a.MaxRetries < 0 {
		issues = append(issues, errIssue("api.max_retries", "must be >= 0"))
	}
	if a.RequestsPerSecond < 0 {
		issues = append(issues, errIssue("api.requests_per_second", "must be >= 0 (0 disables pacing)"))
	}
	return issues
}

func validateDownload(d DownloadConfig) []Issue {
	var issues []Issue
	if d.MaxPartitionSize <= 0 {
		issues = append(issues, errIssue("download.max_partition_size", "must be > 0"))
	}
	if d.Workers <= 0 {
		issues = append(issues, errIssue("download.workers", "must be > 0"))
	}
	return issues
}

func validateDirs(d DirsConfig) []Issue {
	var issues []Issue
	for path, v := range map[string]string{
		"dirs.landing": d.Landing,
		"dirs.valid":   d.Valid,
		"dirs.error":   d.Error,
	} {
		if strings.TrimSpace(v) == "" {
			issues = append(issues, errIssue(path, "must not be empty"))
		}
	}
	return issues
}

func validateBucket(b BucketConfig, r RunConfig) []Issue {
	var issues []Issue
	kind := strings.ToLower(strings.TrimSpace(b.Kind))
	switch kind {
	case "", "none":
		if r.NeedsBucket() {
			issues = append(issues, errIssue("bucket.kind", "a blob store is required by the enabled run flags"))
		}
		return issues
	case "s3", "minio":
		if strings.TrimSpace(b.Name) == "" {
			issues = append(issues, errIssue("bucket.name", "must not be empty"))
		}
		if kind == "minio" && strings.TrimSpace(b.Endpoint) == "" {
			issues = append(issues, errIssue("bucket.endpoint", "is required for kind=minio"))
		}
		if kind == "s3" && strings.TrimSpace(b.Region) == "" {
			issues = append(issues, errIssue("bucket.region", "is required for kind=s3"))
		}
	case "local":
		if strings.TrimSpace(b.Root) == "" {
			issues = append(issues, errIssue("bucket.root", "is required for kind=local"))
		}
	default:
		issues = append(issues, errIssue("bucket.kind", fmt.Sprintf("unsupported kind %q (want s3, minio, local or none)", b.Kind)))
	}
	if r.VerifyGeocodes && strings.TrimSpace(b.GeoMasterKey) == "" {
		issues = append(issues, errIssue("bucket.geo_master_key", "is required when run.verify_geocodes is enabled"))
	}
	return issues
}

func validateLogging(l LoggingConfig) []Issue {
	var issues []Issue
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, errIssue("logging.level", fmt.Sprintf("invalid level %q (must be debug, info, warn, or error)", l.Level)))
	}
	if l.Format != "json" && l.Format != "console" {
		issues = append(issues, errIssue("logging.format", fmt.Sprintf("invalid format %q (must be json or console)", l.Format)))
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, warnIssue("metrics.pushgateway_url", "empty; PUSHGATEWAY_URL or http://localhost:9091 will be used"))
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, errIssue("metrics.datadog_addr", "is required for backend=datadog"))
		}
	default:
		issues = append(issues, warnIssue("metrics.backend", fmt.Sprintf("unknown backend %q; metrics will be disabled", m.Backend)))
	}
	return issues
}

func validateStorage(s StorageConfig) []Issue {
	var issues []Issue
	switch s.Kind {
	case "", "none":
		return nil
	case "postgres", "sqlite":
		if strings.TrimSpace(s.DSN) == "" {
			issues = append(issues, errIssue("storage.dsn", "must not be empty when storage.kind is set"))
		}
		if s.BatchSize <= 0 {
			issues = append(issues, errIssue("storage.batch_size", "must be > 0"))
		}
	default:
		issues = append(issues, errIssue("storage.kind", fmt.Sprintf("unsupported kind %q (want postgres, sqlite or none)", s.Kind)))
	}
	return issues
}

func validateDataset(i int, ds Dataset) []Issue {
	var issues []Issue
	base := fmt.Sprintf("datasets[%d]", i)

	if strings.TrimSpace(ds.Name) == "" {
		issues = append(issues, errIssue(base+".name", "must not be empty"))
	}
	if strings.TrimSpace(ds.File) == "" {
		issues = append(issues, errIssue(base+".file", "must not be empty"))
	}
	if strings.TrimSpace(ds.Dir) == "" {
		issues = append(issues, errIssue(base+".dir", "must not be empty"))
	}
	if strings.TrimSpace(ds.Transform) == "" {
		issues = append(issues, errIssue(base+".transform", "must not be empty"))
	}

	selectCols := 0
	if strings.TrimSpace(ds.URL) == "" {
		issues = append(issues, errIssue(base+".url", "must not be empty"))
	} else if u, err := url.Parse(ds.URL); err != nil {
		issues = append(issues, errIssue(base+".url", fmt.Sprintf("cannot parse: %v", err)))
	} else if sel := u.Query().Get("select"); sel == "" {
		issues = append(issues, errIssue(base+".url", "must carry a select projection; it defines the landing header"))
	} else {
		selectCols = len(strings.Split(sel, ","))
	}

	if len(ds.OutputHeader) == 0 {
		issues = append(issues, errIssue(base+".output_header", "must not be empty"))
	}
	if len(ds.KeyColumns) == 0 {
		issues = append(issues, errIssue(base+".key_columns", "at least one key column is required"))
	}
	for j, c := range ds.KeyColumns {
		if c < 1 || (selectCols > 0 && c > selectCols) {
			issues = append(issues, errIssue(fmt.Sprintf("%s.key_columns[%d]", base, j),
				fmt.Sprintf("column %d outside landing header (1..%d)", c, selectCols)))
		}
	}
	for j, c := range ds.RequiredColumns {
		if c < 1 || c > len(ds.OutputHeader) {
			issues = append(issues, errIssue(fmt.Sprintf("%s.required_columns[%d]", base, j),
				fmt.Sprintf("column %d outside output header (1..%d)", c, len(ds.OutputHeader))))
		}
	}
	if len(ds.RequiredColumns) == 0 {
		issues = append(issues, warnIssue(base+".required_columns", "empty; no row will be rejected for null values"))
	}
	return issues
}

func validateDuplicateNames(ds []Dataset) []Issue {
	var issues []Issue
	seen := make(map[string]int, len(ds))
	for i, d := range ds {
		if d.Name == "" {
			continue
		}
		if j, ok := seen[d.Name]; ok {
			issues = append(issues, errIssue(fmt.Sprintf("datasets[%d].name", i),
				fmt.Sprintf("duplicate dataset name %q (also datasets[%d])", d.Name, j)))
			continue
		}
		seen[d.Name] = i
	}
	return issues
}

func errIssue(path, msg string) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: msg}
}

func warnIssue(path, msg string) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: msg}
}
