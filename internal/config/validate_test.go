package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validDataset() Dataset {
	return Dataset{
		Name:            "empl_vol",
		URL:             "http://example.test/NM_17_5.data.csv?geography=1&select=date_name,geography_code,geography_name,obs_value",
		File:            "Employment_16plus",
		Dir:             "employment_volume",
		OutputHeader:    []string{"Date", "Geocode", "Geography", "Value"},
		KeyColumns:      []int{1, 2},
		RequiredColumns: []int{1, 2},
		Transform:       "volume",
	}
}

func TestValidate_DefaultsAreClean(t *testing.T) {
	t.Parallel()

	issues := Validate(Defaults())
	if len(issues) != 0 {
		t.Fatalf("expected no issues for defaults, got %+v", issues)
	}
}

func TestValidate_BucketRequiredByFlags(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Run.UploadLanding = true

	issues := Validate(cfg)
	if !hasIssue(t, issues, SeverityError, "bucket.kind", "blob store is required") {
		t.Fatalf("expected bucket.kind error; got %+v", issues)
	}

	cfg.Bucket.Kind = "s3"
	issues = Validate(cfg)
	if !hasIssue(t, issues, SeverityError, "bucket.name", "must not be empty") {
		t.Fatalf("expected bucket.name error; got %+v", issues)
	}

	cfg.Bucket.Name = "ops-mi"
	if issues := Validate(cfg); HasErrors(issues) {
		t.Fatalf("unexpected errors: %+v", issues)
	}
}

func TestValidate_BucketKinds(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Bucket.Kind = "minio"
	cfg.Bucket.Name = "b"
	if !hasIssue(t, Validate(cfg), SeverityError, "bucket.endpoint", "kind=minio") {
		t.Fatalf("expected minio endpoint error")
	}

	cfg.Bucket.Kind = "local"
	if !hasIssue(t, Validate(cfg), SeverityError, "bucket.root", "kind=local") {
		t.Fatalf("expected local root error")
	}

	cfg.Bucket.Kind = "gcs"
	if !hasIssue(t, Validate(cfg), SeverityError, "bucket.kind", "unsupported kind") {
		t.Fatalf("expected unsupported kind error")
	}
}

func TestValidate_RunAndDownload(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Run.Quarters = 0
	cfg.Run.VerifyGeocodes = true
	cfg.Bucket.Kind = "local"
	cfg.Bucket.Root = "/tmp/b"
	cfg.Download.Workers = 0
	cfg.Download.MaxPartitionSize = -1

	issues := Validate(cfg)
	if !hasIssue(t, issues, SeverityError, "run.quarters", ">= 1") {
		t.Fatalf("expected quarters error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "run.verify_geocodes", "process_landing") {
		t.Fatalf("expected verify_geocodes warning; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "download.workers", "> 0") {
		t.Fatalf("expected workers error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "download.max_partition_size", "> 0") {
		t.Fatalf("expected partition size error; got %+v", issues)
	}
}

func TestValidate_LoggingMetricsStorage(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Logging.Level = "trace"
	cfg.Logging.Format = "xml"
	cfg.Metrics.Backend = "graphite"
	cfg.Storage.Kind = "postgres"

	issues := Validate(cfg)
	if !hasIssue(t, issues, SeverityError, "logging.level", "invalid level") {
		t.Fatalf("expected logging.level error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "logging.format", "invalid format") {
		t.Fatalf("expected logging.format error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "metrics.backend", "unknown backend") {
		t.Fatalf("expected metrics warning; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "storage.dsn", "must not be empty") {
		t.Fatalf("expected storage.dsn error; got %+v", issues)
	}
}

func TestValidate_Datasets(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	good := validDataset()
	bad := validDataset()
	bad.URL = "http://example.test/NM_17_5.data.csv?geography=1"
	bad.KeyColumns = []int{0}
	bad.RequiredColumns = []int{1, 9}
	dup := validDataset()

	cfg.Datasets = []Dataset{good, bad, dup}
	issues := Validate(cfg)

	if !hasIssue(t, issues, SeverityError, "datasets[1].url", "select projection") {
		t.Fatalf("expected select error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "datasets[1].key_columns[0]", "outside landing header") {
		t.Fatalf("expected key column error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "datasets[1].required_columns[1]", "outside output header") {
		t.Fatalf("expected required column error; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "datasets[2].name", "duplicate dataset name") {
		t.Fatalf("expected duplicate name error; got %+v", issues)
	}
	for _, iss := range issues {
		if strings.HasPrefix(iss.Path, "datasets[0]") {
			t.Fatalf("unexpected issue on valid dataset: %+v", iss)
		}
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "bucket.name", Message: "must not be empty"}
	if got, want := iss.Error(), "error at bucket.name: must not be empty"; got != want {
		t.Fatalf("Error()=%q; want %q", got, want)
	}
}
