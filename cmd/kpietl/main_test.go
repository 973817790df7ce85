package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kpietl/internal/config"
	"kpietl/internal/logger"
	"kpietl/internal/metrics/datadog"
	"kpietl/internal/metrics/prompush"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRun_ValidateOnly(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "run:\n  quarters: 4\nlogging:\n  level: warn\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", p, "-validate"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "Configuration is valid: "+p) {
		t.Fatalf("stdout=%q", stdout.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "run:\n  quarters: 0\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", p, "-validate"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit=%d; want 1", code)
	}
	if !strings.Contains(stderr.String(), "run.quarters") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}

func TestRun_UnknownOnlyDataset(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "only:\n  - no_such_kpi\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", p, "-validate"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit=%d; want 1", code)
	}
}

func TestRun_BadFlag(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-nope"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit=%d; want 2", code)
	}
}

func TestNewMetricsBackend(t *testing.T) {
	t.Parallel()
	log := logger.NewNop()

	if b := newMetricsBackend(config.MetricsConfig{Backend: "none"}, "kpietl", "r", log); b != nil {
		t.Fatalf("none -> %T", b)
	}
	if b := newMetricsBackend(config.MetricsConfig{Backend: "graphite"}, "kpietl", "r", log); b != nil {
		t.Fatalf("unknown -> %T", b)
	}
	b := newMetricsBackend(config.MetricsConfig{Backend: "pushgateway", PushgatewayURL: "http://127.0.0.1:9091"}, "kpietl", "r", log)
	if _, ok := b.(*prompush.Backend); !ok {
		t.Fatalf("pushgateway -> %T", b)
	}
	d := newMetricsBackend(config.MetricsConfig{Backend: "datadog", DatadogAddr: "127.0.0.1:8125"}, "kpietl", "r", log)
	if _, ok := d.(*datadog.Backend); !ok {
		t.Fatalf("datadog -> %T", d)
	}
	_ = d.Flush()
	if b := newMetricsBackend(config.MetricsConfig{Backend: "datadog"}, "kpietl", "r", log); b != nil {
		t.Fatalf("datadog without addr -> %T", b)
	}
}
