// Command kpietl downloads the configured statistical datasets, validates
// and deduplicates them, and writes one canonical CSV per dataset.
//
//	kpietl -config run.yaml            run the enabled phases
//	kpietl -config run.yaml -validate  check the configuration and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kpietl/internal/blob"
	"kpietl/internal/config"
	"kpietl/internal/dataset"
	"kpietl/internal/datasource/httpds"
	"kpietl/internal/etl"
	"kpietl/internal/logger"
	"kpietl/internal/metrics"
	"kpietl/internal/metrics/datadog"
	"kpietl/internal/metrics/prompush"

	// Register every blob and warehouse backend; the config picks one.
	_ "kpietl/internal/blob/all"
	_ "kpietl/internal/storage/all"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kpietl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath        string
		metricsBackend string
		validate       bool
		verbose        bool
	)
	fs.StringVar(&cfgPath, "config", "", "run config (YAML or JSON); empty uses defaults plus KPIETL_* env")
	fs.StringVar(&metricsBackend, "metrics-backend", "", "override metrics.backend (none, pushgateway, datadog)")
	fs.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if metricsBackend != "" {
		cfg.Metrics.Backend = metricsBackend
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "Configuration is invalid: %s\n", cfgPath)
		return 1
	}
	datasets, err := dataset.Build(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if validate {
		fmt.Fprintf(stdout, "Configuration is valid: %s (%d datasets)\n", cfgPath, len(datasets))
		return 0
	}

	start := time.Now()
	if err := etl.PrepareDirs(cfg.Dirs); err != nil {
		fmt.Fprintf(stderr, "working directories: %v\n", err)
		return 1
	}
	base, err := logger.New(logger.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		ErrorLog: etl.ErrorLogPath(cfg.Dirs.Error, start),
	})
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer base.Close()

	runID := etl.NewRunID()
	log := base.WithRunID(runID)

	job := cfg.Metrics.Job
	if job == "" {
		job = "kpietl"
	}
	if b := newMetricsBackend(cfg.Metrics, job, runID, log); b != nil {
		metrics.SetBackend(b)
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics: flush failed", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store blob.Store
	if cfg.Run.NeedsBucket() {
		store, err = blob.New(ctx, blob.Config{
			Kind:         cfg.Bucket.Kind,
			Bucket:       cfg.Bucket.Name,
			Region:       cfg.Bucket.Region,
			Endpoint:     cfg.Bucket.Endpoint,
			AccessKey:    cfg.Bucket.AccessKey,
			SecretKey:    cfg.Bucket.SecretKey,
			SessionToken: cfg.Bucket.SessionToken,
			RoleARN:      cfg.Bucket.RoleARN,
			ExternalID:   cfg.Bucket.ExternalID,
			UsePathStyle: cfg.Bucket.UsePathStyle,
			Secure:       cfg.Bucket.Secure,
			Root:         cfg.Bucket.Root,
		})
		if err != nil {
			log.Error("could not open bucket", zap.String("kind", cfg.Bucket.Kind), zap.Error(err))
			return 1
		}
	}

	client := httpds.NewClient(httpds.Config{
		Timeout:            cfg.API.Timeout,
		MaxRetries:         cfg.API.MaxRetries,
		RequestsPerSecond:  cfg.API.RequestsPerSecond,
		Burst:              cfg.API.Burst,
		InsecureSkipVerify: cfg.API.InsecureSkipVerify,
	})

	r := &etl.Runner{
		Config:   cfg,
		Datasets: datasets,
		Client:   client,
		Store:    store,
		Log:      log,
		Job:      job,
	}
	out, err := r.Run(ctx)
	if err != nil {
		log.Error("run aborted", zap.Error(err))
		fmt.Fprintln(stderr, err)
		return 1
	}
	log.Debug("run finished", zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	fmt.Fprintln(stdout, out.Message())
	return 0
}

// newMetricsBackend builds the configured backend, or nil when metrics are
// off or the backend cannot start.
func newMetricsBackend(m config.MetricsConfig, job, runID string, log *logger.Logger) metrics.Backend {
	switch m.Backend {
	case "pushgateway":
		url := m.PushgatewayURL
		if url == "" {
			url = os.Getenv("PUSHGATEWAY_URL")
		}
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; metrics disabled", zap.Error(err))
			return nil
		}
		log.Info("metrics: pushgateway", zap.String("url", url), zap.String("job", job))
		return b.WithRunID(runID)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  m.Namespace,
			GlobalTags: append([]string{"job:" + job}, m.Tags...),
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; metrics disabled", zap.Error(err))
			return nil
		}
		log.Info("metrics: datadog", zap.String("addr", m.DatadogAddr))
		return b

	case "", "none":
		return nil

	default:
		log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", m.Backend))
		return nil
	}
}
