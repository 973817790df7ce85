package etl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"kpietl/internal/blob"
	"kpietl/internal/blob/local"
	"kpietl/internal/config"
	"kpietl/internal/dataset"
	"kpietl/internal/datasource/httpds"
	"kpietl/internal/logger"
	"kpietl/internal/storage"
)

var serviceRows = []string{
	"Jan 2019-Dec 2019,K02000001,United Kingdom,32000",
	"Jan 2019-Dec 2019,E92000001,England,27000",
	"Jan 2019-Dec 2019,E92000001,England,27000",
	"Jan 2019-Dec 2019,W92000004,Wales,1400",
}

// nomisStub serves the count and paged data variants of one dataset.
func nomisStub(t *testing.T, fail bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		q := r.URL.Query()
		if q.Get("select") == "record_count" {
			fmt.Fprintf(w, "%d\n", len(serviceRows))
			return
		}
		offset, limit := 0, len(serviceRows)
		if v := q.Get("RecordOffset"); v != "" {
			offset, _ = strconv.Atoi(v)
		}
		if v := q.Get("RecordLimit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		fmt.Fprint(w, "DATE_NAME,GEOGRAPHY_CODE,GEOGRAPHY_NAME,OBS_VALUE\n")
		for i := offset; i < len(serviceRows) && i < offset+limit; i++ {
			fmt.Fprintln(w, serviceRows[i])
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	cfg   config.Config
	store *local.Store
	ds    []dataset.Descriptor
	log   *logger.Logger
	srv   *httptest.Server
}

func newFixture(t *testing.T, fail bool) *fixture {
	t.Helper()
	root := t.TempDir()
	srv := nomisStub(t, fail)

	cfg := config.Defaults()
	cfg.Dirs = config.DirsConfig{
		Landing: filepath.Join(root, "landing"),
		Valid:   filepath.Join(root, "valid"),
		Error:   filepath.Join(root, "error"),
	}
	cfg.Download.MaxPartitionSize = 3
	cfg.Download.Workers = 2
	cfg.Bucket.Kind = "local"
	cfg.Bucket.Name = "ops"
	cfg.Run.ProcessLanding = true
	cfg.Run.UploadLanding = true
	cfg.Run.UploadValid = true
	cfg.Datasets = []config.Dataset{{
		Name:            "empl_vol",
		URL:             "{base_url}/NM_17_5.data.csv?geography=2092957697&date={interval}&select=date_name,geography_code,geography_name,obs_value",
		File:            "empl_vol",
		Dir:             "empl",
		OutputHeader:    []string{"Date", "Geocode", "Geography", "Value"},
		KeyColumns:      []int{1, 2},
		RequiredColumns: []int{1, 2, 4},
		Transform:       "volume",
	}}
	cfg.API.BaseURL = srv.URL

	ds, err := dataset.Build(cfg)
	if err != nil {
		t.Fatalf("dataset.Build: %v", err)
	}
	store, err := local.New(filepath.Join(root, "bucket"))
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	if err := PrepareDirs(cfg.Dirs); err != nil {
		t.Fatalf("PrepareDirs: %v", err)
	}
	log, err := logger.New(logger.Config{
		Level:    "error",
		Format:   "json",
		ErrorLog: ErrorLogPath(cfg.Dirs.Error, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })

	return &fixture{cfg: cfg, store: store, ds: ds, log: log, srv: srv}
}

func (f *fixture) runner() *Runner {
	return &Runner{
		Config:   f.cfg,
		Datasets: f.ds,
		Client:   httpds.NewClient(httpds.Config{Timeout: 5 * time.Second}),
		Store:    f.store,
		Log:      f.log,
		Job:      "test",
	}
}

func (f *fixture) keys(t *testing.T, prefix string) []string {
	t.Helper()
	keys, err := f.store.List(context.Background(), prefix)
	if err != nil {
		t.Fatalf("List %s: %v", prefix, err)
	}
	return keys
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	out, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.OK || out.Message() != "ETL completed successfully" {
		t.Fatalf("outcome=%+v", out)
	}
	if len(out.Downloads) != 1 || out.Downloads[0].Parts != 2 {
		t.Fatalf("downloads=%+v; want 2 partitions", out.Downloads)
	}
	if len(out.Summaries) != 1 {
		t.Fatalf("summaries=%d", len(out.Summaries))
	}
	s := out.Summaries[0]
	if s.Total != 4 || s.Accepted != 3 || s.Duplicate != 1 || s.Invalid != 0 {
		t.Fatalf("summary=%+v", s)
	}

	if got := f.keys(t, "landing/"); len(got) != 1 || got[0] != "landing/empl/landing_empl_vol.csv" {
		t.Fatalf("landing keys=%v", got)
	}
	if got := f.keys(t, "valid/"); len(got) != 1 || got[0] != "valid/empl/valid_empl_vol.csv" {
		t.Fatalf("valid keys=%v", got)
	}
	if got := f.keys(t, "error/"); len(got) != 0 {
		t.Fatalf("error dir uploaded on success: %v", got)
	}

	b, err := os.ReadFile(filepath.Join(f.cfg.Dirs.Valid, "empl", "valid_empl_vol.csv"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(b)), "\n"); len(lines) != 4 {
		t.Fatalf("output lines=%d:\n%s", len(lines), b)
	}
}

func TestRun_CRLFOutput(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.cfg.Output.CRLF = true

	out, err := f.runner().Run(context.Background())
	if err != nil || !out.OK {
		t.Fatalf("Run: out=%+v err=%v", out, err)
	}
	b, err := os.ReadFile(filepath.Join(f.cfg.Dirs.Valid, "empl", "valid_empl_vol.csv"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if n := strings.Count(string(b), "\r\n"); n != 4 {
		t.Fatalf("CRLF records=%d; want 4:\n%q", n, b)
	}
}

func TestRun_ServiceDownReportsErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)

	out, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.OK {
		t.Fatalf("run with a failed probe reported success")
	}
	if want := "ETL completed with errors. Details logged in " + out.ErrorLog; out.Message() != want {
		t.Fatalf("message=%q", out.Message())
	}
	if filepath.Base(out.ErrorLog) != "2024_03_01__09_30_00.log" {
		t.Fatalf("error log=%s", out.ErrorLog)
	}
	if got := f.keys(t, "error/"); len(got) != 1 || got[0] != "error/2024_03_01__09_30_00.log" {
		t.Fatalf("error keys=%v", got)
	}
	if len(out.Summaries) != 0 {
		t.Fatalf("summaries=%v; want none", out.Summaries)
	}
}

func TestRun_FromBucketWithGeocodes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true) // the service must not be needed
	ctx := context.Background()

	seed := t.TempDir()
	landingFile := filepath.Join(seed, "landing.csv")
	body := "DATE_NAME,GEOGRAPHY_CODE,GEOGRAPHY_NAME,OBS_VALUE\n" + strings.Join(serviceRows, "\n") + "\n"
	if err := os.WriteFile(landingFile, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	master := filepath.Join(seed, "all.csv")
	mapping := "LocalAuthority_Code,LocalAuthority,County_code,County,Region_Code,Region,National3_Code,National3,National2_Code,National2,National1_Code,National1\n" +
		"E06000001,Hartlepool,,,E12000001,North East,E92000001,England,,,K02000001,United Kingdom\n"
	if err := os.WriteFile(master, []byte(mapping), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Put(ctx, "landing/empl/landing_empl_vol.csv", landingFile); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Put(ctx, "valid/master_mapping/all/all.csv", master); err != nil {
		t.Fatal(err)
	}

	r := f.runner()
	r.Config.Run.DownloadLandingFromBucket = true
	r.Config.Run.UploadLanding = false
	r.Config.Run.VerifyGeocodes = true

	out, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Downloads) != 0 {
		t.Fatalf("API download ran in bucket mode")
	}
	s := out.Summaries[0]
	if s.Accepted != 2 || s.Duplicate != 1 || s.Invalid != 1 {
		t.Fatalf("summary=%+v; want Wales rejected by geocode check", s)
	}
	// Invalid records raise the attention error, so the run reports errors.
	if out.OK {
		t.Fatalf("outcome OK despite invalid records")
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Dirs.Valid, GeoMasterFile)); err != nil {
		t.Fatalf("geo master not downloaded: %v", err)
	}
}

func TestRun_BucketPhasesWithoutStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	r := f.runner()
	r.Store = nil
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected error when bucket phases have no store")
	}
}

// memRepo records rows handed to the warehouse.
type memRepo struct {
	mu     sync.Mutex
	rows   [][]any
	closed bool
}

func (m *memRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return int64(len(rows)), nil
}
func (m *memRepo) Exec(ctx context.Context, sql string) error { return nil }
func (m *memRepo) Close()                                     { m.closed = true }

// Not parallel: swaps openRepository.
func TestRun_WarehouseSink(t *testing.T) {
	f := newFixture(t, false)

	orig := openRepository
	defer func() { openRepository = orig }()
	repo := &memRepo{}
	var gotCfg storage.Config
	openRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		gotCfg = cfg
		return repo, nil
	}

	r := f.runner()
	r.Config.Storage = config.StorageConfig{Kind: "mem", TablePrefix: "kpi_", BatchSize: 2}
	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.OK {
		t.Fatalf("outcome not OK")
	}
	if gotCfg.Table != "kpi_empl_vol" || strings.Join(gotCfg.Columns, ",") != "date,geocode,geography,value" {
		t.Fatalf("storage config=%+v", gotCfg)
	}
	if len(repo.rows) != 3 || !repo.closed {
		t.Fatalf("rows=%d closed=%v", len(repo.rows), repo.closed)
	}
	if _, ok := repo.rows[0][0].(time.Time); !ok {
		t.Fatalf("warehouse date is %T; want time.Time", repo.rows[0][0])
	}
}

// Not parallel: swaps openRepository.
func TestRun_WarehouseUnavailable(t *testing.T) {
	f := newFixture(t, false)

	orig := openRepository
	defer func() { openRepository = orig }()
	openRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return nil, errors.New("connection refused")
	}

	r := f.runner()
	r.Config.Storage = config.StorageConfig{Kind: "mem"}
	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.OK {
		t.Fatalf("warehouse failure not reflected in the error log")
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Dirs.Valid, "empl", "valid_empl_vol.csv")); err != nil {
		t.Fatalf("CSV output missing after warehouse failure: %v", err)
	}
}

func TestPrepareDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	d := config.DirsConfig{
		Landing: filepath.Join(root, "l"),
		Valid:   filepath.Join(root, "v"),
		Error:   filepath.Join(root, "e"),
	}
	stale := filepath.Join(d.Landing, "old.csv")
	keep := filepath.Join(d.Valid, "keep.csv")
	for _, p := range []string{stale, keep} {
		if err := os.MkdirAll(filepath.Dir(p), 0o777); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := PrepareDirs(d); err != nil {
		t.Fatalf("PrepareDirs: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("landing not recreated")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("valid dir cleared before processing: %v", err)
	}
	if fi, err := os.Stat(d.Error); err != nil || !fi.IsDir() {
		t.Fatalf("error dir missing: %v", err)
	}
}

func TestErrorLogPath(t *testing.T) {
	t.Parallel()
	got := ErrorLogPath("/var/error", time.Date(2023, 11, 5, 7, 8, 9, 0, time.UTC))
	if got != filepath.Join("/var/error", "2023_11_05__07_08_09.log") {
		t.Fatalf("ErrorLogPath=%s", got)
	}
	if NewRunID() == NewRunID() {
		t.Fatalf("run ids repeat")
	}
}

var _ blob.Store = (*local.Store)(nil)
