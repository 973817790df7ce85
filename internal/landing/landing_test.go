package landing

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"kpietl/internal/dataset"
	"kpietl/internal/logger"
	"kpietl/internal/workpool"
)

var hdr = []string{"DATE_NAME", "GEOGRAPHY_CODE", "OBS_VALUE"}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestValidate_HeaderSetEquality(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := write(t, dir, "a.csv", "OBS_VALUE,DATE_NAME,GEOGRAPHY_CODE\n1,Jan 2019-Dec 2019,K\n")
	rep, err := Validate(p, hdr)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rep.Rows != 1 || len(rep.Fingerprint) != 16 {
		t.Fatalf("report=%+v", rep)
	}
	fp, err := Fingerprint(p)
	if err != nil || fp != rep.Fingerprint {
		t.Fatalf("Fingerprint=%q err=%v; want %q", fp, err, rep.Fingerprint)
	}

	p = write(t, dir, "b.csv", "DATE_NAME,GEOGRAPHY_CODE,VALUE\n1,2,3\n")
	_, err = Validate(p, hdr)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.File != "b.csv" || !strings.Contains(ve.Msg, "OBS_VALUE") {
		t.Fatalf("err=%v; want header ValidationError", err)
	}
}

func TestValidate_EmptyFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var ve *ValidationError

	p := write(t, dir, "header_only.csv", "DATE_NAME,GEOGRAPHY_CODE,OBS_VALUE\n")
	if _, err := Validate(p, hdr); !errors.As(err, &ve) || ve.Msg != "file has no rows" {
		t.Fatalf("err=%v; want no rows", err)
	}

	p = write(t, dir, "zero.csv", "")
	if _, err := Validate(p, hdr); !errors.As(err, &ve) {
		t.Fatalf("err=%v; want ValidationError", err)
	}

	if _, err := Validate(filepath.Join(dir, "missing.csv"), hdr); !errors.As(err, &ve) {
		t.Fatalf("err=%v; want ValidationError", err)
	}
}

func TestFiles_NaturalOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, n := range []string{"landing_X_part_10.csv", "landing_X_part_2.csv", "landing_X_part_1.csv", "other.txt"} {
		write(t, dir, n, "x\n")
	}
	files, err := Files(dir, "landing_X", ".csv")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	var got []string
	for _, f := range files {
		got = append(got, filepath.Base(f))
	}
	want := []string{"landing_X_part_1.csv", "landing_X_part_2.csv", "landing_X_part_10.csv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order=%v; want %v", got, want)
	}

	if files, err := Files(filepath.Join(dir, "nope"), "", ""); err != nil || files != nil {
		t.Fatalf("missing dir: files=%v err=%v", files, err)
	}
}

func TestNaturalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want []string
	}{
		{
			in:   []string{"f_2021_10.csv", "f_2021_9.csv", "f_2020_12.csv"},
			want: []string{"f_2020_12.csv", "f_2021_9.csv", "f_2021_10.csv"},
		},
		{
			in:   []string{"landing_X_part_1.csv", "landing_X.csv"},
			want: []string{"landing_X.csv", "landing_X_part_1.csv"},
		},
		{
			in:   []string{"a_3.csv", "b_1.csv", "B_2.csv"},
			want: []string{"B_2.csv", "a_3.csv", "b_1.csv"},
		},
		{
			in:   []string{"p_10.csv", "p_2.csv", "p_1.csv", "p_02x.csv"},
			want: []string{"p_1.csv", "p_2.csv", "p_02x.csv", "p_10.csv"},
		},
		{
			in:   []string{"!a.csv", "10.csv", "9.csv"},
			want: []string{"9.csv", "10.csv", "!a.csv"},
		},
	}
	for _, tt := range tests {
		got := append([]string(nil), tt.in...)
		NaturalSort(got)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("NaturalSort(%v)=%v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidator_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := write(t, dir, filepath.Join("good", "landing_G.csv"), "DATE_NAME,GEOGRAPHY_CODE,OBS_VALUE\na,b,1\n")
	write(t, dir, filepath.Join("bad", "landing_B.csv"), "DATE_NAME\n")

	ds := []dataset.Descriptor{
		{Name: "good", Dir: "good", LandingFile: "landing_G.csv", LandingHeader: hdr},
		{Name: "bad", Dir: "bad", LandingFile: "landing_B.csv", LandingHeader: hdr},
		{Name: "absent", Dir: "absent", LandingFile: "landing_A.csv", LandingHeader: hdr},
	}
	v := &Validator{Pool: workpool.New(2), LandingDir: dir, Log: logger.NewNop(), Job: "test"}
	reports := v.Run(ds)
	if len(reports) != 1 {
		t.Fatalf("reports=%v; want only the good file", reports)
	}
	if rep, ok := reports[good]; !ok || rep.Rows != 1 {
		t.Fatalf("good report=%+v ok=%v", rep, ok)
	}
}
