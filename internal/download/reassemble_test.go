package download

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeParts(t *testing.T, dir string, bodies ...string) []string {
	t.Helper()
	paths := make([]string, len(bodies))
	for i, b := range bodies {
		paths[i] = filepath.Join(dir, "landing_X_part_"+itoa(i+1)+".csv")
		if b == "<missing>" {
			continue
		}
		if err := os.WriteFile(paths[i], []byte(b), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return paths
}

func TestReassemble_OrderAndHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := writeParts(t, dir,
		"H1,H2\na,1\nb,2\n",
		"H1,H2\nc,3\n",
		"H1,H2\nd,4", // no trailing newline
	)
	dst := filepath.Join(dir, "landing_X.csv")

	missing, err := Reassemble(dst, paths)
	if err != nil || len(missing) != 0 {
		t.Fatalf("Reassemble: missing=%v err=%v", missing, err)
	}
	got, _ := os.ReadFile(dst)
	if want := "H1,H2\na,1\nb,2\nc,3\nd,4"; string(got) != want {
		t.Fatalf("content=%q; want %q", got, want)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("part %s should be deleted", p)
		}
	}
}

func TestReassemble_MissingNewlineBetweenParts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := writeParts(t, dir, "H\nx", "H\ny\n")
	dst := filepath.Join(dir, "out.csv")
	if _, err := Reassemble(dst, paths); err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "H\nx\ny\n" {
		t.Fatalf("content=%q", got)
	}
}

func TestReassemble_SkipsMissingParts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := writeParts(t, dir, "H\n1\n", "<missing>", "H\n3\n")
	dst := filepath.Join(dir, "out.csv")

	missing, err := Reassemble(dst, paths)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if !reflect.DeepEqual(missing, []int{1}) {
		t.Fatalf("missing=%v; want [1]", missing)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "H\n1\n3\n" {
		t.Fatalf("content=%q", got)
	}
}

func TestReassemble_FirstPartMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := writeParts(t, dir, "<missing>", "H\n2\n", "H\n3\n")
	dst := filepath.Join(dir, "out.csv")

	missing, err := Reassemble(dst, paths)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if !reflect.DeepEqual(missing, []int{0}) {
		t.Fatalf("missing=%v; want [0]", missing)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "H\n2\n3\n" {
		t.Fatalf("content=%q; want header from the second part", got)
	}
}
