package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gcode-inject/pkg/errors"
)

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("G28\r\n;LAYER_CHANGE\n\nG1 X1\n"))
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	want := []string{"G28", ";LAYER_CHANGE", "", "G1 X1"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %q, want %q", lines, want)
	}
}

func TestReadLinesNoTrailingNewline(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("a\nb"))
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if len(lines) != 2 || lines[1] != "b" {
		t.Errorf("got %q", lines)
	}
}

func TestLoadLinesMissing(t *testing.T) {
	_, err := LoadLines(filepath.Join(t.TempDir(), "missing.gcode"))
	if !errors.Is(err, errors.ErrStorage) {
		t.Fatalf("expected STORAGE error, got %v", err)
	}
	if !os.IsNotExist(cause(err)) {
		t.Errorf("cause should be not-exist, got %v", err)
	}
}

func cause(err error) error {
	if he, ok := err.(*errors.HostError); ok {
		return he.Err
	}
	return err
}

func TestWriteAtomicNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part.gcode")
	lines := []string{"G28", "G1 X1 E1"}

	res, err := WriteAtomic(path, lines, WriteOptions{Backup: true})
	if err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if res.BackupPath != "" {
		t.Errorf("no backup expected for a new file, got %s", res.BackupPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "G28\nG1 X1 E1\n" {
		t.Errorf("unexpected content %q", data)
	}
	if res.Bytes != len(data) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(data))
	}

	back, err := LoadLines(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, lines) {
		t.Errorf("round trip: got %q", back)
	}
}

func TestWriteAtomicReplaceKeepsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.gcode")
	if err := os.WriteFile(path, []byte("old\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := WriteAtomic(path, []string{"new"}, WriteOptions{}); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteAtomicBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.gcode")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	res, err := WriteAtomic(path, []string{"new"}, WriteOptions{
		Backup: true,
		Now:    func() time.Time { return stamp },
	})
	if err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	want := filepath.Join(dir, "part-20240305_140709.gcode")
	if res.BackupPath != want {
		t.Errorf("BackupPath = %s, want %s", res.BackupPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old\n" {
		t.Errorf("backup content %q", data)
	}
}

func TestWriteAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "part.gcode")
	if _, err := WriteAtomic(path, []string{"x"}, WriteOptions{}); !errors.Is(err, errors.ErrStorage) {
		t.Errorf("expected STORAGE error, got %v", err)
	}
}

func TestBackupName(t *testing.T) {
	stamp := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	if got := BackupName("/tmp/a.b/part", stamp); got != "/tmp/a.b/part-20060102_150405" {
		t.Errorf("got %s", got)
	}
}
