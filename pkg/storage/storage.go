// Package storage reads toolpath files and writes them back atomically.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/pool"
)

// maxLineLength bounds a single line. Slicer output stays far below this,
// but embedded thumbnails can produce long comment lines.
const maxLineLength = 1 << 20

// ReadLines splits r into lines. Line terminators, including a CR before
// LF, are removed.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineLength)

	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// LoadLines reads the file at path.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.StorageError("open", path, err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, errors.StorageError("read", path, err)
	}
	return lines, nil
}

// WriteOptions controls WriteAtomic.
type WriteOptions struct {
	// Backup copies an existing file to <name>-YYYYMMDD_HHMMSS<ext> first.
	Backup bool

	// Now overrides the clock used for backup names.
	Now func() time.Time
}

// WriteResult reports what WriteAtomic did.
type WriteResult struct {
	Path       string
	BackupPath string // empty when no backup was taken
	Bytes      int
}

// WriteAtomic replaces path with lines, each terminated by a newline. The
// content goes to a temporary file in the same directory which is synced
// and renamed over path, so readers see either the old or the new file.
// An existing file keeps its permission bits.
func WriteAtomic(path string, lines []string, opts WriteOptions) (*WriteResult, error) {
	dir := filepath.Dir(path)

	unlock, err := lockDir(dir)
	if err != nil {
		return nil, errors.StorageError("lock", dir, err)
	}
	defer unlock()

	res := &WriteResult{Path: path}

	mode := os.FileMode(0o644)
	info, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		mode = info.Mode().Perm()
		if opts.Backup {
			res.BackupPath, err = backup(path, mode, opts.now())
			if err != nil {
				return nil, errors.StorageError("backup", path, err)
			}
		}
	case !os.IsNotExist(statErr):
		return nil, errors.StorageError("stat", path, statErr)
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	res.Bytes = buf.Len()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return nil, errors.StorageError("create temp", dir, err)
	}
	tmpPath := tmp.Name()
	fail := func(op string, err error) (*WriteResult, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, errors.StorageError(op, tmpPath, err)
	}

	if _, err := buf.WriteTo(tmp); err != nil {
		return fail("write", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, errors.StorageError("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, errors.StorageError("rename", path, err)
	}
	syncDir(dir)
	return res, nil
}

func (o WriteOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// BackupName returns the backup path for path taken at t:
// part.gcode -> part-20060102_150405.gcode.
func BackupName(path string, t time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-%s%s", base, t.Format("20060102_150405"), ext)
}

func backup(path string, mode os.FileMode, t time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	dst := BackupName(path, t)
	if err := os.WriteFile(dst, data, mode); err != nil {
		return "", err
	}
	return dst, nil
}

// syncDir makes the rename durable. Errors are ignored: not every
// filesystem supports syncing a directory.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}
