// Package fsmanager derives a binary's on-disk name from its release
// URI, writes downloaded bytes to disk with owner-only permissions, and
// removes a binary on replacement.
package fsmanager

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrClientNameDerivation is returned when a release URI has no usable
// final path segment to use as a binary name.
var ErrClientNameDerivation = errors.New("fsmanager: could not derive a binary name from uri")

// binaryMode is owner-only read/write/execute, no group/other access —
// the worker binary and its contents (it may hold secrets in memory,
// but never on disk beyond the binary itself) are not readable by other
// local users.
const binaryMode = 0700

// BinPath trims trailing slashes from uri, parses it, and takes the
// final non-empty path segment as the binary name. Returns the name and
// the resolved absolute-ish path under downloadDir.
func BinPath(downloadDir, uri string) (name string, path string, err error) {
	trimmed := strings.TrimRight(uri, "/")

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrClientNameDerivation, uri, err)
	}

	segments := strings.Split(parsed.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			name = segments[i]
			break
		}
	}
	if name == "" {
		return "", "", fmt.Errorf("%w: %s: no non-empty path segment", ErrClientNameDerivation, uri)
	}

	return name, filepath.Join(downloadDir, name), nil
}

// WriteBinary writes data to path with mode 0700, via a temp file in the
// same directory followed by an atomic rename, fsync'd before the
// rename so a crash mid-write never leaves a corrupt binary at path. If
// a file already exists at path it is overwritten.
func WriteBinary(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("fsmanager: failed to create download dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("fsmanager: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("fsmanager: failed to write binary: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsmanager: failed to fsync binary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsmanager: failed to close temp file: %w", err)
	}

	// Set the permission bit before the rename so the file is never
	// executable-but-incomplete at its final path.
	if err := os.Chmod(tmpPath, fs.FileMode(binaryMode)); err != nil {
		return fmt.Errorf("fsmanager: failed to chmod binary: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("fsmanager: failed to move binary to %q: %w", path, err)
	}

	ok = true
	return nil
}

// DeleteRelease removes the file at path. Callers wrap this in the
// retry harness — a missing file on unlink is a failure at this layer
// (it propagates up), and only the update loop's call site decides
// whether that failure is expected (e.g. NoDownloadedRelease at the
// state-machine level).
func DeleteRelease(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("fsmanager: failed to delete %q: %w", path, err)
	}
	return nil
}
