package blocklist

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/mirrorctl/listctl/internal/digest"
)

const outputFileMode = 0644

// WriteOutput replaces the file at path with content.
//
// An existing file is removed first. The new content goes to a temporary
// file in the same directory which is synced and renamed into place.
func WriteOutput(path string, content []byte) (*digest.FileInfo, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		slog.Debug("removed previous output", "path", path)
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrap(err, "removing previous output")
	}

	fi, err := writeFileAtomic(path, content)
	if err != nil {
		return nil, errors.Wrap(err, "writing output")
	}
	return fi, nil
}

// writeFileAtomic writes content to path through a temporary file.
func writeFileAtomic(path string, content []byte) (*digest.FileInfo, error) {
	dir := filepath.Dir(path)
	tempfile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return nil, err
	}
	tempName := tempfile.Name()

	fi, err := digest.CopyWithFileInfo(tempfile, bytes.NewReader(content), path)
	if err != nil {
		closeAndRemoveFile(tempfile)
		return nil, err
	}
	if err := tempfile.Sync(); err != nil {
		closeAndRemoveFile(tempfile)
		return nil, errors.Wrap(err, "tempfile.Sync failed")
	}
	if err := tempfile.Chmod(outputFileMode); err != nil {
		closeAndRemoveFile(tempfile)
		return nil, errors.Wrap(err, "tempfile.Chmod failed")
	}
	if err := tempfile.Close(); err != nil {
		removeFile(tempName)
		return nil, err
	}

	if err := os.Rename(tempName, path); err != nil {
		removeFile(tempName)
		return nil, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := DirSync(absDir); err != nil {
		return nil, err
	}
	return fi, nil
}

// closeAndRemoveFile closes and removes a temporary file.
func closeAndRemoveFile(f *os.File) {
	filename := f.Name()
	if err := f.Close(); err != nil {
		slog.Warn("failed to close temp file", "file", filename, "error", err)
	}
	removeFile(filename)
}

func removeFile(filename string) {
	if err := os.Remove(filename); err != nil {
		slog.Warn("failed to remove temp file", "file", filename, "error", err)
	}
}
