// Package digest computes size and checksum metadata for files produced by listctl.
package digest

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Checksums holds the checksum values of a file.
// A nil value means the checksum was not calculated.
type Checksums struct {
	SHA256 []byte
	SHA512 []byte
}

// FileInfo is a set of meta data of a file.
type FileInfo struct {
	path      string
	size      uint64
	checksums Checksums
}

// Same returns true if t has the same path, size and checksum values.
func (fi *FileInfo) Same(t *FileInfo) bool {
	if fi == t {
		return true
	}
	if fi == nil || t == nil {
		return false
	}
	if fi.path != t.path {
		return false
	}
	if fi.size != t.size {
		return false
	}
	if fi.checksums.SHA256 != nil && !bytes.Equal(fi.checksums.SHA256, t.checksums.SHA256) {
		return false
	}
	if fi.checksums.SHA512 != nil && !bytes.Equal(fi.checksums.SHA512, t.checksums.SHA512) {
		return false
	}
	return true
}

// Path returns the path the file was written to.
func (fi *FileInfo) Path() string {
	return fi.path
}

// Size returns the number of bytes of the file body.
func (fi *FileInfo) Size() uint64 {
	return fi.size
}

// SHA256Sum returns the hex encoded SHA-256 checksum, or "" if not calculated.
func (fi *FileInfo) SHA256Sum() string {
	if fi.checksums.SHA256 == nil {
		return ""
	}
	return hex.EncodeToString(fi.checksums.SHA256)
}

// SHA512Sum returns the hex encoded SHA-512 checksum, or "" if not calculated.
func (fi *FileInfo) SHA512Sum() string {
	if fi.checksums.SHA512 == nil {
		return ""
	}
	return hex.EncodeToString(fi.checksums.SHA512)
}

// SumLine returns the SHA-256 checksum line in sha256sum(1) format.
func (fi *FileInfo) SumLine() string {
	return fi.SHA256Sum() + "  " + filepath.Base(fi.path) + "\n"
}

type fileInfoJSON struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	SHA256Sum string `json:"sha256,omitempty"`
	SHA512Sum string `json:"sha512,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (fi *FileInfo) MarshalJSON() ([]byte, error) {
	var fij fileInfoJSON
	fij.Path = fi.path
	if fi.size > math.MaxInt64 {
		return nil, errors.Newf("file size %d exceeds maximum int64 value", fi.size)
	}
	fij.Size = int64(fi.size)
	fij.SHA256Sum = fi.SHA256Sum()
	fij.SHA512Sum = fi.SHA512Sum()
	return json.Marshal(&fij)
}

// UnmarshalJSON implements json.Unmarshaler
func (fi *FileInfo) UnmarshalJSON(data []byte) error {
	var fij fileInfoJSON
	if err := json.Unmarshal(data, &fij); err != nil {
		return err
	}
	fi.path = fij.Path
	if fij.Size < 0 {
		return errors.Newf("negative file size %d not allowed", fij.Size)
	}
	fi.size = uint64(fij.Size)
	if fij.SHA256Sum != "" {
		sum, err := hex.DecodeString(fij.SHA256Sum)
		if err != nil {
			return errors.Wrap(err, "UnmarshalJSON sha256 for "+fij.Path)
		}
		fi.checksums.SHA256 = sum
	}
	if fij.SHA512Sum != "" {
		sum, err := hex.DecodeString(fij.SHA512Sum)
		if err != nil {
			return errors.Wrap(err, "UnmarshalJSON sha512 for "+fij.Path)
		}
		fi.checksums.SHA512 = sum
	}
	return nil
}

// CopyWithFileInfo copies from src to dst until either EOF is reached
// on src or an error occurs, and returns FileInfo calculated while copying.
func CopyWithFileInfo(dst io.Writer, src io.Reader, p string) (*FileInfo, error) {
	sha256hash := sha256.New()
	sha512hash := sha512.New()

	w := io.MultiWriter(sha256hash, sha512hash, dst)
	n, err := io.Copy(w, src)
	if err != nil {
		return nil, err
	}

	return &FileInfo{
		path: p,
		size: uint64(n), // #nosec G115 - io.Copy returns int64, n >= 0
		checksums: Checksums{
			SHA256: sha256hash.Sum(nil),
			SHA512: sha512hash.Sum(nil),
		},
	}, nil
}
