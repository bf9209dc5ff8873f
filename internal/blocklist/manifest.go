package blocklist

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
)

const (
	manifestSuffix = ".json"
	checksumSuffix = ".sha256"
)

// ManifestPath returns the path of the manifest written next to output.
func ManifestPath(output string) string {
	return output + manifestSuffix
}

// ChecksumPath returns the path of the sha256sum file written next to output.
func ChecksumPath(output string) string {
	return output + checksumSuffix
}

// SaveManifest writes s as indented JSON to path.
func (s *Summary) SaveManifest(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "SaveManifest")
	}
	data = append(data, '\n')
	if _, err := writeFileAtomic(path, data); err != nil {
		return errors.Wrap(err, "SaveManifest: "+path)
	}
	return nil
}

// LoadManifest reads a manifest written by SaveManifest.
func LoadManifest(path string) (*Summary, error) {
	f, err := os.Open(path) // #nosec G304 - path derived from configured output
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := new(Summary)
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, errors.Wrap(err, "LoadManifest: "+path)
	}
	return s, nil
}

// outputUnchanged reports whether the manifest at path records the same
// output as s. A missing or unreadable manifest counts as changed.
func (s *Summary) outputUnchanged(path string) bool {
	prev, err := LoadManifest(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("ignoring previous manifest", "path", path, "error", err)
		}
		return false
	}
	return s.Output != nil && s.Output.Same(prev.Output)
}

// SaveChecksum writes the output checksum in sha256sum(1) format to path.
func (s *Summary) SaveChecksum(path string) error {
	if s.Output == nil || s.Output.SHA256Sum() == "" {
		return errors.New("no checksum for output")
	}
	if _, err := writeFileAtomic(path, []byte(s.Output.SumLine())); err != nil {
		return errors.Wrap(err, "SaveChecksum: "+path)
	}
	return nil
}
