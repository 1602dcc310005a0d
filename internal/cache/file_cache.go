package cache

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/properties"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const entryVersion = 2

// entry is the on-disk envelope. Data is kept raw so the checksum covers the
// exact bytes written.
type entry struct {
	Version  int             `json:"version"`
	StoredAt time.Time       `json:"stored_at"`
	Checksum string          `json:"sha256"`
	Data     json.RawMessage `json:"data"`
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	GenerateKey(params ...interface{}) string
}

type FileCache[T any] struct {
	cacheDir string
	maxAge   time.Duration
}

// NewFileCache stores entries under data/cache/<subDir>.
func NewFileCache[T any](subDir string) *FileCache[T] {
	return NewFileCacheAt[T](properties.DataPath("cache", subDir))
}

func NewFileCacheAt[T any](dir string) *FileCache[T] {
	return &FileCache[T]{cacheDir: dir}
}

// WithMaxAge makes entries older than maxAge miss. Zero keeps them forever.
func (fc *FileCache[T]) WithMaxAge(maxAge time.Duration) *FileCache[T] {
	fc.maxAge = maxAge
	return fc
}

func (fc *FileCache[T]) Dir() string {
	return fc.cacheDir
}

func (fc *FileCache[T]) GenerateKey(params ...interface{}) string {
	return generateKey(params...)
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.cacheDir, key+".json")
}

// Get misses on absent, stale or damaged entries. Damaged and outdated files
// are removed so the next Set starts clean.
func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	file := fc.path(key)

	raw, err := os.ReadFile(file)
	if err != nil {
		return zero, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Version != entryVersion || e.Checksum != checksum(e.Data) {
		logrus.WithField("file", file).Debug("discarding unreadable cache entry")
		os.Remove(file)
		return zero, false
	}
	if fc.maxAge > 0 && time.Since(e.StoredAt) > fc.maxAge {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(e.Data, &value); err != nil {
		os.Remove(file)
		return zero, false
	}
	return value, true
}

// Set writes through a temporary file so readers never see a partial entry.
func (fc *FileCache[T]) Set(key string, data T) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache value")
	}
	raw, err := json.Marshal(entry{
		Version:  entryVersion,
		StoredAt: time.Now().UTC(),
		Checksum: checksum(payload),
		Data:     payload,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache entry")
	}

	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}
	tmp, err := os.CreateTemp(fc.cacheDir, key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp cache file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write temp cache file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp cache file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), fc.path(key)), "failed to move cache file into place")
}

func checksum(data []byte) string {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return ""
	}
	sum := sha256.Sum256(compact.Bytes())
	return hex.EncodeToString(sum[:])
}

// Disabled never hits and drops writes.
type Disabled[T any] struct{}

func (Disabled[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}

func (Disabled[T]) Set(string, T) error { return nil }

func (Disabled[T]) GenerateKey(params ...interface{}) string {
	return generateKey(params...)
}

func generateKey(params ...interface{}) string {
	var keyData string
	for _, param := range params {
		keyData += fmt.Sprintf("%v_", param)
	}
	h := sha1.New()
	h.Write([]byte(keyData))
	return hex.EncodeToString(h.Sum(nil))
}
