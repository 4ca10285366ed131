package voice

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/klauspost/compress/zstd"
)

// CacheFileName is the voice cache blob inside a voice directory.
const CacheFileName = "voice_cache.bin"

const cacheVersion = 1

var (
	// ErrCacheMissing is returned by Load when no cache blob exists.
	ErrCacheMissing = errors.New("voice cache not found")
	// ErrCacheCorrupt is returned when the blob cannot be decoded.
	ErrCacheCorrupt = errors.New("voice cache is corrupt")
	// ErrCacheVersion is returned when the blob was written by another format version.
	ErrCacheVersion = errors.New("voice cache version mismatch")
)

type cacheBlob struct {
	Version int
	Samples []core.VoiceSample
}

// Cache is the conditioning cache of one voice directory. It is keyed only by
// its path; it is never invalidated automatically.
type Cache struct {
	path string
}

// NewCache returns the cache stored at <voiceDir>/voice_cache.bin.
func NewCache(voiceDir string) *Cache {
	return &Cache{path: filepath.Join(voiceDir, CacheFileName)}
}

// Path returns the blob location.
func (c *Cache) Path() string {
	return c.path
}

// Exists reports whether the blob is present.
func (c *Cache) Exists() bool {
	info, err := os.Stat(c.path)

	return err == nil && !info.IsDir()
}

// Save replaces the blob with samples.
func (c *Cache) Save(samples []core.VoiceSample) error {
	var raw bytes.Buffer

	err := gob.NewEncoder(&raw).Encode(cacheBlob{Version: cacheVersion, Samples: samples})
	if err != nil {
		return fmt.Errorf("failed to encode voice cache: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()

	compressed := encoder.EncodeAll(raw.Bytes(), nil)

	tmp := c.path + ".tmp"

	writeErr := os.WriteFile(tmp, compressed, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write voice cache: %w", writeErr)
	}

	renameErr := os.Rename(tmp, c.path)
	if renameErr != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to replace voice cache: %w", renameErr)
	}

	return nil
}

// Load reads the samples stored in the blob.
func (c *Cache) Load() ([]core.VoiceSample, error) {
	compressed, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMissing
		}

		return nil, fmt.Errorf("failed to read voice cache: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}

	var blob cacheBlob

	decodeErr := gob.NewDecoder(bytes.NewReader(raw)).Decode(&blob)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, decodeErr)
	}

	if blob.Version != cacheVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCacheVersion, blob.Version, cacheVersion)
	}

	return blob.Samples, nil
}

// Remove deletes the blob. A missing blob is not an error.
func (c *Cache) Remove() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove voice cache: %w", err)
	}

	return nil
}
