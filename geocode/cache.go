package geocode

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"photodb/types"
)

// cacheFileVersion is the persisted cache file format version.
const cacheFileVersion = 1

// Cache maps quantized coordinate keys to resolved place descriptions.
// Quantization collapses GPS jitter from the same real-world location into
// one key; without it float noise would defeat caching entirely.
type Cache struct {
	mu        sync.Mutex
	precision int
	entries   map[string]string
}

// NewCache creates an empty cache quantizing to the given number of
// decimal places. Four decimals is roughly building-scale (~11 m).
func NewCache(precision int) *Cache {
	return &Cache{
		precision: precision,
		entries:   make(map[string]string),
	}
}

// Key quantizes a coordinate pair into its cache key.
func (c *Cache) Key(coords types.Coordinates) string {
	lat := quantize(coords.Latitude, c.precision)
	lon := quantize(coords.Longitude, c.precision)
	return fmt.Sprintf("%.*f,%.*f", c.precision, lat, c.precision, lon)
}

// quantize rounds to the cache precision and folds negative zero into
// plain zero, so jitter straddling the equator or the prime meridian
// still lands on a single key.
func quantize(v float64, precision int) float64 {
	scale := math.Pow10(precision)
	q := math.Round(v*scale) / scale
	if q == 0 {
		return 0
	}
	return q
}

// Get returns the cached place for a key.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	place, ok := c.entries[key]
	return place, ok
}

// Put stores a resolved place. Only successful resolutions are stored;
// failures must stay uncached so a later run can retry them.
func (c *Cache) Put(key, place string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = place
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type cacheState struct {
	Version   int               `json:"version"`
	Precision int               `json:"precision"`
	Entries   map[string]string `json:"entries"`
}

// Load reads previously resolved entries from the cache file so quota
// savings survive process restarts. A missing file yields an empty cache.
// Entries saved under a different precision are discarded: they live in a
// different key space.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var state cacheState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse geocode cache file: %v", err)
	}
	if state.Version != cacheFileVersion || state.Precision != c.precision {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, place := range state.Entries {
		c.entries[key] = place
	}
	return nil
}

// Save atomically writes the cache to disk: temp file, then rename.
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	state := cacheState{
		Version:   cacheFileVersion,
		Precision: c.precision,
		Entries:   make(map[string]string, len(c.entries)),
	}
	for key, place := range c.entries {
		state.Entries[key] = place
	}
	c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %v", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal geocode cache: %v", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write geocode cache: %v", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace geocode cache: %v", err)
	}
	return nil
}
