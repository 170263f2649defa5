package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CacheManager is a file-based JSON cache keyed by the md5 of the request
// parameters. Quotes and headlines are slow-moving enough that a short TTL
// keeps repeated runs from hammering the upstreams.
type CacheManager struct {
	cacheDir string
	ttl      time.Duration
	enabled  bool
}

func NewCacheManager(cacheDir string, ttl time.Duration, enabled bool) *CacheManager {
	return &CacheManager{cacheDir: cacheDir, ttl: ttl, enabled: enabled}
}

func (cm *CacheManager) key(source, method string, params any) string {
	data, _ := json.Marshal(params)
	return fmt.Sprintf("%s_%s_%x.json", source, method, md5.Sum(data))
}

// Get loads a cached entry into result. Expired entries are removed.
func (cm *CacheManager) Get(source, method string, params, result any) bool {
	if !cm.enabled {
		return false
	}
	path := filepath.Join(cm.cacheDir, cm.key(source, method, params))
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > cm.ttl {
		os.Remove(path)
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

// Set stores an entry. Cache write failures are returned but callers treat
// them as advisory.
func (cm *CacheManager) Set(source, method string, params, data any) error {
	if !cm.enabled {
		return nil
	}
	if err := os.MkdirAll(cm.cacheDir, 0755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cm.cacheDir, cm.key(source, method, params)), payload, 0644)
}
