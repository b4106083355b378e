package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"rageval/internal/telemetry"
)

// CacheOptions selects which call classes are reused.
type CacheOptions struct {
	CacheUploads bool
	CacheAsks    bool
	// FreshSession bypasses both caches.
	FreshSession bool
	Metrics      *telemetry.Metrics
	Logger       *slog.Logger
}

type askKey struct {
	sessionID string
	question  string
}

// Cache reuses uploads and answers for the lifetime of one session.
// It is safe for concurrent use; concurrent callers for one key share a single backend call.
type Cache struct {
	backend Backend
	opts    CacheOptions
	logger  *slog.Logger

	mu      sync.RWMutex
	uploads map[string]string
	asks    map[askKey]Answer
	flights singleflight.Group
}

// NewCache wraps a backend with session-scoped caches.
func NewCache(backend Backend, opts CacheOptions) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		backend: backend,
		opts:    opts,
		logger:  logger,
		uploads: map[string]string{},
		asks:    map[askKey]Answer{},
	}
}

// FreshSession reports whether every question should get its own upload.
func (c *Cache) FreshSession() bool {
	return c.opts.FreshSession
}

// DocumentKey identifies a document by absolute path and content hash.
func DocumentKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve document %q: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("open document %q: %w", path, err)
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash document %q: %w", path, err)
	}
	return abs + "#" + hex.EncodeToString(hash.Sum(nil)), nil
}

// EnsureUploaded returns a session id for the document, uploading at most once per key
// while upload caching is on.
func (c *Cache) EnsureUploaded(ctx context.Context, path string) (string, error) {
	if c.opts.FreshSession || !c.opts.CacheUploads {
		c.opts.Metrics.CacheLookup("upload", "bypass")
		return c.backend.Upload(ctx, path)
	}
	key, err := DocumentKey(path)
	if err != nil {
		return "", err
	}
	c.mu.RLock()
	sessionID, ok := c.uploads[key]
	c.mu.RUnlock()
	if ok {
		c.opts.Metrics.CacheLookup("upload", "hit")
		return sessionID, nil
	}
	c.opts.Metrics.CacheLookup("upload", "miss")

	value, err, _ := c.flights.Do("upload:"+key, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.uploads[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		sessionID, err := c.backend.Upload(ctx, path)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.uploads[key] = sessionID
		c.mu.Unlock()
		c.logger.Debug("document uploaded", "path", path, "session_id", sessionID)
		return sessionID, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// Ask returns the answer for (session, trimmed question), calling the backend at most
// once per key while ask caching is on.
func (c *Cache) Ask(ctx context.Context, sessionID, question string) (Answer, error) {
	if c.opts.FreshSession || !c.opts.CacheAsks {
		c.opts.Metrics.CacheLookup("ask", "bypass")
		return c.backend.Ask(ctx, sessionID, question)
	}
	key := askKey{sessionID: sessionID, question: strings.TrimSpace(question)}
	c.mu.RLock()
	answer, ok := c.asks[key]
	c.mu.RUnlock()
	if ok {
		c.opts.Metrics.CacheLookup("ask", "hit")
		return answer.clone(), nil
	}
	c.opts.Metrics.CacheLookup("ask", "miss")

	value, err, _ := c.flights.Do("ask:"+key.sessionID+"\x00"+key.question, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.asks[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		answer, err := c.backend.Ask(ctx, sessionID, question)
		if err != nil {
			return Answer{}, err
		}
		c.mu.Lock()
		c.asks[key] = answer
		c.mu.Unlock()
		return answer, nil
	})
	if err != nil {
		return Answer{}, err
	}
	return value.(Answer).clone(), nil
}
