package report

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 32

// Loader reads report files from disk. Parsed reports are cached by the
// SHA-256 digest of the file content, so an unchanged report is decoded once.
// Cached reports are shared and must be treated as read-only.
type Loader struct {
	cache    *lru.Cache[[sha256.Size]byte, *Report]
	readFile func(name string) ([]byte, error)
}

// NewLoader creates a loader keeping up to size parsed reports.
func NewLoader(size int) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, *Report](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	return &Loader{
		cache:    cache,
		readFile: os.ReadFile,
	}, nil
}

// Load reads and parses the report at path.
func (l *Loader) Load(ctx context.Context, path string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := l.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	digest := sha256.Sum256(data)
	if rep, ok := l.cache.Get(digest); ok {
		return rep, nil
	}

	rep, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	l.cache.Add(digest, rep)
	return rep, nil
}

// Cached returns the number of parsed reports currently held.
func (l *Loader) Cached() int {
	return l.cache.Len()
}
