package resource

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Default returns the built-in catalog.
func Default() (*Catalog, error) { return Parse(defaultCatalog) }

// Loader owns the current catalog and swaps it on Reload. Readers get an
// immutable snapshot.
type Loader struct {
	path   string
	logger *zap.Logger

	mu  sync.RWMutex
	cur *Catalog
}

// NewLoader loads the catalog at path, or the built-in one when path is
// empty.
func NewLoader(path string, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{path: path, logger: logger}
	c, err := l.read()
	if err != nil {
		return nil, err
	}
	l.cur = c
	return l, nil
}

// NewStatic wraps an already parsed catalog. Reload keeps it unchanged.
func NewStatic(c *Catalog) *Loader {
	return &Loader{cur: c, logger: zap.NewNop(), path: ""}
}

func (l *Loader) read() (*Catalog, error) {
	if l.path == "" {
		return Default()
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", l.path, err)
	}
	return Parse(data)
}

// Current returns the active catalog snapshot.
func (l *Loader) Current() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cur
}

// Reload re-reads the catalog. A failed reload keeps the previous catalog.
func (l *Loader) Reload() error {
	if l.path == "" {
		return nil
	}
	c, err := l.read()
	if err != nil {
		l.logger.Warn("catalog reload failed, keeping previous", zap.String("path", l.path), zap.Error(err))
		return err
	}
	l.mu.Lock()
	l.cur = c
	l.mu.Unlock()
	l.logger.Info("catalog reloaded",
		zap.String("path", l.path),
		zap.Int("tasks", len(c.Tasks)),
		zap.Int("opportunities", len(c.Opportunities)),
		zap.Int("scenarios", len(c.Scenarios)))
	return nil
}
