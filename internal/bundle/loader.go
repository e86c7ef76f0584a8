package bundle

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Loader caches a successfully loaded bundle for the lifetime of the
// process. Failed loads are never cached: a missing bundle is
// re-checked on every call so training in another process becomes
// visible without a restart.
type Loader struct {
	Path string

	mu     sync.Mutex
	cached *Bundle
}

func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Get returns the cached bundle, loading it on first use.
func (l *Loader) Get() (*Bundle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil {
		return l.cached, nil
	}
	b, err := Load(l.Path)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", l.Path).
		Str("engine", b.Metadata.Engine).
		Float64("auc", b.Metadata.AUCScore).
		Msg("model bundle loaded")
	l.cached = b
	return b, nil
}

// Invalidate drops the cache so the next Get reloads from disk. Called
// after retraining in-process.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}
