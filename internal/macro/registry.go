package macro

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Registry holds the current macro Set for a file and swaps it atomically on
// reload. Readers never block and never see a partially loaded Set.
type Registry struct {
	path   string
	logger *zap.Logger
	cur    atomic.Pointer[Set]
}

// NewRegistry returns a Registry for path. An empty path yields a permanently
// empty Registry; otherwise the file is loaded immediately.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a loaded Registry or the load error.
func NewRegistry(path string, logger *zap.Logger) (*Registry, error) {
	r := &Registry{path: path, logger: logger}
	r.cur.Store(&Set{})
	if path == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the macro file the Registry loads from.
func (r *Registry) Path() string { return r.path }

// Current returns the active Set.
func (r *Registry) Current() *Set { return r.cur.Load() }

// Expand expands references against the active Set.
func (r *Registry) Expand(text string) (string, error) {
	return r.Current().Expand(text)
}

// Reload re-reads the file. On failure the previous Set stays active.
func (r *Registry) Reload() error {
	s, err := LoadFromFile(r.path)
	if err != nil {
		r.logger.Warn("macro reload failed, keeping previous macros",
			zap.String("path", r.path),
			zap.Error(err),
		)
		return err
	}
	r.cur.Store(s)
	r.logger.Info("macros loaded",
		zap.String("path", r.path),
		zap.Int("count", s.Len()),
	)
	return nil
}
