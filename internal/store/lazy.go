package store

import "sync"

// Lazy wraps a Store behind an idempotent open. Every caller of Get
// shares the same initialization: redundant opens are safe, and a failed
// open is sticky (the platform denying access does not fix itself).
//
// Construct one Lazy at process start and pass it by injection; there is
// deliberately no package-level instance.
type Lazy struct {
	path string

	once  sync.Once
	store *Store
	err   error
}

// NewLazy returns a Lazy that will open the database at path on first use.
func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

// Get opens the store on first call and returns the shared instance (or
// the sticky open error) on every call after that.
func (l *Lazy) Get() (*Store, error) {
	l.once.Do(func() {
		l.store, l.err = Open(l.path)
	})
	return l.store, l.err
}

// Close closes the underlying store if it was ever opened.
func (l *Lazy) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}
