package paylazor

import "sync"

// Loader defers Checkout construction until first use, so a host can
// declare the checkout up front without paying for config resolution
// and RPC client setup on its own startup path. Construction runs at
// most once; the outcome, error included, is cached.
type Loader struct {
	once  sync.Once
	build func() (*Checkout, error)
	c     *Checkout
	err   error
}

// NewLoader wraps a build function, typically a closure over New.
func NewLoader(build func() (*Checkout, error)) *Loader {
	return &Loader{build: build}
}

// Checkout returns the lazily built instance, constructing it on the
// first call.
func (l *Loader) Checkout() (*Checkout, error) {
	l.once.Do(func() {
		l.c, l.err = l.build()
	})
	return l.c, l.err
}
