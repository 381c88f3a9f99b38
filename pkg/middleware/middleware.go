// Package middleware provides the HTTP middleware stack shared by modules:
// request correlation, panic recovery, access logging and CORS.
package middleware

import "net/http"

// System manages an ordered stack of HTTP middleware. The first middleware
// added is the outermost.
type System interface {
	Use(mw func(http.Handler) http.Handler)
	Apply(handler http.Handler) http.Handler
}

type mw struct {
	stack []func(http.Handler) http.Handler
}

// New creates a System seeded with fns.
func New(fns ...func(http.Handler) http.Handler) System {
	return &mw{stack: append([]func(http.Handler) http.Handler{}, fns...)}
}

func (m *mw) Use(fn func(http.Handler) http.Handler) {
	m.stack = append(m.stack, fn)
}

func (m *mw) Apply(handler http.Handler) http.Handler {
	for i := len(m.stack) - 1; i >= 0; i-- {
		handler = m.stack[i](handler)
	}
	return handler
}
