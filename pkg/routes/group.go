package routes

import "net/http"

// Group organizes routes under a common prefix. Middleware wraps every route
// in the group and its children, outermost first; a child's middleware runs
// inside its parent's.
type Group struct {
	Prefix     string
	Middleware []func(http.Handler) http.Handler
	Routes     []Route
	Children   []Group
}

// Register adds all routes from the given groups to the mux and returns the
// registered patterns in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, group := range groups {
		patterns = registerGroup(mux, "", nil, group, patterns)
	}
	return patterns
}

func registerGroup(
	mux *http.ServeMux,
	parentPrefix string,
	parentMiddleware []func(http.Handler) http.Handler,
	group Group,
	patterns []string,
) []string {
	prefix := parentPrefix + group.Prefix
	stack := append(append([]func(http.Handler) http.Handler{}, parentMiddleware...), group.Middleware...)

	for _, route := range group.Routes {
		pattern := route.Method + " " + prefix + route.Pattern
		mux.Handle(pattern, wrap(route.Handler, stack))
		patterns = append(patterns, pattern)
	}
	for _, child := range group.Children {
		patterns = registerGroup(mux, prefix, stack, child, patterns)
	}
	return patterns
}

func wrap(h http.Handler, stack []func(http.Handler) http.Handler) http.Handler {
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}
	return h
}
