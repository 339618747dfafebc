// Package schema manages which PostgreSQL schema a pooled database
// connection is bound to for the duration of a request.
//
// A binding is a scoped acquisition: the connection's search_path is set on
// acquire and must be restored on every exit path before the connection goes
// back to the pool. A connection released with a tenant search_path still
// active would hand one tenant's namespace to an unrelated request.
package schema

import (
	"context"
	"errors"
	"regexp"
)

// Schema names double as routing keys, so the accepted alphabet is strict:
// lowercase letter first, then lowercase alphanumerics and underscores.
var validName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

var (
	// ErrInvalidName is returned for schema names outside the accepted alphabet.
	ErrInvalidName = errors.New("schema: invalid schema name")
	// ErrReleased is returned when using a binding after Release.
	ErrReleased = errors.New("schema: binding already released")
	// ErrNothingToPop is returned when Pop is called with no nested bind active.
	ErrNothingToPop = errors.New("schema: no nested binding to pop")
)

// ValidName reports whether a schema name is acceptable as a namespace and
// routing key.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Binding is a connection (or simulated namespace) bound to a schema for one
// request. A binding is owned by a single request at a time and is not safe
// for concurrent use.
type Binding interface {
	// Schema returns the currently active schema name.
	Schema() string

	// With runs fn with the given schema bound, restoring the previously
	// active schema on every exit path, including fn failure.
	With(ctx context.Context, name string, fn func(context.Context) error) error

	// Release restores the shared schema and returns the underlying
	// connection to the pool. Safe to call more than once.
	Release(ctx context.Context) error
}

// Binder acquires schema bindings.
type Binder interface {
	// Bind acquires a binding whose active schema is name.
	Bind(ctx context.Context, name string) (Binding, error)

	// Public returns the shared schema name bindings are restored to.
	Public() string
}

type contextKey struct{}

// WithBinding attaches the request's schema binding to the context.
func WithBinding(ctx context.Context, b Binding) context.Context {
	return context.WithValue(ctx, contextKey{}, b)
}

// FromContext returns the request's schema binding, if any.
func FromContext(ctx context.Context) (Binding, bool) {
	b, ok := ctx.Value(contextKey{}).(Binding)
	return b, ok
}
