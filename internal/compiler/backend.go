// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// KindNative spawns a natively compiled compiler binary.
	KindNative Kind = "native"
	// KindManaged spawns the compiler on a managed runtime (a JVM).
	KindManaged Kind = "managed"
	// KindEmbedded compiles in-process.
	KindEmbedded Kind = "embedded"
)

var (
	// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
	ErrInvalidKind = errors.New("invalid compiler backend")
	// ErrNoBackend is the sentinel error wrapped by NoBackendError.
	ErrNoBackend = errors.New("no compiler backend available")
	// ErrLaunch is the sentinel error wrapped by LaunchError.
	ErrLaunch = errors.New("failed to launch compiler")
)

type (
	// Kind names a backend.
	Kind string

	// InvalidKindError is returned when a Kind is not recognized.
	InvalidKindError struct {
		Value Kind
	}

	// Backend executes compilation requests.
	Backend interface {
		// Name returns the backend name used in logs and listings.
		Name() string
		// Available reports whether the backend can run on this host.
		Available() bool
		// Compile runs one request. A non-nil error means the compiler could
		// not be run at all; compilation problems are reported as diagnostics.
		Compile(ctx context.Context, req *Request) (*Result, error)
	}

	// Registry holds the backends known to the build, in registration order.
	Registry struct {
		backends map[Kind]Backend
		order    []Kind
	}

	// NoBackendError is returned by Select when no preferred backend is
	// registered and available.
	NoBackendError struct {
		Preference []Kind
	}

	// LaunchError reports a compiler process that could not be started.
	LaunchError struct {
		Command string
		Err     error
	}
)

// DefaultPreference is the backend order used when none is configured.
func DefaultPreference() []Kind {
	return []Kind{KindNative, KindManaged, KindEmbedded}
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// IsValid returns whether the Kind is one of the defined backends.
func (k Kind) IsValid() (bool, []error) {
	switch k {
	case KindNative, KindManaged, KindEmbedded:
		return true, nil
	default:
		return false, []error{&InvalidKindError{Value: k}}
	}
}

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid compiler backend %q (valid: %s, %s, %s)", e.Value, KindNative, KindManaged, KindEmbedded)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// Error implements the error interface.
func (e *NoBackendError) Error() string {
	names := make([]string, 0, len(e.Preference))
	for _, k := range e.Preference {
		names = append(names, string(k))
	}
	return fmt.Sprintf("no compiler backend available (tried: %s)", strings.Join(names, ", "))
}

// Unwrap returns ErrNoBackend for errors.Is() compatibility.
func (e *NoBackendError) Unwrap() error { return ErrNoBackend }

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch compiler %q: %v", e.Command, e.Err)
}

// Unwrap returns both ErrLaunch and the underlying cause.
func (e *LaunchError) Unwrap() []error { return []error{ErrLaunch, e.Err} }

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[Kind]Backend)}
}

// Register adds or replaces the backend for kind.
func (r *Registry) Register(kind Kind, b Backend) {
	if _, ok := r.backends[kind]; !ok {
		r.order = append(r.order, kind)
	}
	r.backends[kind] = b
}

// Get returns the backend registered for kind.
func (r *Registry) Get(kind Kind) (Backend, error) {
	b, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("compiler backend '%s' not registered", kind)
	}
	return b, nil
}

// Kinds returns every registered kind in registration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.order))
	copy(out, r.order)
	return out
}

// Available returns the registered kinds whose backend is available.
func (r *Registry) Available() []Kind {
	var kinds []Kind
	for _, k := range r.order {
		if r.backends[k].Available() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Select returns the first registered, available backend in preference order.
func (r *Registry) Select(preference []Kind) (Backend, error) {
	if len(preference) == 0 {
		preference = DefaultPreference()
	}
	for _, k := range preference {
		b, ok := r.backends[k]
		if ok && b.Available() {
			return b, nil
		}
	}
	return nil, &NoBackendError{Preference: preference}
}
