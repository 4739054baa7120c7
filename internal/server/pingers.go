package server

import (
	"context"
	"fmt"
)

// Pinger is the interface implemented by any dependency that can report its
// own reachability. Implementations must return nil when the dependency is
// healthy and a descriptive error otherwise, and must be safe to call from
// multiple goroutines.
type Pinger interface {
	// Ping checks whether the dependency is reachable within the given context.
	Ping(ctx context.Context) error

	// Name returns a short label used in readiness responses
	// (e.g. "sqlite", "qdrant").
	Name() string
}

// pingable is anything with a Ping method. *store.Store and
// *vecstore.QdrantFinder both satisfy it.
type pingable interface {
	Ping(ctx context.Context) error
}

// NamedPinger adapts a dependency's Ping method into a Pinger with a label.
type NamedPinger struct {
	dep  pingable
	name string
}

// NewNamedPinger wraps dep as a Pinger reporting under name.
func NewNamedPinger(dep pingable, name string) *NamedPinger {
	return &NamedPinger{dep: dep, name: name}
}

// Name returns the dependency label used in readiness responses.
func (p *NamedPinger) Name() string { return p.name }

// Ping delegates to the wrapped dependency.
func (p *NamedPinger) Ping(ctx context.Context) error {
	if err := p.dep.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}
