// Package di provides a minimal service container with typed tokens used to
// wire bounded-context modules together.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the raw entry registered under name, or nil.
	Get(name string) any
}

// Container registers and resolves named services.
type Container interface {
	ServiceRegistry
	// Register stores a service under name, overwriting any previous entry.
	Register(name string, svc any)
}

type container struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{services: make(map[string]any)}
}

func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = svc
}

func (c *container) Get(name string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services[name]
}

// Token is a typed handle for a service registered in the container.
type Token[T any] struct {
	name string
}

// NewToken creates a token under the given unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token's registry name.
func (t Token[T]) Name() string {
	return t.name
}

// lazyService defers construction to first resolution and caches the result.
type lazyService[T any] struct {
	once    sync.Once
	factory func(ServiceRegistry) T
	value   T
}

// RegisterToken registers a lazily-constructed singleton under the token.
// The factory runs at most once, on first GetToken.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.Register(tok.name, &lazyService[T]{factory: factory})
}

// GetToken resolves the token's service, constructing it on first use.
// A missing or mistyped registration is a wiring bug and panics.
func GetToken[T any](r ServiceRegistry, tok Token[T]) T {
	svc := r.Get(tok.name)
	if svc == nil {
		panic(fmt.Sprintf("di: service %q not registered", tok.name))
	}

	switch v := svc.(type) {
	case *lazyService[T]:
		v.once.Do(func() {
			v.value = v.factory(r)
		})
		return v.value
	case T:
		return v
	default:
		panic(fmt.Sprintf("di: service %q has unexpected type %T", tok.name, svc))
	}
}
