// Package access provides caller authorization for administrative operations.
package access

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/internal/apperror"
)

// Authorizer decides whether a caller may perform administrative operations.
type Authorizer interface {
	Authorize(ctx context.Context, caller common.Address) error
}

// AllowList authorizes a fixed, mutable set of caller addresses.
type AllowList struct {
	mu      sync.RWMutex
	allowed map[common.Address]struct{}
}

// NewAllowList creates an allow list seeded with the given callers.
func NewAllowList(callers ...common.Address) *AllowList {
	l := &AllowList{allowed: make(map[common.Address]struct{}, len(callers))}
	for _, c := range callers {
		l.allowed[c] = struct{}{}
	}
	return l
}

// Authorize returns an error unless caller is on the list.
func (l *AllowList) Authorize(_ context.Context, caller common.Address) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.allowed[caller]; !ok {
		return apperror.Unauthorized(caller.Hex())
	}
	return nil
}

// Grant adds a caller to the list.
func (l *AllowList) Grant(caller common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowed[caller] = struct{}{}
}

// Revoke removes a caller from the list.
func (l *AllowList) Revoke(caller common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.allowed, caller)
}
