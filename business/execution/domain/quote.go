package domain

import (
	"fmt"
	"math/big"
)

// Quote is the Quoter's answer for one backrun trigger: the route to trade,
// the expected per-hop outputs, where in the route execution should start,
// and the profit estimate. Profit of zero means "no profitable route".
type Quote struct {
	Profit          *big.Int
	Route           SwapRoute
	AmountsOut      []*big.Int
	InitialHopIndex int
}

// IsZero reports whether the quote carries no profitable route.
func (q *Quote) IsZero() bool {
	return q == nil || q.Profit == nil || q.Profit.Sign() == 0
}

// Validate checks the quote's invariants against its embedded route.
func (q *Quote) Validate() error {
	if q.Profit == nil || q.Profit.Sign() < 0 {
		return fmt.Errorf("quote profit must be >= 0")
	}
	if q.IsZero() {
		// A zero quote carries no route to validate.
		return nil
	}
	if err := q.Route.Validate(); err != nil {
		return fmt.Errorf("quote route: %w", err)
	}
	if len(q.AmountsOut) != q.Route.Hops() {
		return fmt.Errorf("quote has %d hop outputs, route has %d hops", len(q.AmountsOut), q.Route.Hops())
	}
	if q.InitialHopIndex < 0 || q.InitialHopIndex >= q.Route.Hops() {
		return fmt.Errorf("initial hop index %d out of range [0,%d)", q.InitialHopIndex, q.Route.Hops())
	}
	if q.InitialHopIndex != 0 && !q.Route.IsCyclic() {
		return fmt.Errorf("initial hop index %d on a non-cyclic route", q.InitialHopIndex)
	}
	return nil
}
