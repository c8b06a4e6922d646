// Package domain contains the core types for the execution context: routes,
// quotes, backrun triggers, and the closed set of supported dex protocols.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DexProtocolType tags the calling convention family of a pool. The set is
// closed: adding a protocol means adding a variant here and one entry in the
// adapter registry, nothing else.
type DexProtocolType uint8

const (
	// DexUniswapV2 is a v2-style pair without a swap callback: input funds
	// must sit on the pool before the swap call.
	DexUniswapV2 DexProtocolType = iota

	// DexUniswapV2Callback is a v2-style pair whose swap advances output
	// first and calls back the recipient for payment.
	DexUniswapV2Callback

	// DexUniswapV3 is a v3-style concentrated liquidity pool; swaps settle
	// through a mandatory callback.
	DexUniswapV3

	// DexAlgebraCL is an Algebra-style concentrated liquidity pool,
	// callback-settled like v3.
	DexAlgebraCL

	numDexProtocols // sentinel, keep last
)

// Valid reports whether t is a known protocol tag.
func (t DexProtocolType) Valid() bool {
	return t < numDexProtocols
}

// String returns the canonical name of the protocol family.
func (t DexProtocolType) String() string {
	switch t {
	case DexUniswapV2:
		return "uniswap-v2"
	case DexUniswapV2Callback:
		return "uniswap-v2-callback"
	case DexUniswapV3:
		return "uniswap-v3"
	case DexAlgebraCL:
		return "algebra-cl"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseDexProtocolType maps a config string to a protocol tag.
func ParseDexProtocolType(s string) (DexProtocolType, error) {
	switch s {
	case "uniswap-v2":
		return DexUniswapV2, nil
	case "uniswap-v2-callback":
		return DexUniswapV2Callback, nil
	case "uniswap-v3":
		return DexUniswapV3, nil
	case "algebra-cl":
		return DexAlgebraCL, nil
	default:
		return 0, fmt.Errorf("unknown dex protocol %q", s)
	}
}

// SwapConvention is how the executor must settle a hop against a pool.
type SwapConvention uint8

const (
	// FundsFirst: transfer input to the pool, then invoke the swap.
	FundsFirst SwapConvention = iota

	// BorrowThenRepay: invoke the pool's loan-style entry point; the pool
	// advances output and calls back for repayment mid-flight.
	BorrowThenRepay
)

// String returns a human-readable convention name.
func (c SwapConvention) String() string {
	if c == FundsFirst {
		return "funds-first"
	}
	return "borrow-then-repay"
}

// PoolRef is an opaque handle to a liquidity pool on some protocol.
// It is immutable once embedded in a route.
type PoolRef struct {
	ID  common.Hash
	Dex DexProtocolType
}

// Address derives the pool's book address from its identifier.
func (p PoolRef) Address() common.Address {
	return common.BytesToAddress(p.ID[12:])
}

// String returns a short identifier for logging.
func (p PoolRef) String() string {
	return fmt.Sprintf("%s@%s", p.ID.Hex()[:10], p.Dex)
}

// SwapRoute is a decoded, ordered arbitrage path. Tokens is one longer than
// Pools: hop i consumes Tokens[i] and produces Tokens[i+1]. Meta carries
// opaque per-hop data interpreted by the pool adapter (fee tier, tick bounds).
type SwapRoute struct {
	Pools    []PoolRef
	Meta     [][]byte
	Tokens   []common.Address
	AmountIn *big.Int
}

// Hops returns the number of hops in the route.
func (r *SwapRoute) Hops() int {
	return len(r.Pools)
}

// IsCyclic reports whether the route ends in the token it starts with,
// which is required to start execution mid-route.
func (r *SwapRoute) IsCyclic() bool {
	if len(r.Tokens) < 2 {
		return false
	}
	return r.Tokens[0] == r.Tokens[len(r.Tokens)-1]
}

// Validate checks the route's structural invariants.
func (r *SwapRoute) Validate() error {
	n := len(r.Pools)
	if n == 0 {
		return fmt.Errorf("route has no hops")
	}
	if len(r.Meta) != n {
		return fmt.Errorf("route meta length %d does not match %d hops", len(r.Meta), n)
	}
	if len(r.Tokens) != n+1 {
		return fmt.Errorf("route token length %d, want %d", len(r.Tokens), n+1)
	}
	for i, p := range r.Pools {
		if !p.Dex.Valid() {
			return fmt.Errorf("hop %d: invalid dex protocol tag %d", i, uint8(p.Dex))
		}
		if p.ID == (common.Hash{}) {
			return fmt.Errorf("hop %d: zero pool id", i)
		}
	}
	for i, t := range r.Tokens {
		if t == (common.Address{}) {
			return fmt.Errorf("token %d: zero address", i)
		}
	}
	if r.AmountIn == nil || r.AmountIn.Sign() <= 0 {
		return fmt.Errorf("route amount in must be positive")
	}
	return nil
}
