package app

import (
	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
)

// AdapterRegistry maps each dex protocol tag to its calling convention.
// This is the single point where convention is chosen; adding a protocol
// family is one new case here and one new enum variant, nothing else.
type AdapterRegistry struct{}

// NewAdapterRegistry creates the registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{}
}

// ConventionFor returns the calling convention for t. Unknown tags are an
// error at route-decode time, never a runtime default.
func (r *AdapterRegistry) ConventionFor(t domain.DexProtocolType) (domain.SwapConvention, error) {
	switch t {
	case domain.DexUniswapV2:
		return domain.FundsFirst, nil
	case domain.DexUniswapV2Callback:
		return domain.BorrowThenRepay, nil
	case domain.DexUniswapV3:
		return domain.BorrowThenRepay, nil
	case domain.DexAlgebraCL:
		return domain.BorrowThenRepay, nil
	default:
		return 0, apperror.New(apperror.CodeUnknownProtocol,
			apperror.WithContext(t.String()))
	}
}
