package app

import (
	"testing"

	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
)

func TestAdapterRegistry_ConventionFor(t *testing.T) {
	tests := []struct {
		name string
		dex  domain.DexProtocolType
		want domain.SwapConvention
	}{
		{"uniswap v2 pairs are funds-first", domain.DexUniswapV2, domain.FundsFirst},
		{"v2 callback pairs borrow then repay", domain.DexUniswapV2Callback, domain.BorrowThenRepay},
		{"v3 pools borrow then repay", domain.DexUniswapV3, domain.BorrowThenRepay},
		{"algebra pools borrow then repay", domain.DexAlgebraCL, domain.BorrowThenRepay},
	}

	reg := NewAdapterRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.ConventionFor(tt.dex)
			if err != nil {
				t.Fatalf("ConventionFor(%s) failed: %v", tt.dex, err)
			}
			if got != tt.want {
				t.Errorf("ConventionFor(%s) = %s, want %s", tt.dex, got, tt.want)
			}
		})
	}
}

func TestAdapterRegistry_UnknownProtocol(t *testing.T) {
	reg := NewAdapterRegistry()
	_, err := reg.ConventionFor(domain.DexProtocolType(99))
	if !apperror.IsCode(err, apperror.CodeUnknownProtocol) {
		t.Fatalf("err = %v, want UNKNOWN_PROTOCOL", err)
	}
}
