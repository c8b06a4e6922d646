package simpool

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/execution/infra/memledger"
	"github.com/fd1az/backrun-engine/internal/apperror"
)

var (
	poolAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	weth     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	trader   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newPool(t *testing.T, feeBps uint16) (*memledger.Ledger, *Pool) {
	t.Helper()
	ledger := memledger.New()
	ledger.Mint(weth, poolAddr, big.NewInt(1000))
	ledger.Mint(usdc, poolAddr, big.NewInt(1000))

	pool, err := NewPool(ledger, poolAddr, weth, usdc, feeBps)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	return ledger, pool
}

func TestPool_Swap(t *testing.T) {
	ledger, pool := newPool(t, 30)
	ctx := context.Background()

	// Funds-first: the input lands on the pool before the call.
	ledger.Mint(weth, trader, big.NewInt(100))
	if err := ledger.Transfer(ctx, weth, trader, poolAddr, big.NewInt(100)); err != nil {
		t.Fatalf("pre-funding failed: %v", err)
	}

	out, err := pool.Swap(ctx, weth, usdc, big.NewInt(100), trader, nil)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	// 1000*99700 / (1000*10000 + 99700) = 90 with integer truncation.
	if out.Cmp(big.NewInt(90)) != 0 {
		t.Errorf("out = %s, want 90", out)
	}
	if got := ledger.BalanceOf(usdc, trader); got.Cmp(big.NewInt(90)) != 0 {
		t.Errorf("trader usdc = %s, want 90", got)
	}
	if got := ledger.BalanceOf(usdc, poolAddr); got.Cmp(big.NewInt(910)) != 0 {
		t.Errorf("pool usdc = %s, want 910", got)
	}
}

func TestPool_SwapRequiresFunding(t *testing.T) {
	_, pool := newPool(t, 30)

	_, err := pool.Swap(context.Background(), weth, usdc, big.NewInt(2000), trader, nil)
	if !apperror.IsCode(err, apperror.CodePoolCallFailed) {
		t.Fatalf("expected POOL_CALL_FAILED, got %v", err)
	}
}

func TestPool_RejectsForeignPair(t *testing.T) {
	_, pool := newPool(t, 30)
	dai := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	_, err := pool.Swap(context.Background(), dai, usdc, big.NewInt(10), trader, nil)
	if !apperror.IsCode(err, apperror.CodePoolCallFailed) {
		t.Fatalf("expected POOL_CALL_FAILED, got %v", err)
	}
}

func TestPool_Loan(t *testing.T) {
	ledger, pool := newPool(t, 30)
	ctx := context.Background()
	ledger.Mint(weth, trader, big.NewInt(100))

	out, err := pool.Loan(ctx, weth, usdc, big.NewInt(100), trader, nil,
		func(ctx context.Context, repayToken common.Address, repayAmount *big.Int) error {
			return ledger.Transfer(ctx, repayToken, trader, poolAddr, repayAmount)
		})
	if err != nil {
		t.Fatalf("Loan failed: %v", err)
	}
	if out.Cmp(big.NewInt(90)) != 0 {
		t.Errorf("out = %s, want 90", out)
	}
	if got := ledger.BalanceOf(weth, poolAddr); got.Cmp(big.NewInt(1100)) != 0 {
		t.Errorf("pool weth = %s, want 1100", got)
	}
}

func TestPool_LoanRequiresRepayment(t *testing.T) {
	ledger, pool := newPool(t, 30)

	_, err := pool.Loan(context.Background(), weth, usdc, big.NewInt(100), trader, nil,
		func(ctx context.Context, repayToken common.Address, repayAmount *big.Int) error {
			return nil // keep the advance, pay nothing back
		})
	if !apperror.IsCode(err, apperror.CodePoolCallFailed) {
		t.Fatalf("expected POOL_CALL_FAILED, got %v", err)
	}
	_ = ledger
}

func TestResolver(t *testing.T) {
	ledger, pool := newPool(t, 30)
	_ = ledger

	ref := domain.PoolRef{
		ID:  common.BytesToHash(poolAddr.Bytes()),
		Dex: domain.DexUniswapV2,
	}

	r := NewResolver()
	r.Register(ref, pool)

	got, err := r.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != pool {
		t.Errorf("resolved a different pool")
	}

	unknown := domain.PoolRef{ID: common.HexToHash("0xdead"), Dex: domain.DexUniswapV2}
	if _, err := r.Resolve(unknown); !apperror.IsCode(err, apperror.CodePoolNotFound) {
		t.Fatalf("expected POOL_NOT_FOUND, got %v", err)
	}
}
