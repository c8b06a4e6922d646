// Package feed subscribes to on-chain swap completions and delivers them to
// the hook as decoded events.
package feed

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/hook/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
)

// Swap event signatures for the supported protocol families.
var (
	// Swap(address indexed sender, uint amount0In, uint amount1In,
	//      uint amount0Out, uint amount1Out, address indexed to)
	v2SwapTopic = crypto.Keccak256Hash([]byte("Swap(address,uint256,uint256,uint256,uint256,address)"))

	// Swap(address indexed sender, address indexed recipient, int256 amount0,
	//      int256 amount1, uint160 sqrtPriceX96, uint128 liquidity, int24 tick)
	v3SwapTopic = crypto.Keccak256Hash([]byte("Swap(address,address,int256,int256,uint160,uint128,int24)"))
)

// Decoder turns raw swap logs from tracked pools into swap events. Logs from
// untracked pools decode to nil without error.
type Decoder struct {
	pools map[common.Address]execdomain.DexProtocolType
}

// NewDecoder creates a decoder tracking the given pools.
func NewDecoder(pools map[common.Address]execdomain.DexProtocolType) *Decoder {
	tracked := make(map[common.Address]execdomain.DexProtocolType, len(pools))
	for addr, dex := range pools {
		tracked[addr] = dex
	}
	return &Decoder{pools: tracked}
}

// Tracked reports whether the decoder tracks the pool at addr.
func (d *Decoder) Tracked(addr common.Address) bool {
	_, ok := d.pools[addr]
	return ok
}

// Decode parses a swap log into a SwapEvent. It returns (nil, nil) for logs
// from untracked pools or with foreign signatures.
func (d *Decoder) Decode(log *types.Log) (*domain.SwapEvent, error) {
	dex, ok := d.pools[log.Address]
	if !ok || len(log.Topics) == 0 {
		return nil, nil
	}

	pool := execdomain.PoolRef{
		ID:  common.BytesToHash(log.Address.Bytes()),
		Dex: dex,
	}

	switch log.Topics[0] {
	case v2SwapTopic:
		return decodeV2Swap(pool, log)
	case v3SwapTopic:
		return decodeV3Swap(pool, log)
	default:
		return nil, nil
	}
}

// decodeV2Swap parses a v2-style Swap: four unsigned amount words in data,
// sender and recipient indexed.
func decodeV2Swap(pool execdomain.PoolRef, log *types.Log) (*domain.SwapEvent, error) {
	if len(log.Topics) != 3 || len(log.Data) != 4*32 {
		return nil, apperror.New(apperror.CodeEventDecodeFailed,
			apperror.WithContext("malformed v2 swap log"))
	}

	amount0In := word(log.Data, 0)
	amount1In := word(log.Data, 1)

	ev := &domain.SwapEvent{
		Pool:      pool,
		Sender:    common.BytesToAddress(log.Topics[1].Bytes()),
		Recipient: common.BytesToAddress(log.Topics[2].Bytes()),
		TxHash:    log.TxHash,
		Block:     log.BlockNumber,
	}

	// One side carries the input. A dual-input swap is not a plain trade and
	// is rejected rather than guessed at.
	switch {
	case amount0In.Sign() > 0 && amount1In.Sign() == 0:
		ev.AmountIn = amount0In
		ev.ZeroForOne = true
	case amount1In.Sign() > 0 && amount0In.Sign() == 0:
		ev.AmountIn = amount1In
		ev.ZeroForOne = false
	default:
		return nil, apperror.New(apperror.CodeEventDecodeFailed,
			apperror.WithContext("ambiguous v2 swap input sides"))
	}

	return ev, nil
}

// decodeV3Swap parses a v3-style Swap: signed amount deltas from the pool's
// perspective, the positive one is the swap input.
func decodeV3Swap(pool execdomain.PoolRef, log *types.Log) (*domain.SwapEvent, error) {
	if len(log.Topics) != 3 || len(log.Data) < 2*32 {
		return nil, apperror.New(apperror.CodeEventDecodeFailed,
			apperror.WithContext("malformed v3 swap log"))
	}

	amount0 := signedWord(log.Data, 0)
	amount1 := signedWord(log.Data, 1)

	ev := &domain.SwapEvent{
		Pool:      pool,
		Sender:    common.BytesToAddress(log.Topics[1].Bytes()),
		Recipient: common.BytesToAddress(log.Topics[2].Bytes()),
		TxHash:    log.TxHash,
		Block:     log.BlockNumber,
	}

	switch {
	case amount0.Sign() > 0:
		ev.AmountIn = amount0
		ev.ZeroForOne = true
	case amount1.Sign() > 0:
		ev.AmountIn = amount1
		ev.ZeroForOne = false
	default:
		return nil, apperror.New(apperror.CodeEventDecodeFailed,
			apperror.WithContext("v3 swap without a positive input delta"))
	}

	return ev, nil
}

// word reads the i-th unsigned 32-byte word of data.
func word(data []byte, i int) *big.Int {
	return new(big.Int).SetBytes(data[i*32 : (i+1)*32])
}

// signedWord reads the i-th word as a two's complement int256.
func signedWord(data []byte, i int) *big.Int {
	v := word(data, i)
	if v.Bit(255) == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return v
}
