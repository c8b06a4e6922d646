package feed

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
)

var (
	poolV2 = common.HexToAddress("0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc")
	poolV3 = common.HexToAddress("0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640")
	sender = common.HexToAddress("0x7a250d5630b4cf539739df2c5dacb4c659f2488d")
	taker  = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func testDecoder() *Decoder {
	return NewDecoder(map[common.Address]execdomain.DexProtocolType{
		poolV2: execdomain.DexUniswapV2,
		poolV3: execdomain.DexUniswapV3,
	})
}

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func uintWord(v int64) []byte {
	return common.BigToHash(big.NewInt(v)).Bytes()
}

func intWord(v int64) []byte {
	b := big.NewInt(v)
	if v < 0 {
		b.Add(b, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(b).Bytes()
}

func v2Log(amount0In, amount1In, amount0Out, amount1Out int64) *types.Log {
	data := make([]byte, 0, 4*32)
	data = append(data, uintWord(amount0In)...)
	data = append(data, uintWord(amount1In)...)
	data = append(data, uintWord(amount0Out)...)
	data = append(data, uintWord(amount1Out)...)
	return &types.Log{
		Address: poolV2,
		Topics:  []common.Hash{v2SwapTopic, addrTopic(sender), addrTopic(taker)},
		Data:    data,
	}
}

func v3Log(amount0, amount1 int64) *types.Log {
	data := make([]byte, 0, 5*32)
	data = append(data, intWord(amount0)...)
	data = append(data, intWord(amount1)...)
	data = append(data, uintWord(0)...) // sqrtPriceX96
	data = append(data, uintWord(0)...) // liquidity
	data = append(data, uintWord(0)...) // tick
	return &types.Log{
		Address: poolV3,
		Topics:  []common.Hash{v3SwapTopic, addrTopic(sender), addrTopic(taker)},
		Data:    data,
	}
}

func TestDecoder_V2Swap(t *testing.T) {
	tests := []struct {
		name           string
		log            *types.Log
		wantAmountIn   int64
		wantZeroForOne bool
	}{
		{"token0 in", v2Log(1000, 0, 0, 500), 1000, true},
		{"token1 in", v2Log(0, 2000, 900, 0), 2000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := testDecoder().Decode(tt.log)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if ev == nil {
				t.Fatal("Decode returned nil event")
			}
			if ev.AmountIn.Cmp(big.NewInt(tt.wantAmountIn)) != 0 {
				t.Errorf("amountIn = %s, want %d", ev.AmountIn, tt.wantAmountIn)
			}
			if ev.ZeroForOne != tt.wantZeroForOne {
				t.Errorf("zeroForOne = %v, want %v", ev.ZeroForOne, tt.wantZeroForOne)
			}
			if ev.Pool.Dex != execdomain.DexUniswapV2 {
				t.Errorf("dex = %s, want uniswap-v2", ev.Pool.Dex)
			}
			if ev.Pool.Address() != poolV2 {
				t.Errorf("pool address = %s, want %s", ev.Pool.Address().Hex(), poolV2.Hex())
			}
			if ev.Recipient != taker {
				t.Errorf("recipient = %s, want %s", ev.Recipient.Hex(), taker.Hex())
			}
		})
	}
}

func TestDecoder_V3Swap(t *testing.T) {
	tests := []struct {
		name           string
		log            *types.Log
		wantAmountIn   int64
		wantZeroForOne bool
	}{
		{"token0 in", v3Log(1000, -500), 1000, true},
		{"token1 in", v3Log(-900, 2000), 2000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := testDecoder().Decode(tt.log)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if ev == nil {
				t.Fatal("Decode returned nil event")
			}
			if ev.AmountIn.Cmp(big.NewInt(tt.wantAmountIn)) != 0 {
				t.Errorf("amountIn = %s, want %d", ev.AmountIn, tt.wantAmountIn)
			}
			if ev.ZeroForOne != tt.wantZeroForOne {
				t.Errorf("zeroForOne = %v, want %v", ev.ZeroForOne, tt.wantZeroForOne)
			}
		})
	}
}

func TestDecoder_UntrackedPoolSkipped(t *testing.T) {
	log := v2Log(1000, 0, 0, 500)
	log.Address = common.HexToAddress("0x00000000000000000000000000000000000000ee")

	ev, err := testDecoder().Decode(log)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev != nil {
		t.Errorf("untracked pool produced event %+v", ev)
	}
}

func TestDecoder_ForeignTopicSkipped(t *testing.T) {
	log := v2Log(1000, 0, 0, 500)
	log.Topics[0] = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

	ev, err := testDecoder().Decode(log)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev != nil {
		t.Errorf("foreign topic produced event %+v", ev)
	}
}

func TestDecoder_MalformedLogs(t *testing.T) {
	tests := []struct {
		name string
		log  *types.Log
	}{
		{"v2 truncated data", &types.Log{
			Address: poolV2,
			Topics:  []common.Hash{v2SwapTopic, addrTopic(sender), addrTopic(taker)},
			Data:    make([]byte, 3*32),
		}},
		{"v2 dual input", v2Log(1000, 2000, 0, 0)},
		{"v3 no positive delta", v3Log(-100, -200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := testDecoder().Decode(tt.log); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}
