package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	fallback = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			"valid full split",
			Config{ID: "default", Entries: []Entry{{alice, 6000}, {bob, 4000}}},
			false,
		},
		{
			"valid partial split",
			Config{ID: "partial", Entries: []Entry{{alice, 2500}}},
			false,
		},
		{
			"empty id",
			Config{Entries: []Entry{{alice, 10000}}},
			true,
		},
		{
			"no entries",
			Config{ID: "empty"},
			true,
		},
		{
			"zero recipient",
			Config{ID: "zero", Entries: []Entry{{common.Address{}, 10000}}},
			true,
		},
		{
			"zero share",
			Config{ID: "noshare", Entries: []Entry{{alice, 0}}},
			true,
		},
		{
			"duplicate recipient",
			Config{ID: "dup", Entries: []Entry{{alice, 5000}, {alice, 5000}}},
			true,
		},
		{
			"shares above 10000",
			Config{ID: "over", Entries: []Entry{{alice, 6000}, {bob, 5000}}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Split(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		amount   int64
		fallback common.Address
		want     map[common.Address]int64
	}{
		{
			name:   "even full split",
			cfg:    Config{ID: "c", Entries: []Entry{{alice, 6000}, {bob, 4000}}},
			amount: 1000,
			want:   map[common.Address]int64{alice: 600, bob: 400},
		},
		{
			name:   "last entry absorbs dust",
			cfg:    Config{ID: "c", Entries: []Entry{{alice, 3333}, {bob, 3333}, {carol, 3334}}},
			amount: 100,
			want:   map[common.Address]int64{alice: 33, bob: 33, carol: 34},
		},
		{
			name:     "partial split pays fallback",
			cfg:      Config{ID: "c", Entries: []Entry{{alice, 2500}}},
			amount:   1000,
			fallback: fallback,
			want:     map[common.Address]int64{alice: 250, fallback: 750},
		},
		{
			name:     "dust within configured portion",
			cfg:      Config{ID: "c", Entries: []Entry{{alice, 3000}, {bob, 3000}}},
			amount:   101,
			fallback: fallback,
			// configured = floor(101*6000/10000) = 60; alice floor = 30, bob = 30.
			want: map[common.Address]int64{alice: 30, bob: 30, fallback: 41},
		},
		{
			name:   "amount smaller than share count",
			cfg:    Config{ID: "c", Entries: []Entry{{alice, 5000}, {bob, 5000}}},
			amount: 1,
			// alice floor = 0 and is omitted; bob absorbs the single unit.
			want: map[common.Address]int64{bob: 1},
		},
		{
			name:   "zero amount distributes nothing",
			cfg:    Config{ID: "c", Entries: []Entry{{alice, 10000}}},
			amount: 0,
			want:   map[common.Address]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payouts, err := tt.cfg.Split(big.NewInt(tt.amount), tt.fallback)
			if err != nil {
				t.Fatalf("Split failed: %v", err)
			}

			got := make(map[common.Address]int64, len(payouts))
			sum := new(big.Int)
			for _, p := range payouts {
				got[p.Recipient] = p.Amount.Int64()
				sum.Add(sum, p.Amount)
			}

			if sum.Cmp(big.NewInt(tt.amount)) != 0 {
				t.Errorf("payouts sum to %s, want %d", sum, tt.amount)
			}
			if len(got) != len(tt.want) {
				t.Errorf("got %d payouts, want %d", len(got), len(tt.want))
			}
			for addr, amount := range tt.want {
				if got[addr] != amount {
					t.Errorf("payout[%s] = %d, want %d", addr.Hex(), got[addr], amount)
				}
			}
		})
	}
}

func TestConfig_SplitRequiresFallbackWhenUnderAllocated(t *testing.T) {
	cfg := Config{ID: "c", Entries: []Entry{{alice, 2500}}}
	if _, err := cfg.Split(big.NewInt(1000), common.Address{}); err == nil {
		t.Fatal("expected error for under-allocated config without fallback")
	}
}

func TestConfig_SplitPreservesEntryOrder(t *testing.T) {
	cfg := Config{ID: "c", Entries: []Entry{{carol, 5000}, {alice, 3000}, {bob, 2000}}}
	payouts, err := cfg.Split(big.NewInt(1000), common.Address{})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	wantOrder := []common.Address{carol, alice, bob}
	if len(payouts) != len(wantOrder) {
		t.Fatalf("got %d payouts, want %d", len(payouts), len(wantOrder))
	}
	for i, addr := range wantOrder {
		if payouts[i].Recipient != addr {
			t.Errorf("payout %d recipient = %s, want %s", i, payouts[i].Recipient.Hex(), addr.Hex())
		}
	}
}
