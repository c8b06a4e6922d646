// Package domain contains the revenue distribution types: share configs and
// the exact basis-point split computation.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BpsDenominator is the basis-point scale: 10000 bps is the whole amount.
const BpsDenominator = 10000

// Entry assigns a recipient a share of distributed revenue in basis points.
type Entry struct {
	Recipient common.Address
	ShareBps  uint16
}

// Config is a named revenue split. Entry order is significant: payouts are
// produced in config order, and the last entry absorbs rounding dust.
type Config struct {
	ID      string
	Entries []Entry
}

// TotalBps returns the sum of all configured shares.
func (c *Config) TotalBps() int {
	total := 0
	for _, e := range c.Entries {
		total += int(e.ShareBps)
	}
	return total
}

// Validate checks the config's structural invariants.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("config id must not be empty")
	}
	if len(c.Entries) == 0 {
		return fmt.Errorf("config %q has no entries", c.ID)
	}

	seen := make(map[common.Address]struct{}, len(c.Entries))
	total := 0
	for i, e := range c.Entries {
		if e.Recipient == (common.Address{}) {
			return fmt.Errorf("entry %d: zero recipient address", i)
		}
		if e.ShareBps == 0 {
			return fmt.Errorf("entry %d: zero share", i)
		}
		if _, dup := seen[e.Recipient]; dup {
			return fmt.Errorf("entry %d: duplicate recipient %s", i, e.Recipient.Hex())
		}
		seen[e.Recipient] = struct{}{}
		total += int(e.ShareBps)
	}
	if total > BpsDenominator {
		return fmt.Errorf("shares sum to %d bps, limit is %d", total, BpsDenominator)
	}
	return nil
}

// Payout is one recipient's cut of a distributed amount.
type Payout struct {
	Recipient common.Address
	Amount    *big.Int
}

// Split divides amount across the config's entries, bps-exact.
//
// Each entry receives floor(amount * share / 10000), except the last entry,
// which absorbs the rounding dust of the configured portion. When shares sum
// to less than 10000 bps the uncovered remainder goes to fallback, which must
// then be a nonzero address. The returned payouts always sum to exactly
// amount; zero-amount payouts are omitted.
func (c *Config) Split(amount *big.Int, fallback common.Address) ([]Payout, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("split amount must be >= 0")
	}
	if amount.Sign() == 0 {
		return nil, nil
	}

	total := c.TotalBps()
	denom := big.NewInt(BpsDenominator)

	// Portion covered by configured entries; the rest goes to fallback.
	configured := new(big.Int).Mul(amount, big.NewInt(int64(total)))
	configured.Div(configured, denom)

	remainder := new(big.Int).Sub(amount, configured)
	if remainder.Sign() > 0 && fallback == (common.Address{}) {
		return nil, fmt.Errorf("shares sum to %d bps and no fallback recipient is set", total)
	}

	payouts := make([]Payout, 0, len(c.Entries)+1)
	assigned := new(big.Int)
	for i, e := range c.Entries {
		var cut *big.Int
		if i == len(c.Entries)-1 {
			cut = new(big.Int).Sub(configured, assigned)
		} else {
			cut = new(big.Int).Mul(amount, big.NewInt(int64(e.ShareBps)))
			cut.Div(cut, denom)
		}
		assigned.Add(assigned, cut)
		if cut.Sign() > 0 {
			payouts = append(payouts, Payout{Recipient: e.Recipient, Amount: cut})
		}
	}

	if remainder.Sign() > 0 {
		payouts = append(payouts, Payout{Recipient: fallback, Amount: remainder})
	}

	return payouts, nil
}
