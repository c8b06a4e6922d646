// Package memledger provides an in-memory token ledger with snapshot
// rollback. It backs the engine in simulation mode and gives tests a real
// balance book to assert atomicity and no-leftover invariants against.
package memledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/internal/apperror"
)

type balances map[common.Address]map[common.Address]*big.Int // token -> owner -> amount

// Ledger is an in-memory token book. Atomically brackets are all-or-nothing:
// an error from the bracketed function rolls every balance change back.
// Brackets may nest; each level rolls back independently.
type Ledger struct {
	mu    sync.Mutex
	book  balances
	snaps []balances
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{book: make(balances)}
}

// Mint credits amount of token to owner. Used to seed working capital and
// pool inventory; a real deployment funds the book on-chain instead.
func (l *Ledger) Mint(token, owner common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() < 0 {
		panic("memledger: mint of nil or negative amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, owner, amount)
}

// BalanceOf returns a copy of owner's balance of token.
func (l *Ledger) BalanceOf(token, owner common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if owners, ok := l.book[token]; ok {
		if bal, ok := owners[owner]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// Transfer moves amount of token from one owner to another. Insufficient
// balance is a validation error surfaced to the caller, never a partial move.
func (l *Ledger) Transfer(_ context.Context, token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "transfer amount must be positive")
	}
	if to == (common.Address{}) {
		return apperror.Validation(apperror.CodeInvalidInput, "transfer to zero address")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balance(token, from)
	if bal.Cmp(amount) < 0 {
		return apperror.New(apperror.CodeInsufficientBalance,
			apperror.WithContext("have "+bal.String()+", need "+amount.String()))
	}
	bal.Sub(bal, amount)
	l.credit(token, to, amount)
	return nil
}

// Atomically runs fn as an all-or-nothing unit of work against the ledger.
func (l *Ledger) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.snaps = append(l.snaps, cloneBook(l.book))
	l.mu.Unlock()

	err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	snap := l.snaps[len(l.snaps)-1]
	l.snaps = l.snaps[:len(l.snaps)-1]
	if err != nil {
		l.book = snap
		return err
	}
	return nil
}

// balance returns the mutable balance entry for token/owner, creating it.
// Callers must hold l.mu.
func (l *Ledger) balance(token, owner common.Address) *big.Int {
	owners, ok := l.book[token]
	if !ok {
		owners = make(map[common.Address]*big.Int)
		l.book[token] = owners
	}
	bal, ok := owners[owner]
	if !ok {
		bal = new(big.Int)
		owners[owner] = bal
	}
	return bal
}

// credit adds amount to token/owner. Callers must hold l.mu.
func (l *Ledger) credit(token, owner common.Address, amount *big.Int) {
	bal := l.balance(token, owner)
	bal.Add(bal, amount)
}

func cloneBook(src balances) balances {
	dst := make(balances, len(src))
	for token, owners := range src {
		clone := make(map[common.Address]*big.Int, len(owners))
		for owner, bal := range owners {
			clone[owner] = new(big.Int).Set(bal)
		}
		dst[token] = clone
	}
	return dst
}
