package ledger

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/balance"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// AddTransaction authorizes the transaction and, when the sender can cover
// it, appends it to the pending pool. A declined transaction leaves the pool
// untouched.
func (l *Ledger) AddTransaction(tx database.Tx) bool {
	return l.AddTransactionWithReason(tx) == nil
}

// AddTransactionWithReason behaves like AddTransaction but reports why a
// transaction was declined with ErrUnauthorized or ErrInsufficientBalance.
func (l *Ledger) AddTransactionWithReason(tx database.Tx) error {
	l.evHandler("ledger: AddTransaction: started: %s", tx)
	defer l.evHandler("ledger: AddTransaction: completed")

	if err := tx.Validate(); err != nil {
		l.evHandler("ledger: AddTransaction: DECLINED: %s", err)
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	// The key lookup happens before any ledger lock is taken.
	if !l.authorized(tx) {
		l.evHandler("ledger: AddTransaction: DECLINED: unauthorized: from[%s]", tx.FromID)
		return fmt.Errorf("%w: from %s", ErrUnauthorized, tx.FromID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bs := l.balanceSheet()
	if !bs.Covers(tx.FromID, tx.Value) {
		l.evHandler("ledger: AddTransaction: DECLINED: insufficient balance: from[%s]: balance[%d]: value[%d]", tx.FromID, bs.Balance(tx.FromID), tx.Value)
		return fmt.Errorf("%w: from %s has %d, needs %d", ErrInsufficientBalance, tx.FromID, bs.Balance(tx.FromID), tx.Value)
	}

	n := l.mempool.Append(tx)
	l.evHandler("ledger: AddTransaction: ACCEPTED: pool[%d]", n)

	return nil
}

// authorized verifies the transaction signature against the key on file for
// the sender. A directory miss is a verification failure.
func (l *Ledger) authorized(tx database.Tx) bool {
	if tx.FromID.IsSystem() {
		return tx.Verify(nil)
	}

	if l.directory == nil {
		return false
	}

	publicKey, err := l.directory.LookupKey(tx.FromID)
	if err != nil {
		l.evHandler("ledger: AddTransaction: lookup: from[%s]: %s", tx.FromID, err)
		return false
	}

	return tx.Verify(publicKey)
}

// balanceSheet sums every confirmed and pending transaction. The caller
// must hold the lock.
func (l *Ledger) balanceSheet() *balance.Sheet {
	sets := make([][]database.Tx, 0, len(l.chain)+1)
	for _, block := range l.chain {
		sets = append(sets, block.Values())
	}
	sets = append(sets, l.mempool.Copy())

	return balance.FromTransactions(sets...)
}
