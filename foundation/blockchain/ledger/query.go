package ledger

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Chain returns a copy of the sealed blocks in order. Changing the copy
// never changes the ledger.
func (l *Ledger) Chain() []database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	chain := make([]database.Block, len(l.chain))
	for i, block := range l.chain {
		chain[i] = block.Copy()
	}

	return chain
}

// LatestBlock returns a copy of the tail of the chain.
func (l *Ledger) LatestBlock() database.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain[len(l.chain)-1].Copy()
}

// Difficulty returns the difficulty the next block must be sealed under.
func (l *Ledger) Difficulty() uint {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.difficulty
}

// PendingPool returns a copy of the pending transactions in arrival order.
func (l *Ledger) PendingPool() []database.Tx {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.mempool.Copy()
}

// Balance returns the balance for the account from every confirmed and
// pending transaction.
func (l *Ledger) Balance(accountID database.AccountID) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balanceSheet().Balance(accountID)
}

// Balances returns the balance of every account that has transacted.
func (l *Ledger) Balances() map[database.AccountID]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balanceSheet().Copy()
}

// Snapshot is a consistent view of the ledger taken under a single lock.
type Snapshot struct {
	LatestBlock database.Block
	Pending     int
	Balances    map[database.AccountID]int64
}

// Snapshot returns the tail of the chain, the number of pending
// transactions, and the balance sheet as they stood at one moment.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Snapshot{
		LatestBlock: l.chain[len(l.chain)-1].Copy(),
		Pending:     l.mempool.Count(),
		Balances:    l.balanceSheet().Copy(),
	}
}
