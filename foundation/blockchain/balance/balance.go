// Package balance derives account balances purely from transaction history.
package balance

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Sheet represents the data representation to maintain account balances.
// A balance is the sum of every value received minus every value sent, so
// the order transactions are applied in never changes the result. The
// system account goes negative by the amount it has issued.
type Sheet struct {
	sheet map[database.AccountID]int64
}

// NewSheet constructs a new empty balance sheet for use.
func NewSheet() *Sheet {
	return &Sheet{
		sheet: make(map[database.AccountID]int64),
	}
}

// FromTransactions constructs a balance sheet from the specified sets of
// transactions.
func FromTransactions(sets ...[]database.Tx) *Sheet {
	bs := NewSheet()
	for _, txs := range sets {
		for _, tx := range txs {
			bs.ApplyTransaction(tx)
		}
	}

	return bs
}

// ApplyTransaction moves the value of the transaction from the sender to
// the recipient.
func (bs *Sheet) ApplyTransaction(tx database.Tx) {
	bs.sheet[tx.FromID] -= int64(tx.Value)
	bs.sheet[tx.ToID] += int64(tx.Value)
}

// Balance returns the balance for the specified account.
func (bs *Sheet) Balance(accountID database.AccountID) int64 {
	return bs.sheet[accountID]
}

// Covers reports whether the account holds at least the specified value.
func (bs *Sheet) Covers(accountID database.AccountID, value uint64) bool {
	balance := bs.sheet[accountID]
	return balance >= 0 && uint64(balance) >= value
}

// Copy makes a copy of the current balance sheet but returns the raw data.
func (bs *Sheet) Copy() map[database.AccountID]int64 {
	sheet := make(map[database.AccountID]int64, len(bs.sheet))
	for accountID, value := range bs.sheet {
		sheet[accountID] = value
	}
	return sheet
}
