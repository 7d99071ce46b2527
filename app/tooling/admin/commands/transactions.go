package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/nameservice"
)

// Transactions writes every mined transaction, or only the ones the
// specified account sent or received.
func Transactions(w io.Writer, account string, l *ledger.Ledger, ns *nameservice.NameService) error {
	var accountID database.AccountID
	if account != "" {
		var err error
		if accountID, err = database.ToAccountID(account); err != nil {
			return err
		}
	}

	for _, block := range l.Chain() {
		for _, tx := range block.Values() {
			if accountID != "" && tx.FromID != accountID && tx.ToID != accountID {
				continue
			}

			fmt.Fprintf(w, "Block: %d  Fingerprint: %s  From: %s  To: %s  Value: %d\n",
				block.Header.Number, tx.Fingerprint(), ns.Lookup(tx.FromID), ns.Lookup(tx.ToID), tx.Value)
		}
	}

	return nil
}
