package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/nameservice"
)

// Balances writes the balance of every account, or only the one specified.
func Balances(w io.Writer, account string, l *ledger.Ledger, ns *nameservice.NameService) error {
	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", l.LatestBlock().Hash())

	if account != "" {
		accountID, err := database.ToAccountID(account)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Account: %s  Name: %s  Balance: %d\n", accountID, ns.Lookup(accountID), l.Balance(accountID))
		return nil
	}

	bals := l.Balances()

	accounts := make([]database.AccountID, 0, len(bals))
	for accountID := range bals {
		accounts = append(accounts, accountID)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	for _, accountID := range accounts {
		fmt.Fprintf(w, "Account: %s  Name: %s  Balance: %d\n", accountID, ns.Lookup(accountID), bals[accountID])
	}

	return nil
}
