package balance_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/balance"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestTransactions(t *testing.T) {
	type table struct {
		name  string
		txs   []database.Tx
		final map[database.AccountID]int64
	}

	now := time.Now()

	tt := []table{
		{
			name: "basic",
			txs: []database.Tx{
				database.NewRewardTx("miner", 100, now),
				database.NewTx("miner", "alice", 40, now),
				database.NewTx("alice", "bob", 15, now),
				database.NewRewardTx("miner", 100, now),
			},
			final: map[database.AccountID]int64{
				database.SystemAccountID: -200,
				"miner":                  160,
				"alice":                  25,
				"bob":                    15,
			},
		},
	}

	t.Log("Given the need to validate the balance sheet.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transactions.", testID)
			{
				f := func(t *testing.T) {
					bs := balance.FromTransactions(tst.txs)

					sheet := bs.Copy()
					if len(sheet) != len(tst.final) {
						t.Fatalf("\t%s\tTest %d:\tShould have %d accounts, got %d.", failed, testID, len(tst.final), len(sheet))
					}

					for accountID, exp := range tst.final {
						if got := bs.Balance(accountID); got != exp {
							t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, got)
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, exp)
							t.Fatalf("\t%s\tTest %d:\tShould have correct balance for %s.", failed, testID, accountID)
						}
						t.Logf("\t%s\tTest %d:\tShould have correct balance for %s.", success, testID, accountID)
					}

					if !bs.Covers("alice", 25) || bs.Covers("alice", 26) {
						t.Fatalf("\t%s\tTest %d:\tShould cover exactly the balance.", failed, testID)
					}

					if bs.Covers(database.SystemAccountID, 0) {
						t.Fatalf("\t%s\tTest %d:\tShould not cover anything from a negative balance.", failed, testID)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestOrderIndependent(t *testing.T) {
	now := time.Now()
	txs := []database.Tx{
		database.NewRewardTx("miner", 100, now),
		database.NewTx("miner", "alice", 40, now),
		database.NewTx("alice", "bob", 15, now),
		database.NewTx("bob", "miner", 5, now),
		database.NewTx("alice", "carol", 7, now),
	}

	exp := balance.FromTransactions(txs).Copy()

	rnd := rand.New(rand.NewSource(1))
	for range 20 {
		shuffled := make([]database.Tx, len(txs))
		copy(shuffled, txs)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		// Splitting the history across sets must not matter either.
		split := rnd.Intn(len(shuffled))
		got := balance.FromTransactions(shuffled[:split], shuffled[split:]).Copy()

		for accountID, value := range exp {
			if got[accountID] != value {
				t.Fatalf("Should get the same balance for %s in any order, got %d, exp %d.", accountID, got[accountID], value)
			}
		}
	}
}
