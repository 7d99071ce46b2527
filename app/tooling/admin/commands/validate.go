// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
)

// Validate checks every chain invariant and reports the outcome.
func Validate(w io.Writer, blocks []database.Block, gen genesis.Genesis, ev ledger.EventHandler) error {
	next, err := ledger.ValidateChain(blocks, gen, ev)
	if err != nil {
		fmt.Fprintf(w, "Chain is invalid: %s\n", err)
		return err
	}

	latest := blocks[len(blocks)-1]

	fmt.Fprintf(w, "Blocks: %d\n", len(blocks))
	fmt.Fprintf(w, "LatestBlockHash: %s\n", latest.Hash())
	fmt.Fprintf(w, "NextDifficulty: %d\n", next)
	fmt.Fprintln(w, "Chain is valid")

	return nil
}
