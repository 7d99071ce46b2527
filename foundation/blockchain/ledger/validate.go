package ledger

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

// ValidateChain re-derives every chain invariant for the ledger's own chain.
func (l *Ledger) ValidateChain() error {
	l.mu.RLock()
	chain := make([]database.Block, len(l.chain))
	copy(chain, l.chain)
	current := l.difficulty
	l.mu.RUnlock()

	diff, err := ValidateChain(chain, l.genesis, l.evHandler)
	if err != nil {
		return err
	}

	if diff != current {
		return fmt.Errorf("%w: difficulty is %d, chain implies %d", database.ErrChainIntegrity, current, diff)
	}

	return nil
}

// ValidateChain checks the blocks form a chain started from the genesis
// values. The difficulty controller is replayed so every block is checked
// against the difficulty it had to be sealed under. The difficulty for the
// next block is returned.
func ValidateChain(blocks []database.Block, gen genesis.Genesis, evHandler EventHandler) (uint, error) {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if len(blocks) == 0 {
		return 0, fmt.Errorf("%w: chain is empty", database.ErrChainIntegrity)
	}

	evHandler("ledger: ValidateChain: started: blocks[%d]", len(blocks))
	defer evHandler("ledger: ValidateChain: completed")

	if err := blocks[0].ValidateGenesis(); err != nil {
		return 0, err
	}

	if blocks[0].Header.Difficulty != gen.Difficulty {
		return 0, fmt.Errorf("%w: genesis difficulty is %d, exp %d", database.ErrChainIntegrity, blocks[0].Header.Difficulty, gen.Difficulty)
	}

	ctrl := difficulty.Controller{
		TargetBlockTime: gen.TargetBlockTime.Duration,
		Interval:        gen.AdjustmentInterval,
	}

	diff := gen.Difficulty
	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], diff, evHandler); err != nil {
			return 0, err
		}

		diff = ctrl.Retarget(diff, timeline(blocks[:i+1]))
	}

	return diff, nil
}
