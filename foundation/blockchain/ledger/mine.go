package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// DraftBlock constructs the next candidate block from the pending pool
// followed by the reward for the beneficiary. The header is a stable input
// for any nonce search and the ledger is not changed.
func (l *Ledger) DraftBlock(beneficiaryID database.AccountID) (database.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.clock()

	reward := database.NewRewardTx(beneficiaryID, l.genesis.MiningReward, now)
	if err := reward.Validate(); err != nil {
		return database.Block{}, err
	}

	trans := l.mempool.Copy()
	trans = append(trans, reward)

	tail := l.chain[len(l.chain)-1]

	block, err := database.NewBlock(uint64(len(l.chain)), tail.Hash(), now, l.difficulty, beneficiaryID, trans)
	if err != nil {
		return database.Block{}, err
	}

	l.evHandler("ledger: DraftBlock: blk[%d]: trans[%d]: difficulty[%d]", block.Header.Number, len(trans), block.Header.Difficulty)

	return block, nil
}

// AppendBlock adds a sealed candidate to the chain, removes the pending
// transactions it carries from the pool, and retargets the difficulty. A
// block drafted before the chain or the head of the pool changed is
// rejected with ErrStaleBlock.
func (l *Ledger) AppendBlock(block database.Block) error {
	if block.Status() != database.StatusSealed {
		return fmt.Errorf("block %d is %s, only sealed blocks can be appended", block.Header.Number, block.Status())
	}

	// The ledger keeps its own copy of what it validates.
	block = block.Copy()

	l.mu.Lock()
	defer l.mu.Unlock()

	tail := l.chain[len(l.chain)-1]
	if block.Header.Number != uint64(len(l.chain)) || block.Header.PrevBlockHash != tail.Hash() {
		return fmt.Errorf("%w: blk[%d] does not extend blk[%d]", ErrStaleBlock, block.Header.Number, tail.Header.Number)
	}

	if err := block.ValidateBlock(tail, l.difficulty, l.evHandler); err != nil {
		return err
	}

	trans := block.Values()
	if len(trans) == 0 {
		return fmt.Errorf("%w: blk[%d] has no reward transaction", database.ErrChainIntegrity, block.Header.Number)
	}

	reward := trans[len(trans)-1]
	if !reward.FromID.IsSystem() || reward.ToID != block.Header.BeneficiaryID || reward.Value != l.genesis.MiningReward {
		return fmt.Errorf("%w: blk[%d] has an invalid reward transaction %s", database.ErrChainIntegrity, block.Header.Number, reward)
	}

	// The remaining transactions must be the head of the pool in order.
	drafted := trans[:len(trans)-1]
	pool := l.mempool.Copy()
	if len(drafted) > len(pool) {
		return fmt.Errorf("%w: blk[%d] carries %d pending transactions, pool has %d", ErrStaleBlock, block.Header.Number, len(drafted), len(pool))
	}
	for i, tx := range drafted {
		if !tx.Equals(pool[i]) {
			return fmt.Errorf("%w: blk[%d] transaction %d is not pending at that position", ErrStaleBlock, block.Header.Number, i)
		}
	}

	l.chain = append(l.chain, block)
	l.mempool.RemoveFirst(len(drafted))

	l.evHandler("ledger: AppendBlock: blk[%d]: %s: trans[%d]: pool[%d]", block.Header.Number, block.Hash(), len(trans), l.mempool.Count())

	l.adjustDifficulty()

	return nil
}

// MinePendingTransactions drafts a block from the pending pool, seals it
// under the current difficulty, and appends it to the chain. On failure the
// chain and the pool are unchanged and the call can be retried.
func (l *Ledger) MinePendingTransactions(ctx context.Context, beneficiaryID database.AccountID) (database.Block, database.Work, error) {
	l.miningMu.Lock()
	defer l.miningMu.Unlock()

	l.evHandler("ledger: MinePendingTransactions: MINING: started: beneficiary[%s]", beneficiaryID)
	defer l.evHandler("ledger: MinePendingTransactions: MINING: completed")

	block, err := l.DraftBlock(beneficiaryID)
	if err != nil {
		return database.Block{}, database.Work{}, err
	}

	work, err := block.Seal(ctx, l.genesis.MaxNonce, l.search)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrPOWExhausted):
			l.evHandler("ledger: MinePendingTransactions: MINING: EXHAUSTED: attempts[%d]", work.Attempts)
		case ctx.Err() != nil:
			l.evHandler("ledger: MinePendingTransactions: MINING: CANCEL: complete")
		default:
			l.evHandler("ledger: MinePendingTransactions: MINING: ERROR: %s", err)
		}
		return database.Block{}, work, err
	}

	l.evHandler("ledger: MinePendingTransactions: MINING: SOLVED: blk[%d]: nonce[%d]: attempts[%d]: duration[%v]", block.Header.Number, block.Header.Nonce, work.Attempts, work.Duration)

	if err := l.AppendBlock(block); err != nil {
		return database.Block{}, work, err
	}

	return block, work, nil
}

// adjustDifficulty retargets the difficulty for the next block. The caller
// must hold the lock.
func (l *Ledger) adjustDifficulty() {
	next := l.controller.Retarget(l.difficulty, timeline(l.chain))
	if next != l.difficulty {
		l.evHandler("ledger: adjustDifficulty: blk[%d]: difficulty[%d] -> difficulty[%d]", len(l.chain)-1, l.difficulty, next)
	}
	l.difficulty = next
}
