// Package ledger is the core API for the blockchain and implements all the
// business rules and processing. It owns the chain, the pending pool, and
// the current difficulty.
package ledger

import (
	"crypto/ecdsa"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
)

// Set of errors returned by the ledger.
var (
	ErrUnauthorized        = errors.New("transaction is not authorized by the sender")
	ErrInsufficientBalance = errors.New("sender balance does not cover the transaction")
	ErrStaleBlock          = errors.New("block is not based on the latest chain state")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of transactions and blocks.
type EventHandler func(v string, args ...any)

// KeyDirectory resolves an account to the public key that verifies the
// account's signatures.
type KeyDirectory interface {
	LookupKey(accountID database.AccountID) (*ecdsa.PublicKey, error)
}

// Config represents the configuration required to start the ledger.
type Config struct {
	Genesis   genesis.Genesis
	Directory KeyDirectory
	Search    database.SearchFunc
	Clock     func() time.Time
	Blocks    []database.Block
	EvHandler EventHandler
}

// Ledger manages the chain and the pending pool.
type Ledger struct {
	genesis    genesis.Genesis
	directory  KeyDirectory
	search     database.SearchFunc
	clock      func() time.Time
	controller difficulty.Controller
	evHandler  EventHandler

	mu         sync.RWMutex
	chain      []database.Block
	mempool    *mempool.Mempool
	difficulty uint

	miningMu sync.Mutex
}

// New constructs a ledger. When blocks are provided they are validated and
// become the chain, otherwise a new chain is started from the genesis block.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	search := cfg.Search
	if search == nil {
		search = database.Search
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	var chain []database.Block
	diff := cfg.Genesis.Difficulty

	switch len(cfg.Blocks) {
	case 0:
		block, err := database.NewGenesisBlock(cfg.Genesis.Date, cfg.Genesis.Difficulty)
		if err != nil {
			return nil, err
		}
		chain = []database.Block{block}
		ev("ledger: New: genesis: blk[0]: %s", block.Hash())

	default:
		ev("ledger: New: import: validating %d blocks", len(cfg.Blocks))

		// The ledger owns its chain, the caller keeps its own blocks.
		chain = make([]database.Block, len(cfg.Blocks))
		for i, block := range cfg.Blocks {
			chain[i] = block.Copy()
		}

		var err error
		diff, err = ValidateChain(chain, cfg.Genesis, ev)
		if err != nil {
			return nil, err
		}
	}

	l := Ledger{
		genesis:   cfg.Genesis,
		directory: cfg.Directory,
		search:    search,
		clock:     clock,
		controller: difficulty.Controller{
			TargetBlockTime: cfg.Genesis.TargetBlockTime.Duration,
			Interval:        cfg.Genesis.AdjustmentInterval,
		},
		evHandler: ev,

		chain:      chain,
		mempool:    mempool.New(),
		difficulty: diff,
	}

	return &l, nil
}

// Genesis returns the genesis values the ledger was started with.
func (l *Ledger) Genesis() genesis.Genesis {
	return l.genesis
}

// =============================================================================

// timeline adapts a chain to the difficulty.Timeline interface.
type timeline []database.Block

func (tl timeline) Len() int {
	return len(tl)
}

func (tl timeline) TimeAt(i int) time.Time {
	return time.UnixMilli(int64(tl[i].Header.TimeStamp))
}
