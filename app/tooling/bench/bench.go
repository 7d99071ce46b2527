package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/blockchain/miner"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

// benchConfig represents what a bench run needs.
type benchConfig struct {
	Genesis    genesis.Genesis
	Duration   time.Duration
	MaxBlocks  int
	TxPerBlock int
	Workers    int
	EvHandler  ledger.EventHandler
}

// result is the measurement for a single mined block.
type result struct {
	Number     uint64
	Difficulty uint
	Trans      int
	Attempts   uint64
	Duration   time.Duration
	HashRate   float64
}

// runBench drives a ledger with signed transactions, mining a block after
// every batch until the duration passes or the block limit is reached.
func runBench(ctx context.Context, cfg benchConfig) ([]result, error) {
	ns := nameservice.New()

	sender, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	senderID := ns.Add("sender", &sender.PublicKey)

	recipients := make([]database.AccountID, 3)
	for i := range recipients {
		pk, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		recipients[i] = ns.Add(fmt.Sprintf("recipient%d", i), &pk.PublicKey)
	}

	searcher := miner.New(cfg.Workers, nil)

	l, err := ledger.New(ledger.Config{
		Genesis:   cfg.Genesis,
		Directory: ns,
		Search:    searcher.Search,
		EvHandler: cfg.EvHandler,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var results []result
	for cfg.MaxBlocks <= 0 || len(results) < cfg.MaxBlocks {

		// The reward is what funds the transfers.
		for i := range cfg.TxPerBlock {
			if err := submit(l, sender, senderID, recipients[i%len(recipients)]); err != nil {
				return results, err
			}
		}

		block, work, err := l.MinePendingTransactions(ctx, senderID)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return results, err
		}

		results = append(results, result{
			Number:     block.Header.Number,
			Difficulty: block.Header.Difficulty,
			Trans:      len(block.Values()),
			Attempts:   work.Attempts,
			Duration:   work.Duration,
			HashRate:   work.HashRate(),
		})
	}

	if err := l.ValidateChain(); err != nil {
		return results, fmt.Errorf("chain failed validation: %w", err)
	}

	return results, nil
}

// submit sends a value of one when the sender can cover it.
func submit(l *ledger.Ledger, sender *ecdsa.PrivateKey, senderID database.AccountID, to database.AccountID) error {
	if l.Balance(senderID) < 1 {
		return nil
	}

	tx, err := database.NewTx(senderID, to, 1, time.Now()).Sign(sender)
	if err != nil {
		return err
	}

	if err := l.AddTransactionWithReason(tx); err != nil && !errors.Is(err, ledger.ErrInsufficientBalance) {
		return err
	}

	return nil
}
