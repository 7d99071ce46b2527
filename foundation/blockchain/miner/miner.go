// Package miner provides a nonce search that spreads the work across
// multiple goroutines.
package miner

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Searcher splits the nonce space into contiguous ranges and searches each
// range on its own goroutine. The first goroutine to solve the hash cancels
// the rest.
type Searcher struct {
	workers   int
	evHandler func(v string, args ...any)
}

// New constructs a searcher using the specified number of goroutines. A
// value less than one uses one goroutine per CPU.
func New(workers int, evHandler func(v string, args ...any)) *Searcher {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	return &Searcher{
		workers:   workers,
		evHandler: evHandler,
	}
}

// Workers returns the number of goroutines used for a search.
func (s *Searcher) Workers() int {
	return s.workers
}

// Search implements the database.SearchFunc signature. Any nonce between the
// header's nonce and maxNonce inclusive may be returned, not necessarily the
// smallest one.
func (s *Searcher) Search(ctx context.Context, header database.BlockHeader, maxNonce uint64) (database.BlockHeader, uint64, error) {
	if header.Nonce > maxNonce {
		return database.BlockHeader{}, 0, database.ErrPOWExhausted
	}

	ranges := split(header.Nonce, maxNonce, s.workers)

	s.evHandler("miner: Search: started: blk[%d]: difficulty[%d]: workers[%d]", header.Number, header.Difficulty, len(ranges))
	defer s.evHandler("miner: Search: completed: blk[%d]", header.Number)

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		attempts atomic.Uint64
		once     sync.Once
		solved   database.BlockHeader
		found    bool
	)

	var wg sync.WaitGroup
	wg.Add(len(ranges))

	for i, r := range ranges {
		go func() {
			defer wg.Done()

			h, n, err := database.SearchRange(ctx, header, r.from, r.to)
			attempts.Add(n)

			if err != nil {
				if !errors.Is(err, database.ErrPOWExhausted) && ctx.Err() == nil {
					s.evHandler("miner: Search: worker[%d]: ERROR: %s", i, err)
				}
				return
			}

			once.Do(func() {
				s.evHandler("miner: Search: worker[%d]: SOLVED: nonce[%d]", i, h.Nonce)
				solved = h
				found = true
				cancel()
			})
		}()
	}

	wg.Wait()

	if found {
		return solved, attempts.Load(), nil
	}

	if err := parent.Err(); err != nil {
		return database.BlockHeader{}, attempts.Load(), err
	}

	return database.BlockHeader{}, attempts.Load(), database.ErrPOWExhausted
}

// =============================================================================

// nonceRange is an inclusive range of nonces.
type nonceRange struct {
	from uint64
	to   uint64
}

// split divides [from, to] into at most n contiguous ranges.
func split(from uint64, to uint64, n int) []nonceRange {
	span := to - from

	if uint64(n) > span {
		n = int(span) + 1
	}

	chunk := span / uint64(n)
	if chunk == 0 {
		chunk = 1
	}

	ranges := make([]nonceRange, n)
	for i := range n {
		lo := from + uint64(i)*chunk
		hi := lo + chunk - 1
		if i == n-1 {
			hi = to
		}
		ranges[i] = nonceRange{from: lo, to: hi}
	}

	return ranges
}
