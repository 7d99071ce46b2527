package database

import (
	"context"
	"time"
)

// MaxDifficulty is the number of hex characters in a block hash.
const MaxDifficulty = 64

// cancelCheck is how many attempts are made between checks for
// cancellation.
const cancelCheck = 1 << 10

// Work describes the effort spent sealing a block.
type Work struct {
	Duration time.Duration
	Attempts uint64
}

// HashRate returns the number of hashes calculated per second.
func (w Work) HashRate() float64 {
	if w.Duration <= 0 {
		return 0
	}
	return float64(w.Attempts) / w.Duration.Seconds()
}

// SearchFunc represents a nonce search over a read-only header template.
// It returns a copy of the header with the solving nonce and the number of
// hashes calculated.
type SearchFunc func(ctx context.Context, header BlockHeader, maxNonce uint64) (BlockHeader, uint64, error)

// Search increments the nonce from its current value, recalculating the hash
// until it satisfies the header difficulty. ErrPOWExhausted is returned once
// the nonce would pass maxNonce.
func Search(ctx context.Context, header BlockHeader, maxNonce uint64) (BlockHeader, uint64, error) {
	return SearchRange(ctx, header, header.Nonce, maxNonce)
}

// SearchRange checks every nonce between from and to inclusive.
func SearchRange(ctx context.Context, header BlockHeader, from uint64, to uint64) (BlockHeader, uint64, error) {
	header.Nonce = from

	var attempts uint64
	for {
		attempts++
		if attempts%cancelCheck == 0 && ctx.Err() != nil {
			return BlockHeader{}, attempts, ctx.Err()
		}

		if isHashSolved(header.Difficulty, header.Hash()) {
			return header, attempts, nil
		}

		if header.Nonce >= to {
			return BlockHeader{}, attempts, ErrPOWExhausted
		}
		header.Nonce++
	}
}

// isHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's in the hex encoded
// hash. For a 256 bit hash this is the same as requiring the hash, read as
// a number, to be less than 2^(256-4*difficulty).
func isHashSolved(difficulty uint, hash string) bool {
	if len(hash) != MaxDifficulty || difficulty > MaxDifficulty {
		return false
	}

	for i := range difficulty {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}
