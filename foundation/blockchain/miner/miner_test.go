package miner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/miner"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func draft(t *testing.T, difficulty uint) database.Block {
	t.Helper()

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tx := database.NewRewardTx("miner", 50, now)

	block, err := database.NewBlock(1, signature.ZeroHash, now, difficulty, "miner", []database.Tx{tx})
	if err != nil {
		t.Fatalf("Should be able to draft a block: %s", err)
	}

	return block
}

// =============================================================================

func Test_Search(t *testing.T) {
	t.Log("Given the need to seal a block with multiple workers.")
	{
		for _, workers := range []int{1, 2, 4, 7} {
			t.Logf("\tTest %d:\tWhen searching with %d workers.", workers, workers)
			{
				block := draft(t, 2)
				s := miner.New(workers, nil)

				work, err := block.Seal(context.Background(), 1<<32, s.Search)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to seal the block: %s", failed, workers, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to seal the block.", success, workers)

				if block.Status() != database.StatusSealed || !block.Header.IsSolved() {
					t.Fatalf("\t%s\tTest %d:\tShould have a sealed and solved block.", failed, workers)
				}
				t.Logf("\t%s\tTest %d:\tShould have a sealed and solved block.", success, workers)

				if work.Attempts == 0 {
					t.Fatalf("\t%s\tTest %d:\tShould count the attempts.", failed, workers)
				}
				t.Logf("\t%s\tTest %d:\tShould count the attempts.", success, workers)
			}
		}
	}
}

func Test_SearchExhausted(t *testing.T) {
	block := draft(t, 12)
	s := miner.New(4, nil)

	_, attempts, err := s.Search(context.Background(), block.Header, 10)
	if !errors.Is(err, database.ErrPOWExhausted) {
		t.Fatalf("Should get back ErrPOWExhausted, got %v", err)
	}

	if attempts != 11 {
		t.Fatalf("Should try every nonce exactly once, got %d attempts", attempts)
	}
}

func Test_SearchStartPastMax(t *testing.T) {
	block := draft(t, 1)
	block.Header.Nonce = 20

	s := miner.New(2, nil)
	if _, _, err := s.Search(context.Background(), block.Header, 10); !errors.Is(err, database.ErrPOWExhausted) {
		t.Fatalf("Should get back ErrPOWExhausted, got %v", err)
	}
}

func Test_SearchCancelled(t *testing.T) {
	block := draft(t, 64)
	s := miner.New(3, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := s.Search(ctx, block.Header, 1<<62)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Should get back the context error, got %v", err)
	}
}

func Test_DefaultWorkers(t *testing.T) {
	if miner.New(0, nil).Workers() < 1 {
		t.Fatalf("Should use at least one worker.")
	}
}
