// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date               time.Time `json:"date"`                // Timestamp recorded on block 0.
	Difficulty         uint      `json:"difficulty"`          // Starting number of leading 0's needed to solve the work problem.
	MiningReward       uint64    `json:"mining_reward"`       // Reward for mining a block.
	TargetBlockTime    Duration  `json:"target_block_time"`   // Desired average time between blocks.
	AdjustmentInterval int       `json:"adjustment_interval"` // Number of blocks between difficulty adjustments.
	MaxNonce           uint64    `json:"max_nonce"`           // Largest nonce tried before mining gives up.
}

// Default returns the genesis values used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:               time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:         2,
		MiningReward:       50,
		TargetBlockTime:    Duration{10 * time.Second},
		AdjustmentInterval: 10,
		MaxNonce:           1 << 32,
	}
}

// Validate checks the values can drive a ledger.
func (g Genesis) Validate() error {
	switch {
	case g.Difficulty < 1:
		return errors.New("difficulty must be at least 1")
	case g.Difficulty > database.MaxDifficulty:
		return fmt.Errorf("difficulty must be at most %d", database.MaxDifficulty)
	case g.AdjustmentInterval < 1:
		return errors.New("adjustment interval must be at least 1")
	case g.TargetBlockTime.Duration <= 0:
		return errors.New("target block time must be positive")
	case g.MaxNonce == 0:
		return errors.New("max nonce must be positive")
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("invalid genesis file %q: %w", path, err)
	}

	return genesis, nil
}

// =============================================================================

// Duration lets durations in the genesis file be written as "10s".
type Duration struct {
	time.Duration
}

// MarshalJSON implements the json.Marshaler interface.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v

	return nil
}
