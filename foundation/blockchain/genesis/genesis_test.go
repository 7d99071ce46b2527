package genesis_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

func Test_Load(t *testing.T) {
	const content = `{
	"date": "2024-01-01T00:00:00Z",
	"difficulty": 3,
	"mining_reward": 700,
	"target_block_time": "15s",
	"adjustment_interval": 5,
	"max_nonce": 1000
}`

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %s", err)
	}

	if gen.Difficulty != 3 || gen.MiningReward != 700 || gen.AdjustmentInterval != 5 || gen.MaxNonce != 1000 {
		t.Fatalf("Should get back the values from the file: %+v", gen)
	}

	if gen.TargetBlockTime.Duration != 15*time.Second {
		t.Fatalf("Should parse the target block time, got %v", gen.TargetBlockTime)
	}
}

func Test_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(`{"difficulty": 0}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	if _, err := genesis.Load(path); err == nil {
		t.Fatalf("Should not accept a zero difficulty.")
	}

	tooHard := genesis.Default()
	tooHard.Difficulty = 65
	if err := tooHard.Validate(); err == nil {
		t.Fatalf("Should not accept a difficulty no hash can meet.")
	}

	hardest := genesis.Default()
	hardest.Difficulty = 64
	if err := hardest.Validate(); err != nil {
		t.Fatalf("Should accept the full hash length as a difficulty: %s", err)
	}

	if _, err := genesis.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("Should fail on a missing file.")
	}
}

func Test_Default(t *testing.T) {
	if err := genesis.Default().Validate(); err != nil {
		t.Fatalf("Should get valid default values: %s", err)
	}
}
