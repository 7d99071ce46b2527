package database_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

func Test_ExportChain(t *testing.T) {
	gen := genesis(t)

	b := draft(t, gen, 1, database.NewTx("alice", "bob", 5, time.Now()))
	if _, err := b.Seal(context.Background(), 1<<32, nil); err != nil {
		t.Fatalf("Should be able to seal the block: %v", err)
	}

	content, err := json.Marshal(database.ExportChain([]database.Block{gen, b}))
	if err != nil {
		t.Fatalf("Should be able to marshal the chain: %v", err)
	}

	t.Log("Given the need to read an exported chain.")
	{
		t.Logf("\tTest 0:\tWhen reading from a file.")
		{
			path := filepath.Join(t.TempDir(), "chain.json")
			if err := os.WriteFile(path, content, 0600); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write the chain file: %v", failed, err)
			}

			blocks, err := database.LoadChain(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to load the chain.", success)

			if len(blocks) != 2 || blocks[1].Hash() != b.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould get back the same blocks.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the same blocks.", success)
		}

		t.Logf("\tTest 1:\tWhen a block hash was altered.")
		{
			data := database.ExportChain([]database.Block{gen, b})
			data[1].Hash = gen.Hash()

			altered, err := json.Marshal(data)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to marshal the chain: %v", failed, err)
			}

			if _, err := database.ReadChain(bytes.NewReader(altered)); !errors.Is(err, database.ErrChainIntegrity) {
				t.Fatalf("\t%s\tTest 1:\tShould get an integrity violation, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get an integrity violation.", success)
		}
	}
}
