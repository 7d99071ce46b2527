package database

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadChain decodes a chain in the export form, a JSON array of BlockData.
// Every block must carry the hash of its own header.
func ReadChain(r io.Reader) ([]Block, error) {
	var data []BlockData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding chain: %w", err)
	}

	blocks := make([]Block, len(data))
	for i, bd := range data {
		block, err := ToBlock(bd)
		if err != nil {
			return nil, err
		}
		blocks[i] = block
	}

	return blocks, nil
}

// LoadChain opens and decodes an exported chain file.
func LoadChain(path string) ([]Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadChain(f)
}

// ExportChain converts the blocks into their export form.
func ExportChain(blocks []Block) []BlockData {
	data := make([]BlockData, len(blocks))
	for i, block := range blocks {
		data[i] = NewBlockData(block)
	}

	return data
}
