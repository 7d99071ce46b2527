package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// Set of errors produced when sealing and validating blocks.
var (
	ErrPOWExhausted   = errors.New("nonce space exhausted before the hash was solved")
	ErrChainIntegrity = errors.New("chain integrity violation")
)

// Status represents where a block is in its lifecycle.
type Status int

// Set of lifecycle states. A block is searched for a nonce only while it is
// a draft, and only sealed blocks are ever added to a chain.
const (
	StatusDraft Status = iota
	StatusSealed
	StatusAbandoned
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusSealed:
		return "sealed"
	case StatusAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64    `json:"number"`          // Position of the block in the chain, genesis is 0.
	PrevBlockHash string    `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64    `json:"timestamp"`       // Unix milliseconds when the block was drafted.
	Nonce         uint64    `json:"nonce"`           // Value identified to solve the hash solution.
	TransRoot     string    `json:"trans_root"`      // Merkle root of the transactions in this block.
	Difficulty    uint      `json:"difficulty"`      // Number of leading 0's the hash was sealed under.
	BeneficiaryID AccountID `json:"beneficiary"`     // Account receiving the mining reward.
}

// hashInput is the payload hashed to produce a block hash. Transactions are
// represented only through the merkle root. Fields are declared in ascending
// order of their JSON names.
type hashInput struct {
	Index        uint64 `json:"index"`
	MerkleRoot   string `json:"merkle_root"`
	Nonce        uint64 `json:"nonce"`
	PreviousHash string `json:"previous_hash"`
	Timestamp    uint64 `json:"timestamp"`
}

// Hash returns the unique hash for the header.
func (h BlockHeader) Hash() string {
	in := hashInput{
		Index:        h.Number,
		MerkleRoot:   h.TransRoot,
		Nonce:        h.Nonce,
		PreviousHash: h.PrevBlockHash,
		Timestamp:    h.TimeStamp,
	}

	hash, err := signature.Hash(in)
	if err != nil {
		return signature.ZeroHash
	}

	return hash
}

// IsSolved reports whether the header hash satisfies the difficulty the
// header claims.
func (h BlockHeader) IsSolved() bool {
	return isHashSolved(h.Difficulty, h.Hash())
}

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[Tx]
	status Status
}

// NewBlock constructs a draft block. The merkle root is fixed from the
// transactions at construction and the nonce starts at zero.
func NewBlock(number uint64, prevBlockHash string, now time.Time, difficulty uint, beneficiaryID AccountID, trans []Tx) (Block, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: BlockHeader{
			Number:        number,
			PrevBlockHash: prevBlockHash,
			TimeStamp:     uint64(now.UTC().UnixMilli()),
			Nonce:         0,
			TransRoot:     tree.RootHex(),
			Difficulty:    difficulty,
			BeneficiaryID: beneficiaryID,
		},
		Trans:  tree,
		status: StatusDraft,
	}

	return b, nil
}

// NewGenesisBlock constructs block 0 of a chain. It carries no transactions
// and is never mined.
func NewGenesisBlock(date time.Time, difficulty uint) (Block, error) {
	b, err := NewBlock(0, signature.ZeroHash, date, difficulty, "", nil)
	if err != nil {
		return Block{}, err
	}
	b.status = StatusSealed

	return b, nil
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {
	return b.Header.Hash()
}

// Status returns where the block is in its lifecycle.
func (b Block) Status() Status {
	return b.status
}

// Copy returns a block that shares no tree nodes or transaction data with
// the original.
func (b Block) Copy() Block {
	if b.Trans != nil {
		b.Trans = b.Trans.Copy()
	}
	return b
}

// Values returns the transactions in the block in order.
func (b Block) Values() []Tx {
	if b.Trans == nil {
		return nil
	}
	return b.Trans.Values()
}

// Seal performs the work of mining to find a nonce that solves the hash for
// the block's difficulty. Pointer semantics are being used since a nonce is
// being discovered. The search function may be nil to use the sequential
// search. On failure the block is abandoned and must be discarded.
func (b *Block) Seal(ctx context.Context, maxNonce uint64, search SearchFunc) (Work, error) {
	if b.status != StatusDraft {
		return Work{}, fmt.Errorf("block %d is %s, only drafts can be sealed", b.Header.Number, b.status)
	}

	if search == nil {
		search = Search
	}

	start := time.Now()
	header, attempts, err := search(ctx, b.Header, maxNonce)
	work := Work{
		Duration: time.Since(start),
		Attempts: attempts,
	}

	if err != nil {
		b.status = StatusAbandoned
		return work, err
	}

	// The searcher is only allowed to choose the nonce.
	claimed := header
	claimed.Nonce = b.Header.Nonce
	if claimed != b.Header {
		b.status = StatusAbandoned
		return work, errors.New("search returned a header for a different block")
	}

	if !header.IsSolved() {
		b.status = StatusAbandoned
		return work, fmt.Errorf("search returned an unsolved hash %s", header.Hash())
	}

	b.Header.Nonce = header.Nonce
	b.status = StatusSealed

	return work, nil
}

// ValidateBlock takes a block and validates it to be the next block after
// the previous block, sealed under the expected difficulty.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrChainIntegrity, b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrChainIntegrity, b.Header.PrevBlockHash, previousBlock.Hash())
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions have canonical account ids", b.Header.Number)

	for _, tx := range b.Values() {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrChainIntegrity, err)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.Header.Number)

	if err := b.validateTransRoot(); err != nil {
		return err
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block difficulty is the expected difficulty", b.Header.Number)

	if b.Header.Difficulty != difficulty {
		return fmt.Errorf("%w: block difficulty is not the expected difficulty, got %d, exp %d", ErrChainIntegrity, b.Header.Difficulty, difficulty)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	hash := b.Hash()
	if !isHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%w: %s invalid block hash for difficulty %d", ErrChainIntegrity, hash, b.Header.Difficulty)
	}

	return nil
}

// ValidateGenesis validates the block is a well formed genesis block.
func (b Block) ValidateGenesis() error {
	if b.Header.Number != 0 {
		return fmt.Errorf("%w: genesis block number is %d", ErrChainIntegrity, b.Header.Number)
	}

	if b.Header.PrevBlockHash != signature.ZeroHash {
		return fmt.Errorf("%w: genesis previous hash is %q", ErrChainIntegrity, b.Header.PrevBlockHash)
	}

	if len(b.Values()) != 0 {
		return fmt.Errorf("%w: genesis block has %d transactions", ErrChainIntegrity, len(b.Values()))
	}

	return b.validateTransRoot()
}

// validateTransRoot checks the stored tree is consistent and recomputes the
// merkle root from the transactions.
func (b Block) validateTransRoot() error {
	if b.Trans != nil {
		if err := b.Trans.Verify(); err != nil {
			return fmt.Errorf("%w: %w", ErrChainIntegrity, err)
		}
	}

	tree, err := merkle.NewTree(b.Values())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChainIntegrity, err)
	}

	if b.Header.TransRoot != tree.RootHex() {
		return fmt.Errorf("%w: merkle root does not match transactions, got %s, exp %s", ErrChainIntegrity, tree.RootHex(), b.Header.TransRoot)
	}

	return nil
}

// =============================================================================

// BlockData represents what is exported and imported for a block.
type BlockData struct {
	Hash  string      `json:"hash"`
	Block BlockHeader `json:"block"`
	Trans []Tx        `json:"trans"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	trans := block.Values()
	if trans == nil {
		trans = []Tx{}
	}

	return BlockData{
		Hash:  block.Hash(),
		Block: block.Header,
		Trans: trans,
	}
}

// ToBlock converts a BlockData into a Block. The claimed hash must match
// the hash of the header.
func ToBlock(blockData BlockData) (Block, error) {
	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: blockData.Block,
		Trans:  tree,
		status: StatusSealed,
	}

	if hash := nb.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("%w: blk[%d]: claimed hash %s, calculated %s", ErrChainIntegrity, nb.Header.Number, blockData.Hash, hash)
	}

	return nb, nil
}
