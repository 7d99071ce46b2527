package public

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// submitTx is the payload for a signed transaction.
type submitTx struct {
	From      string        `json:"from" validate:"required,account"`
	To        string        `json:"to" validate:"required"`
	Value     uint64        `json:"value"`
	TimeStamp uint64        `json:"timestamp" validate:"required"`
	Signature hexutil.Bytes `json:"signature" validate:"required"`
}

func (st submitTx) toDatabaseTx() database.Tx {
	return database.Tx{
		FromID:    database.AccountID(st.From),
		ToID:      database.AccountID(st.To),
		Value:     st.Value,
		TimeStamp: st.TimeStamp,
		Signature: st.Signature,
	}
}

// mineRequest optionally names the account receiving the mining reward.
type mineRequest struct {
	Beneficiary string `json:"beneficiary"`
}

type tx struct {
	Fingerprint string             `json:"fingerprint"`
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	Value       uint64             `json:"value"`
	TimeStamp   uint64             `json:"timestamp"`
	Sig         string             `json:"sig,omitempty"`
}

type block struct {
	Hash          string             `json:"hash"`
	Number        uint64             `json:"number"`
	PrevBlockHash string             `json:"prev_block_hash"`
	TimeStamp     uint64             `json:"timestamp"`
	Nonce         uint64             `json:"nonce"`
	TransRoot     string             `json:"trans_root"`
	Difficulty    uint               `json:"difficulty"`
	Beneficiary   database.AccountID `json:"beneficiary"`
	Transactions  []tx               `json:"txs"`
}

type work struct {
	Attempts uint64  `json:"attempts"`
	Duration string  `json:"duration"`
	HashRate float64 `json:"hash_rate"`
}

type mined struct {
	Block block `json:"block"`
	Work  work  `json:"work"`
}

type balance struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance int64              `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

type validation struct {
	Valid      bool   `json:"valid"`
	Blocks     int    `json:"blocks"`
	Difficulty uint   `json:"difficulty"`
	Error      string `json:"error,omitempty"`
}
