package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/app/services/node/handlers"
	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// NodeTests holds methods for each node subtest. This type allows passing
// dependencies for tests while still providing a convenient syntax when
// subtests are registered.
type NodeTests struct {
	app     http.Handler
	ledger  *ledger.Ledger
	evts    *events.Events
	account database.AccountID
	sign    func(tx database.Tx) (database.Tx, error)
}

func newNodeTests(t *testing.T, log *zap.SugaredLogger) *NodeTests {
	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}

	ns := nameservice.New()
	account := ns.Add("kennedy", &pk.PublicKey)

	evts := events.New()

	gen := genesis.Default()
	gen.Difficulty = 1

	l, err := ledger.New(ledger.Config{
		Genesis:   gen,
		Directory: ns,
		EvHandler: evts.Sendf,
	})
	if err != nil {
		t.Fatalf("Should be able to construct a ledger: %s", err)
	}

	app := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         log,
		Ledger:      l,
		NS:          ns,
		Evts:        evts,
		Beneficiary: account,
	})

	return &NodeTests{
		app:     app,
		ledger:  l,
		evts:    evts,
		account: account,
		sign: func(tx database.Tx) (database.Tx, error) {
			return tx.Sign(pk)
		},
	}
}

func (nt *NodeTests) do(t *testing.T, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Should be able to encode the body: %s", err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	nt.app.ServeHTTP(w, r)

	return w
}

// =============================================================================

func Test_Node(t *testing.T) {
	nt := newNodeTests(t, zaptest.NewLogger(t).Sugar())

	t.Run("mine", nt.mine)
	t.Run("submitTransaction", nt.submitTransaction)
	t.Run("submitUnauthorized", nt.submitUnauthorized)
	t.Run("submitValidation", nt.submitValidation)
	t.Run("balances", nt.balances)
	t.Run("blocks", nt.blocks)
	t.Run("validateChain", nt.validateChain)
	t.Run("exportChain", nt.exportChain)
}

func (nt *NodeTests) mine(t *testing.T) {
	t.Log("Given the need to mine a block through the API.")
	{
		t.Logf("\tTest 0:\tWhen mining with an empty pending pool.")
		{
			w := nt.do(t, http.MethodPost, "/v1/mining/mine", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould receive a status code of 200 for the response : %v", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould receive a status code of 200 for the response.", success)

			var resp struct {
				Block struct {
					Number      uint64             `json:"number"`
					Beneficiary database.AccountID `json:"beneficiary"`
				} `json:"block"`
				Work struct {
					Attempts uint64 `json:"attempts"`
				} `json:"work"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to unmarshal the response : %s", failed, err)
			}

			if resp.Block.Number != 1 || resp.Block.Beneficiary != nt.account || resp.Work.Attempts == 0 {
				t.Fatalf("\t%s\tTest 0:\tShould get back the mined block : %+v", failed, resp)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the mined block.", success)
		}
	}
}

func (nt *NodeTests) submitTransaction(t *testing.T) {
	tx, err := nt.sign(database.NewTx(nt.account, "bob", 10, time.Now()))
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	body := map[string]any{
		"from":      tx.FromID,
		"to":        tx.ToID,
		"value":     tx.Value,
		"timestamp": tx.TimeStamp,
		"signature": hexutil.Encode(tx.Signature),
	}

	w := nt.do(t, http.MethodPost, "/v1/tx/submit", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for the response : %v : %s", w.Code, w.Body.String())
	}

	w = nt.do(t, http.MethodGet, "/v1/tx/pending/bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for the response : %v", w.Code)
	}

	var pending []struct {
		Fingerprint string `json:"fingerprint"`
	}
	if err := json.NewDecoder(w.Body).Decode(&pending); err != nil {
		t.Fatalf("Should be able to unmarshal the response : %s", err)
	}

	if len(pending) != 1 || pending[0].Fingerprint != tx.Fingerprint() {
		t.Fatalf("Should get back the pending transaction : %+v", pending)
	}

	// The sender only holds the reward from the first block.
	tx, err = nt.sign(database.NewTx(nt.account, "bob", 1000, time.Now()))
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}
	body["value"] = tx.Value
	body["timestamp"] = tx.TimeStamp
	body["signature"] = hexutil.Encode(tx.Signature)

	w = nt.do(t, http.MethodPost, "/v1/tx/submit", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Should receive a status code of 400 for the response : %v", w.Code)
	}
}

func (nt *NodeTests) submitUnauthorized(t *testing.T) {
	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	tx, err := database.NewTx(nt.account, "bob", 1, time.Now()).Sign(other)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	body := map[string]any{
		"from":      tx.FromID,
		"to":        tx.ToID,
		"value":     tx.Value,
		"timestamp": tx.TimeStamp,
		"signature": hexutil.Encode(tx.Signature),
	}

	before := len(nt.ledger.PendingPool())

	w := nt.do(t, http.MethodPost, "/v1/tx/submit", body)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Should receive a status code of 403 for the response : %v", w.Code)
	}

	var resp errs.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Should be able to unmarshal the response : %s", err)
	}

	if resp.Code != errs.CodeUnauthorized {
		t.Fatalf("Should report the unauthorized code : %+v", resp)
	}

	if len(nt.ledger.PendingPool()) != before {
		t.Fatalf("Should leave the pending pool unchanged.")
	}
}

func (nt *NodeTests) submitValidation(t *testing.T) {
	body := map[string]any{
		"from":  "alice",
		"value": 1,
	}

	w := nt.do(t, http.MethodPost, "/v1/tx/submit", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Should receive a status code of 400 for the response : %v", w.Code)
	}

	var resp errs.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Should be able to unmarshal the response : %s", err)
	}

	if resp.Code != errs.CodeInvalid {
		t.Fatalf("Should report the invalid request code : %+v", resp)
	}

	for _, field := range []string{"from", "to", "timestamp", "signature"} {
		if _, exists := resp.Fields[field]; !exists {
			t.Fatalf("Should report the %s field : %+v", field, resp)
		}
	}
}

func (nt *NodeTests) balances(t *testing.T) {
	w := nt.do(t, http.MethodGet, fmt.Sprintf("/v1/balances/list/%s", nt.account), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for the response : %v", w.Code)
	}

	var resp struct {
		Uncommitted int `json:"uncommitted"`
		Balances    []struct {
			Name    string `json:"name"`
			Balance int64  `json:"balance"`
		} `json:"balances"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Should be able to unmarshal the response : %s", err)
	}

	reward := int64(nt.ledger.Genesis().MiningReward)
	if len(resp.Balances) != 1 || resp.Balances[0].Name != "kennedy" || resp.Balances[0].Balance != reward-10 {
		t.Fatalf("Should get back the balance with the pending transfer : %+v", resp)
	}

	if resp.Uncommitted != 1 {
		t.Fatalf("Should count the pending transaction : %+v", resp)
	}
}

func (nt *NodeTests) blocks(t *testing.T) {
	w := nt.do(t, http.MethodPost, "/v1/mining/mine", map[string]string{"beneficiary": "M1"})
	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for the response : %v", w.Code)
	}

	w = nt.do(t, http.MethodGet, "/v1/blocks/list", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for the response : %v", w.Code)
	}

	var blocks []struct {
		Hash          string `json:"hash"`
		PrevBlockHash string `json:"prev_block_hash"`
		Transactions  []struct {
			To string `json:"to"`
		} `json:"txs"`
	}
	if err := json.NewDecoder(w.Body).Decode(&blocks); err != nil {
		t.Fatalf("Should be able to unmarshal the response : %s", err)
	}

	if len(blocks) != 3 {
		t.Fatalf("Should get back 3 blocks, got %d", len(blocks))
	}

	for i := 1; i < len(blocks); i++ {
		if blocks[i].PrevBlockHash != blocks[i-1].Hash {
			t.Fatalf("Should link block %d to its parent.", i)
		}
	}

	last := blocks[2].Transactions
	if len(last) != 2 || last[0].To != "bob" || last[1].To != "M1" {
		t.Fatalf("Should carry the pending transaction and the reward : %+v", last)
	}

	if len(nt.ledger.PendingPool()) != 0 {
		t.Fatalf("Should clear the pending pool.")
	}

	w = nt.do(t, http.MethodGet, "/v1/blocks/latest", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), blocks[2].Hash) {
		t.Fatalf("Should get back the latest block : %v", w.Code)
	}
}

func (nt *NodeTests) validateChain(t *testing.T) {
	w := nt.do(t, http.MethodGet, "/v1/chain/validate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for the response : %v", w.Code)
	}

	var resp struct {
		Valid  bool `json:"valid"`
		Blocks int  `json:"blocks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Should be able to unmarshal the response : %s", err)
	}

	if !resp.Valid || resp.Blocks != 3 {
		t.Fatalf("Should get back a valid chain : %+v", resp)
	}
}

func (nt *NodeTests) exportChain(t *testing.T) {
	w := nt.do(t, http.MethodGet, "/v1/chain/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for the response : %v", w.Code)
	}

	blocks, err := database.ReadChain(w.Body)
	if err != nil {
		t.Fatalf("Should be able to read the exported chain : %s", err)
	}

	imported, err := ledger.New(ledger.Config{
		Genesis: nt.ledger.Genesis(),
		Blocks:  blocks,
	})
	if err != nil {
		t.Fatalf("Should be able to import the exported chain : %s", err)
	}

	if imported.LatestBlock().Hash() != nt.ledger.LatestBlock().Hash() {
		t.Fatalf("Should import the same chain.")
	}

	if imported.Balance("bob") != 10 {
		t.Fatalf("Should derive the same balances, got %d.", imported.Balance("bob"))
	}
}

// =============================================================================

func Test_Events(t *testing.T) {

	// The websocket handler can outlive the test, so nothing may log to t.
	nt := newNodeTests(t, zap.NewNop().Sugar())

	srv := httptest.NewServer(nt.app)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Should be able to open the websocket: %s", err)
	}
	defer c.Close()

	// The receiver is registered after the upgrade completes.
	deadline := time.Now().Add(5 * time.Second)
	for nt.evts.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Should register the websocket receiver.")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, _, err := nt.ledger.MinePendingTransactions(t.Context(), "M1"); err != nil {
		t.Fatalf("Should be able to mine a block: %s", err)
	}

	c.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("Should receive an event: %s", err)
	}

	if !strings.HasPrefix(string(msg), "ledger: ") {
		t.Fatalf("Should receive a ledger event, got %q", msg)
	}
}
