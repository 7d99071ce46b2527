// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ardanlabs/powledger/business/sys/metrics"
	"github.com/ardanlabs/powledger/business/sys/validate"
	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Worker represents the background miner that is signaled when new
// transactions are accepted.
type Worker interface {
	SignalStartMining()
}

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	Ledger      *ledger.Ledger
	NS          *nameservice.NameService
	WS          websocket.Upgrader
	Evts        *events.Events
	Worker      Worker
	Beneficiary database.AccountID
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// SubmitTransaction adds a signed transaction to the pending pool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var st submitTx
	if err := web.Decode(r, &st); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest, errs.CodeInvalid)
	}

	if err := validate.Check(st); err != nil {
		return err
	}

	tran := st.toDatabaseTx()

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", tran.FromID, "to", tran.ToID, "value", tran.Value, "fingerprint", tran.Fingerprint())

	if err := h.Ledger.AddTransactionWithReason(tran); err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnauthorized):
			return errs.NewTrusted(err, http.StatusForbidden, errs.CodeUnauthorized)
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return errs.NewTrusted(err, http.StatusBadRequest, errs.CodeInsufficientBalance)
		default:
			return errs.NewTrusted(err, http.StatusBadRequest, errs.CodeInvalid)
		}
	}

	if h.Worker != nil {
		h.Worker.SignalStartMining()
	}

	resp := struct {
		Status      string `json:"status"`
		Fingerprint string `json:"fingerprint"`
	}{
		Status:      "transaction added to pending pool",
		Fingerprint: tran.Fingerprint(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine seals the pending transactions into a new block.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if r.ContentLength != 0 {
		if err := web.Decode(r, &req); err != nil {
			return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest, errs.CodeInvalid)
		}
	}

	beneficiary := h.Beneficiary
	if req.Beneficiary != "" {
		beneficiary = database.AccountID(req.Beneficiary)
	}

	blk, wrk, err := h.Ledger.MinePendingTransactions(ctx, beneficiary)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrPOWExhausted):
			return errs.NewTrusted(err, http.StatusServiceUnavailable, errs.CodePOWExhausted)
		case errors.Is(err, ledger.ErrStaleBlock):
			return errs.NewTrusted(err, http.StatusConflict, errs.CodeStaleBlock)
		case errors.Is(err, database.ErrInvalidEncoding):
			return errs.NewTrusted(err, http.StatusBadRequest, errs.CodeInvalid)
		case ctx.Err() != nil:
			return errs.NewTrusted(err, http.StatusRequestTimeout, errs.CodeTimeout)
		}
		return err
	}

	metrics.AddBlock(wrk.Attempts, wrk.Duration)

	resp := mined{
		Block: h.toBlock(blk),
		Work: work{
			Attempts: wrk.Attempts,
			Duration: wrk.Duration.String(),
			HashRate: wrk.HashRate(),
		},
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Genesis(), http.StatusOK)
}

// PendingPool returns the set of uncommitted transactions.
func (h Handlers) PendingPool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := database.AccountID(web.Param(r, "account"))

	pool := h.Ledger.PendingPool()

	trans := []tx{}
	for _, tran := range pool {
		if acct != "" && acct != tran.FromID && acct != tran.ToID {
			continue
		}
		trans = append(trans, h.toTx(tran))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Balances returns the current balances for all accounts or the specified
// account.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := database.AccountID(web.Param(r, "account"))

	// One snapshot keeps the balances in step with the block and pool counts.
	snap := h.Ledger.Snapshot()

	sheet := snap.Balances
	if acct != "" {
		sheet = map[database.AccountID]int64{
			acct: snap.Balances[acct],
		}
	}

	bals := make([]balance, 0, len(sheet))
	for account, value := range sheet {
		bal := balance{
			Account: account,
			Name:    h.NS.Lookup(account),
			Balance: value,
		}
		bals = append(bals, bal)
	}

	sort.Slice(bals, func(i, j int) bool {
		return bals[i].Account < bals[j].Account
	})

	resp := balances{
		LatestBlock: snap.LatestBlock.Hash(),
		Uncommitted: snap.Pending,
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Blocks returns all the blocks and their details.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.Ledger.Chain()

	blocks := make([]block, len(chain))
	for i, blk := range chain {
		blocks[i] = h.toBlock(blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// LatestBlock returns the tail of the chain.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.toBlock(h.Ledger.LatestBlock()), http.StatusOK)
}

// ValidateChain re-derives every chain invariant.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validation{
		Valid:      true,
		Blocks:     len(h.Ledger.Chain()),
		Difficulty: h.Ledger.Difficulty(),
	}

	if err := h.Ledger.ValidateChain(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ExportChain returns the chain in the form accepted for import.
func (h Handlers) ExportChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, database.ExportChain(h.Ledger.Chain()), http.StatusOK)
}

// =============================================================================

func (h Handlers) toTx(tran database.Tx) tx {
	var sig string
	if tran.IsSigned() {
		sig = hexutil.Encode(tran.Signature)
	}

	return tx{
		Fingerprint: tran.Fingerprint(),
		FromAccount: tran.FromID,
		FromName:    h.NS.Lookup(tran.FromID),
		To:          tran.ToID,
		ToName:      h.NS.Lookup(tran.ToID),
		Value:       tran.Value,
		TimeStamp:   tran.TimeStamp,
		Sig:         sig,
	}
}

func (h Handlers) toBlock(blk database.Block) block {
	values := blk.Values()

	trans := make([]tx, len(values))
	for i, tran := range values {
		trans[i] = h.toTx(tran)
	}

	return block{
		Hash:          blk.Hash(),
		Number:        blk.Header.Number,
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		Nonce:         blk.Header.Nonce,
		TransRoot:     blk.Header.TransRoot,
		Difficulty:    blk.Header.Difficulty,
		Beneficiary:   blk.Header.BeneficiaryID,
		Transactions:  trans,
	}
}
