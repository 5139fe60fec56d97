// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardanlabs/blockminer/business/web/errs"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ardanlabs/blockminer/foundation/blockchain/state"
	"github.com/ardanlabs/blockminer/foundation/events"
	"github.com/ardanlabs/blockminer/foundation/nameservice"
	"github.com/ardanlabs/blockminer/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of miner endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide mining events to a client.
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
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the parameters the miner is using.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// Mempool returns the set of transactions in the mempool with their fees.
// A single transaction is returned when a txid is provided.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	entries := h.State.RetrieveMempool()

	txid := web.Param(r, "txid")
	if txid == "" {
		txs := make([]tx, 0, len(entries))
		for _, e := range entries {
			txs = append(txs, toTx(e))
		}
		return web.Respond(ctx, w, txs, http.StatusOK)
	}

	id, err := signature.HexToHash(txid)
	if err != nil {
		return errs.Newf(errs.BadRequest, "txid %q: %w", txid, err)
	}

	for _, e := range entries {
		if e.ID == id {
			return web.Respond(ctx, w, toTx(e), http.StatusOK)
		}
	}

	return errs.Newf(errs.NotFound, "transaction %s not found", id)
}

// Malformed returns the records that could not be parsed.
func (h Handlers) Malformed(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	recs := h.State.RetrieveMalformed()

	resp := make([]malformed, 0, len(recs))
	for _, rec := range recs {
		if rec.Malformed == nil {
			continue
		}
		resp = append(resp, malformed{
			Source: rec.Source,
			Field:  rec.Malformed.Field,
			Error:  rec.Malformed.Error(),
		})
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// LatestBlock returns the last block mined by this miner.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	bd, exists := h.State.RetrieveLatestResult()
	if !exists {
		return errs.New(errs.NotFound, errors.New("no block has been mined"))
	}

	var beneficiary string
	if outs := bd.Coinbase.Outputs; len(outs) > 0 {
		beneficiary = string(outs[0].Script)
		if h.NS != nil {
			beneficiary = h.NS.Lookup(outs[0].Script)
		}
	}

	resp := block{
		BlockData:   bd,
		Beneficiary: beneficiary,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
