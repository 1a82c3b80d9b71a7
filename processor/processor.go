// Package processor dispatches validator transaction requests into the
// marketplace engine: it derives the caller identity from the envelope,
// decodes the command payload and maps engine errors onto the validator's
// two error classes.
package processor

import (
	"log/slog"

	"loanledger/core/state"
	"loanledger/core/txerr"
	"loanledger/crypto"
	"loanledger/native/market"
	"loanledger/observability/metrics"
	"loanledger/settings"
)

// TxRequest is the transaction envelope handed over per invocation.
type TxRequest struct {
	// Payload is the CBOR-encoded command array.
	Payload []byte
	// SignerPublicKey is the transaction signer's secp256k1 key in hex.
	SignerPublicKey string
	// Nonce is the caller-supplied per-transaction GUID, used verbatim to
	// seed the addresses of created records.
	Nonce string
	// Tip is the block height the transaction is being applied at.
	Tip uint64
	// BlockSignature identifies the chain head for the fork-aware reward
	// query.
	BlockSignature string
}

// Handler applies transaction requests against a borrowed KV handle.
type Handler struct {
	engine *market.Engine
	log    *slog.Logger
}

// NewHandler wires the executor to the settlement gateway and the settings
// cache.
func NewHandler(gw market.Verifier, reader settings.Reader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		engine: market.NewEngine(gw, reader, log),
		log:    log,
	}
}

// Apply executes one transaction. A nil return means the mutation set was
// committed. The returned error is always an InvalidTransaction (rejected,
// message surfaced verbatim) or an InternalError (retriable).
func (h *Handler) Apply(req *TxRequest, kv state.KV) error {
	err := h.apply(req, kv)
	switch {
	case err == nil:
		metrics.TransactionsApplied.WithLabelValues("ok").Inc()
		return nil
	case txerr.IsInvalid(err):
		metrics.TransactionsApplied.WithLabelValues("invalid").Inc()
		h.log.Debug("transaction rejected", slog.String("reason", err.Error()))
		return err
	case txerr.IsInternal(err):
		metrics.TransactionsApplied.WithLabelValues("internal").Inc()
		h.log.Warn("transaction failed internally", slog.Any("error", err))
		return err
	default:
		// Anything unclassified is environmental by definition.
		metrics.TransactionsApplied.WithLabelValues("internal").Inc()
		h.log.Warn("transaction failed internally", slog.Any("error", err))
		return txerr.Internalf("%v", err)
	}
}

func (h *Handler) apply(req *TxRequest, kv state.KV) error {
	sighash, err := crypto.Sighash(req.SignerPublicKey)
	if err != nil {
		return err
	}
	cmd, err := market.DecodeCommand(req.Payload)
	if err != nil {
		return err
	}
	ctx := &market.Context{
		Store:          state.New(kv),
		Tip:            req.Tip,
		Sighash:        sighash,
		Guid:           req.Nonce,
		BlockSignature: req.BlockSignature,
	}
	return h.engine.Execute(ctx, cmd)
}
