package processor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"

	"loanledger/core/state"
	"loanledger/core/txerr"
)

// txEnvelope is the wire shape of one transaction request on the validator
// socket.
type txEnvelope struct {
	Payload         []byte `cbor:"payload"`
	SignerPublicKey string `cbor:"signer_public_key"`
	Nonce           string `cbor:"nonce"`
	Tip             uint64 `cbor:"tip"`
	BlockSignature  string `cbor:"block_signature"`
}

// Server accepts transaction envelopes over a ZeroMQ REP socket and applies
// them through the handler. One envelope is processed at a time; the reply
// reports the outcome class and, for failures, the message.
type Server struct {
	endpoint string
	handler  *Handler
	kv       state.KV
	log      *slog.Logger
}

// NewServer builds a validator-facing server bound to endpoint.
func NewServer(endpoint string, handler *Handler, kv state.KV, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{endpoint: endpoint, handler: handler, kv: kv, log: log}
}

// Run serves requests until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	sock := zmq4.NewRep(ctx)
	defer sock.Close()
	if err := sock.Listen(s.endpoint); err != nil {
		return err
	}
	s.log.Info("transaction processor listening", slog.String("endpoint", s.endpoint))

	for {
		msg, err := sock.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			s.log.Warn("receive failed", slog.Any("error", err))
			continue
		}
		var raw []byte
		if len(msg.Frames) > 0 {
			raw = msg.Frames[0]
		}
		reply := s.process(raw)
		if err := sock.Send(zmq4.NewMsgString(reply)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("reply failed", slog.Any("error", err))
		}
	}
}

func (s *Server) process(raw []byte) string {
	reqID := uuid.NewString()
	var env txEnvelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		s.log.Warn("malformed envelope", slog.String("request", reqID), slog.Any("error", err))
		return "invalid: Invalid payload"
	}
	req := &TxRequest{
		Payload:         env.Payload,
		SignerPublicKey: env.SignerPublicKey,
		Nonce:           env.Nonce,
		Tip:             env.Tip,
		BlockSignature:  env.BlockSignature,
	}
	err := s.handler.Apply(req, s.kv)
	switch {
	case err == nil:
		return "ok"
	case txerr.IsInvalid(err):
		return "invalid: " + err.Error()
	default:
		s.log.Warn("internal failure", slog.String("request", reqID), slog.Any("error", err))
		return "internal: " + err.Error()
	}
}
