// Package gateway implements the request/reply client used to verify
// off-ledger settlement payments. Verification first asks a local gateway;
// on a miss or timeout it resolves an external gateway from the settings and
// retries once with a longer timeout.
package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-zeromq/zmq4"

	"loanledger/core/txerr"
	"loanledger/observability/metrics"
	"loanledger/settings"
)

// Gateway reply vocabulary. Anything outside of it is a failed verification.
const (
	replyGood = "good"
	replyMiss = "miss"
)

// Default socket timeouts: short for the co-located gateway, longer for the
// external fallback.
const (
	DefaultLocalTimeout    = 3 * time.Second
	DefaultExternalTimeout = 30 * time.Second
)

// ErrUnreachable is the internal error produced when neither gateway
// answered.
var errUnreachable = txerr.Internal("Both local and external gateways were inaccessible")

// Socket is one request/reply connection to a gateway. Implementations must
// apply the dial-time timeout to both send and receive.
type Socket interface {
	Send(msg string) error
	Recv() (string, error)
	Close() error
}

// DialFunc opens a Socket to the given endpoint. Substituted in tests.
type DialFunc func(endpoint string, timeout time.Duration) (Socket, error)

// Client verifies settlement commands against a local gateway with external
// fallback. It is owned by the per-transaction context; the local socket is
// reused across calls and recreated whenever a miss or timeout suggests it
// is wedged.
type Client struct {
	localEndpoint   string
	localTimeout    time.Duration
	externalTimeout time.Duration
	settings        settings.Reader
	log             *slog.Logger

	dial  DialFunc
	local Socket
}

// Option tweaks client construction.
type Option func(*Client)

// WithTimeouts overrides the local and external socket timeouts.
func WithTimeouts(local, external time.Duration) Option {
	return func(c *Client) {
		c.localTimeout = local
		c.externalTimeout = external
	}
}

// WithDialer substitutes the socket dialer. Used by tests.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// NewClient builds a verification client for the given local gateway
// endpoint.
func NewClient(localEndpoint string, reader settings.Reader, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		localEndpoint:   NormalizeEndpoint(localEndpoint),
		localTimeout:    DefaultLocalTimeout,
		externalTimeout: DefaultExternalTimeout,
		settings:        reader,
		log:             log,
		dial:            DialZMQ,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the local socket if one is open.
func (c *Client) Close() {
	c.resetLocal()
}

// Verify sends a single text command to the gateway and interprets the
// reply. A "good" reply verifies the command; "" and "miss" (or a local
// timeout) trigger the external fallback; any other reply fails the
// transaction.
func (c *Client) Verify(command string) error {
	reply, err := c.askLocal(command)
	if err == nil {
		switch reply {
		case replyGood:
			return nil
		case "", replyMiss:
			// Local gateway disclaims knowledge; fall through.
		default:
			return txerr.Invalid("Couldn't validate the transaction")
		}
	} else {
		c.log.Debug("local gateway unavailable", slog.Any("error", err))
	}
	return c.askExternal(command)
}

func (c *Client) askLocal(command string) (string, error) {
	if c.local == nil {
		sock, err := c.dial(c.localEndpoint, c.localTimeout)
		if err != nil {
			return "", err
		}
		c.local = sock
	}
	if err := c.local.Send(command); err != nil {
		c.resetLocal()
		return "", err
	}
	reply, err := c.local.Recv()
	if err != nil {
		c.resetLocal()
		return "", err
	}
	return reply, nil
}

func (c *Client) askExternal(command string) error {
	metrics.GatewayFallbacks.Inc()
	// The local socket may be wedged; recreate it for the next caller.
	c.resetLocal()

	endpoint, ok := c.settingsGet(settings.KeyExternalGateway)
	if !ok || strings.TrimSpace(endpoint) == "" {
		return errUnreachable
	}
	sock, err := c.dial(NormalizeEndpoint(endpoint), c.externalTimeout)
	if err != nil {
		return errUnreachable
	}
	defer sock.Close()
	if err := sock.Send(command); err != nil {
		return errUnreachable
	}
	reply, err := sock.Recv()
	if err != nil {
		return errUnreachable
	}
	if reply == replyGood {
		return nil
	}
	return txerr.Invalid("Couldn't validate the transaction")
}

func (c *Client) settingsGet(key string) (string, bool) {
	if c.settings == nil {
		return "", false
	}
	return c.settings.Get(key)
}

func (c *Client) resetLocal() {
	if c.local != nil {
		c.local.Close()
		c.local = nil
	}
}

// NormalizeEndpoint prepends the tcp scheme when the endpoint carries none.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "tcp://" + endpoint
}

type zmqSocket struct {
	sock zmq4.Socket
}

// DialZMQ opens a ZeroMQ REQ socket to endpoint with the given send/receive
// timeout.
func DialZMQ(endpoint string, timeout time.Duration) (Socket, error) {
	sock := zmq4.NewReq(context.Background(), zmq4.WithTimeout(timeout))
	if err := sock.Dial(endpoint); err != nil {
		sock.Close()
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}

func (z *zmqSocket) Send(msg string) error {
	return z.sock.Send(zmq4.NewMsgString(msg))
}

func (z *zmqSocket) Recv() (string, error) {
	msg, err := z.sock.Recv()
	if err != nil {
		return "", err
	}
	if len(msg.Frames) == 0 {
		return "", nil
	}
	return string(msg.Frames[0]), nil
}

func (z *zmqSocket) Close() error {
	return z.sock.Close()
}
