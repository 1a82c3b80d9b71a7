package gateway_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loanledger/core/txerr"
	"loanledger/gateway"
	"loanledger/settings"
)

// fakeSocket replays scripted replies and records everything sent to it.
type fakeSocket struct {
	replies []string
	recvErr error
	sent    []string
	closed  bool
}

func (f *fakeSocket) Send(msg string) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSocket) Recv() (string, error) {
	if f.recvErr != nil {
		return "", f.recvErr
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeSocket) Close() error {
	f.closed = true
	return nil
}

// dialer hands out pre-built sockets keyed by endpoint and records every dial.
type dialer struct {
	sockets map[string]*fakeSocket
	dials   []string
}

func (d *dialer) dial(endpoint string, _ time.Duration) (gateway.Socket, error) {
	d.dials = append(d.dials, endpoint)
	sock, ok := d.sockets[endpoint]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return sock, nil
}

func TestVerifyLocalGood(t *testing.T) {
	local := &fakeSocket{replies: []string{"good"}}
	d := &dialer{sockets: map[string]*fakeSocket{"tcp://localhost:55555": local}}
	c := gateway.NewClient("localhost:55555", settings.Static{}, nil, gateway.WithDialer(d.dial))

	require.NoError(t, c.Verify("ethereum verify a b order 100 tx mainnet"))
	require.Equal(t, []string{"ethereum verify a b order 100 tx mainnet"}, local.sent)
	require.Equal(t, []string{"tcp://localhost:55555"}, d.dials)
}

func TestVerifyLocalBadReplyFailsWithoutFallback(t *testing.T) {
	local := &fakeSocket{replies: []string{"bad"}}
	d := &dialer{sockets: map[string]*fakeSocket{"tcp://localhost:55555": local}}
	c := gateway.NewClient("localhost:55555", settings.Static{}, nil, gateway.WithDialer(d.dial))

	err := c.Verify("cmd")
	require.Error(t, err)
	require.True(t, txerr.IsInvalid(err))
	require.EqualError(t, err, "Couldn't validate the transaction")
	require.Len(t, d.dials, 1)
}

func TestVerifyMissFallsBackToExternal(t *testing.T) {
	local := &fakeSocket{replies: []string{"miss"}}
	external := &fakeSocket{replies: []string{"good"}}
	d := &dialer{sockets: map[string]*fakeSocket{
		"tcp://localhost:55555":      local,
		"tcp://gateway.example:4004": external,
	}}
	c := gateway.NewClient("localhost:55555", settings.Static{
		settings.KeyExternalGateway: "gateway.example:4004",
	}, nil, gateway.WithDialer(d.dial))

	require.NoError(t, c.Verify("cmd"))
	require.Equal(t, []string{"cmd"}, external.sent)
	// The local socket is recycled so the next caller starts fresh.
	require.True(t, local.closed)
	require.True(t, external.closed)
}

func TestVerifyLocalRecvErrorFallsBack(t *testing.T) {
	local := &fakeSocket{recvErr: errors.New("timed out")}
	external := &fakeSocket{replies: []string{"good"}}
	d := &dialer{sockets: map[string]*fakeSocket{
		"tcp://localhost:55555":      local,
		"tcp://gateway.example:4004": external,
	}}
	c := gateway.NewClient("localhost:55555", settings.Static{
		settings.KeyExternalGateway: "gateway.example:4004",
	}, nil, gateway.WithDialer(d.dial))

	require.NoError(t, c.Verify("cmd"))
	require.True(t, local.closed)
}

func TestVerifyBothUnreachable(t *testing.T) {
	d := &dialer{sockets: map[string]*fakeSocket{}}

	// No external endpoint configured at all.
	c := gateway.NewClient("localhost:55555", settings.Static{}, nil, gateway.WithDialer(d.dial))
	err := c.Verify("cmd")
	require.True(t, txerr.IsInternal(err))
	require.EqualError(t, err, "Both local and external gateways were inaccessible")

	// External configured but dialing it fails too.
	c = gateway.NewClient("localhost:55555", settings.Static{
		settings.KeyExternalGateway: "gateway.example:4004",
	}, nil, gateway.WithDialer(d.dial))
	err = c.Verify("cmd")
	require.True(t, txerr.IsInternal(err))
	require.EqualError(t, err, "Both local and external gateways were inaccessible")
}

func TestVerifyExternalBadReply(t *testing.T) {
	local := &fakeSocket{replies: []string{""}}
	external := &fakeSocket{replies: []string{"nope"}}
	d := &dialer{sockets: map[string]*fakeSocket{
		"tcp://localhost:55555":      local,
		"tcp://gateway.example:4004": external,
	}}
	c := gateway.NewClient("localhost:55555", settings.Static{
		settings.KeyExternalGateway: "gateway.example:4004",
	}, nil, gateway.WithDialer(d.dial))

	err := c.Verify("cmd")
	require.True(t, txerr.IsInvalid(err))
	require.EqualError(t, err, "Couldn't validate the transaction")
}

func TestNormalizeEndpoint(t *testing.T) {
	require.Equal(t, "tcp://host:4004", gateway.NormalizeEndpoint("host:4004"))
	require.Equal(t, "tcp://host:4004", gateway.NormalizeEndpoint("  host:4004 "))
	require.Equal(t, "tcp://host:4004", gateway.NormalizeEndpoint("tcp://host:4004"))
	require.Equal(t, "ipc:///tmp/gw", gateway.NormalizeEndpoint("ipc:///tmp/gw"))
	require.Equal(t, "", gateway.NormalizeEndpoint(""))
}
