package sp108e

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "unknown", ConnectionState(9).String())
}

func TestConnectionManager_EnsureConnectedIdempotent(t *testing.T) {
	d := newFakeDevice(t)
	m := NewConnectionManager(d.ln.Addr().String(), ConnectionConfig{Logger: testLogger()})
	defer m.ForceDisconnect()

	ctx := context.Background()
	require.NoError(t, m.EnsureConnected(ctx))
	require.NoError(t, m.EnsureConnected(ctx))
	assert.Equal(t, StateConnected, m.State())
	assert.Eventually(t, func() bool { return d.acceptCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestConnectionManager_ForceDisconnectIdempotent(t *testing.T) {
	d := newFakeDevice(t)
	m := NewConnectionManager(d.ln.Addr().String(), ConnectionConfig{Logger: testLogger()})

	m.ForceDisconnect()
	assert.Equal(t, StateDisconnected, m.State())

	require.NoError(t, m.EnsureConnected(context.Background()))
	m.ForceDisconnect()
	m.ForceDisconnect()
	assert.Equal(t, StateDisconnected, m.State())
}

func TestConnectionManager_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := NewConnectionManager(addr, ConnectionConfig{Logger: testLogger(), ConnectTimeout: 200 * time.Millisecond})
	err = m.EnsureConnected(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnect))
	assert.Equal(t, StateDisconnected, m.State())
}

// stallingDialer never completes a dial until its context ends.
type stallingDialer struct{}

func (stallingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestConnectionManager_ConnectTimeout(t *testing.T) {
	var states []ConnectionState
	m := NewConnectionManager("192.0.2.1:8189", ConnectionConfig{
		Logger:         testLogger(),
		Dialer:         stallingDialer{},
		ConnectTimeout: 50 * time.Millisecond,
		StateHook:      func(_, to ConnectionState) { states = append(states, to) },
	})

	start := time.Now()
	err := m.EnsureConnected(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnect))
	assert.False(t, errors.Is(err, ErrReadTimeout))
	assert.Equal(t, StateDisconnected, m.State())
	assert.Equal(t, []ConnectionState{StateConnecting, StateDisconnected}, states)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second, "dial is bounded by the connect timeout")
}

// pipeDialer hands out one end of an in-memory pipe whose peer never reads.
type pipeDialer struct {
	peer net.Conn
}

func (p *pipeDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	local, peer := net.Pipe()
	p.peer = peer
	return local, nil
}

func TestConnectionManager_WriteTimeoutIsIOError(t *testing.T) {
	dialer := &pipeDialer{}
	m := NewConnectionManager("pipe", ConnectionConfig{
		Logger:      testLogger(),
		Dialer:      dialer,
		ReadTimeout: 50 * time.Millisecond,
	})
	defer m.ForceDisconnect()

	f, err := Encode(OpSetSpeed, ByteParam(7))
	require.NoError(t, err)
	_, err = m.Exchange(context.Background(), f, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.False(t, errors.Is(err, ErrReadTimeout), "a stalled write is not a read timeout")
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, StateDisconnected, m.State())
	require.NotNil(t, dialer.peer)
	_ = dialer.peer.Close()
}

func TestConnectionManager_DialIgnoresCallerCancel(t *testing.T) {
	d := newFakeDevice(t)
	m := NewConnectionManager(d.ln.Addr().String(), ConnectionConfig{Logger: testLogger()})
	defer m.ForceDisconnect()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.EnsureConnected(ctx))
}

func TestConnectionManager_ExchangeWriteOnly(t *testing.T) {
	d := newFakeDevice(t)
	m := NewConnectionManager(d.ln.Addr().String(), ConnectionConfig{Logger: testLogger()})
	defer m.ForceDisconnect()

	f, err := Encode(OpSetSpeed, ByteParam(7))
	require.NoError(t, err)
	resp, err := m.Exchange(context.Background(), f, 0)
	require.NoError(t, err)
	assert.Nil(t, resp)

	require.Eventually(t, func() bool { return len(d.received()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, f, d.received()[0])
}

func TestConnectionManager_DiscardsUnsolicitedBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, FrameLength)
		// first request: answer, then push noise while idle
		if _, err := conn.Read(buf); err != nil {
			return
		}
		_, _ = conn.Write(defaultStatus())
		_, _ = conn.Write([]byte{0xde, 0xad})
		// second request: answer normally
		if _, err := conn.Read(buf); err != nil {
			return
		}
		_, _ = conn.Write(defaultStatus())
		time.Sleep(100 * time.Millisecond)
	}()

	m := NewConnectionManager(ln.Addr().String(), ConnectionConfig{Logger: testLogger()})
	defer m.ForceDisconnect()

	f, err := Encode(OpGetStatus, nil)
	require.NoError(t, err)

	resp, err := m.Exchange(context.Background(), f, StatusLength)
	require.NoError(t, err)
	assert.Equal(t, defaultStatus(), resp)

	time.Sleep(50 * time.Millisecond)

	resp, err = m.Exchange(context.Background(), f, StatusLength)
	require.NoError(t, err)
	assert.Equal(t, defaultStatus(), resp)
}
