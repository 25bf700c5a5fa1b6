package sp108e

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDevice is a minimal in-process controller. It records every frame it
// receives and keeps a status payload that setters update.
type fakeDevice struct {
	ln net.Listener

	mu      sync.Mutex
	frames  []Frame
	status  []byte
	accepts int
	conns   []net.Conn
	hold    chan struct{}
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &fakeDevice{ln: ln, status: defaultStatus()}
	go d.acceptLoop()
	t.Cleanup(func() {
		_ = ln.Close()
		d.release()
		d.dropConnections()
	})
	return d
}

// defaultStatus is an "off, static red, WS2811/GRB, 1x60" snapshot.
func defaultStatus() []byte {
	return []byte{
		0x38, 0x00, AnimationStatic, 0x80, 0xff, 0x02,
		0x00, 0x3c, 0x00, 0x01,
		0xff, 0x00, 0x00,
		0x03, 0x00, 0xff, 0x83,
	}
}

func (d *fakeDevice) host() string {
	host, _, _ := net.SplitHostPort(d.ln.Addr().String())
	return host
}

func (d *fakeDevice) port() int {
	_, p, _ := net.SplitHostPort(d.ln.Addr().String())
	n, _ := strconv.Atoi(p)
	return n
}

func (d *fakeDevice) acceptLoop() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.accepts++
		d.conns = append(d.conns, conn)
		d.mu.Unlock()
		go d.serve(conn)
	}
}

func (d *fakeDevice) serve(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, FrameLength)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		var f Frame
		copy(f[:], buf)

		d.mu.Lock()
		d.frames = append(d.frames, f)
		resp := d.apply(f)
		hold := d.hold
		d.mu.Unlock()

		if resp == nil {
			continue
		}
		if hold != nil {
			<-hold
		}
		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func (d *fakeDevice) apply(f Frame) []byte {
	p := f[1:4]
	switch Opcode(f[4]) {
	case OpGetStatus:
	case OpToggle:
		if d.status[1] == 0x01 {
			d.status[1] = 0x00
		} else {
			d.status[1] = 0x01
		}
	case OpSetBrightness:
		d.status[4] = p[0]
		return nil
	case OpSetSpeed:
		d.status[3] = p[0]
		return nil
	case OpSetColor:
		copy(d.status[10:13], p)
		return nil
	case OpSetMode:
		d.status[2] = p[0]
		return nil
	case OpSetChipType:
		d.status[13] = p[0]
		return nil
	case OpSetColorOrder:
		d.status[5] = p[0]
		return nil
	case OpSetWhiteBrightness:
		d.status[15] = p[0]
		return nil
	case OpSetSegments:
		binary.BigEndian.PutUint16(d.status[8:10], binary.LittleEndian.Uint16(p[0:2]))
		return nil
	case OpSetLedsPerSegment:
		binary.BigEndian.PutUint16(d.status[6:8], binary.LittleEndian.Uint16(p[0:2]))
		return nil
	default:
		return nil
	}
	out := make([]byte, len(d.status))
	copy(out, d.status)
	return out
}

func (d *fakeDevice) setStatus(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = append([]byte(nil), b...)
}

func (d *fakeDevice) setByte(i int, v byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status[i] = v
}

// holdResponses makes responses wait until release is called.
func (d *fakeDevice) holdResponses() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hold = make(chan struct{})
}

func (d *fakeDevice) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hold != nil {
		close(d.hold)
		d.hold = nil
	}
}

func (d *fakeDevice) dropConnections() {
	d.mu.Lock()
	conns := d.conns
	d.conns = nil
	d.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (d *fakeDevice) received() []Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Frame(nil), d.frames...)
}

// waitFrames blocks until the device has recorded at least n frames. Writes
// without a response return before the device has read them.
func (d *fakeDevice) waitFrames(t *testing.T, n int) []Frame {
	t.Helper()
	require.Eventually(t, func() bool { return len(d.received()) >= n }, 2*time.Second, time.Millisecond,
		"device never received %d frames", n)
	return d.received()
}

func (d *fakeDevice) opcodes() []Opcode {
	return opcodesOf(d.received())
}

// waitOpcodes is opcodes after waitFrames(n).
func (d *fakeDevice) waitOpcodes(t *testing.T, n int) []Opcode {
	t.Helper()
	return opcodesOf(d.waitFrames(t, n))
}

func opcodesOf(frames []Frame) []Opcode {
	var ops []Opcode
	for _, f := range frames {
		ops = append(ops, Opcode(f[4]))
	}
	return ops
}

func (d *fakeDevice) acceptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepts
}

// flakyDialer fails the first failures dials, then dials for real.
type flakyDialer struct {
	failures int32
	dials    atomic.Int32
	inner    net.Dialer
}

func (f *flakyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	n := f.dials.Add(1)
	if n <= f.failures {
		return nil, &net.OpError{Op: "dial", Net: network, Err: io.ErrUnexpectedEOF}
	}
	return f.inner.DialContext(ctx, network, address)
}

// recordingSleeper records delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, d *fakeDevice, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(testLogger()),
		WithPacing(0),
		WithRetryPolicy(NewRetryPolicy(WithSleeper(func(time.Duration) {}))),
	}
	c := NewClient(d.host(), d.port(), append(base, opts...)...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
