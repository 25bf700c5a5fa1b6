package sp108e

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// ConnectionState is the lifecycle state of the controller socket.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Dialer opens the TCP connection to the controller. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// StateHook is called after every connection state change, outside any lock.
type StateHook func(from, to ConnectionState)

// ConnectionConfig configures a ConnectionManager.
type ConnectionConfig struct {
	Dialer         Dialer
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         *slog.Logger
	StateHook      StateHook
}

// ConnectionManager owns the single socket to a controller. It dials on
// demand, reads fixed-length responses under a deadline and notices a remote
// close between requests.
type ConnectionManager struct {
	addr           string
	dialer         Dialer
	connectTimeout time.Duration
	readTimeout    time.Duration
	logger         *slog.Logger
	hook           StateHook

	dialMu sync.Mutex

	mu      sync.Mutex
	conn    net.Conn
	state   ConnectionState
	watcher *idleWatcher
}

// idleWatcher blocks on the socket while no request is in flight so that a
// remote close or socket error is seen immediately.
type idleWatcher struct {
	conn net.Conn
	stop chan struct{}
	done chan struct{}
}

// NewConnectionManager creates a manager for addr ("host:port"). Nothing is
// dialled until the first request.
func NewConnectionManager(addr string, cfg ConnectionConfig) *ConnectionManager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &net.Dialer{KeepAlive: DefaultKeepAlive}
	}
	return &ConnectionManager{
		addr:           addr,
		dialer:         cfg.Dialer,
		connectTimeout: cfg.ConnectTimeout,
		readTimeout:    cfg.ReadTimeout,
		logger:         cfg.Logger,
		hook:           cfg.StateHook,
		state:          StateDisconnected,
	}
}

// Addr returns the controller address.
func (m *ConnectionManager) Addr() string {
	return m.addr
}

// State returns the current connection state.
func (m *ConnectionManager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EnsureConnected dials the controller unless a connection is already open.
// The dial is bounded by the connect timeout and is not aborted when ctx is
// cancelled.
func (m *ConnectionManager) EnsureConnected(ctx context.Context) error {
	_, err := m.ensureConnected(ctx)
	return err
}

func (m *ConnectionManager) ensureConnected(ctx context.Context) (net.Conn, error) {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	m.mu.Lock()
	if m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	notify := m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	notify()

	m.logger.Debug("sp108e: connecting", "addr", m.addr, "timeout", m.connectTimeout)

	dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.connectTimeout)
	defer cancel()
	conn, err := m.dialer.DialContext(dialCtx, "tcp", m.addr)

	m.mu.Lock()
	if err != nil {
		notify = m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		notify()
		m.logger.Debug("sp108e: connect failed", "addr", m.addr, "error", err)
		return nil, errors.Connectf("dial %s: %v", m.addr, err)
	}
	m.conn = conn
	notify = m.setStateLocked(StateConnected)
	m.mu.Unlock()
	notify()

	m.logger.Info("sp108e: connected", "addr", m.addr)
	return conn, nil
}

// ForceDisconnect closes the socket, if any, and moves to Disconnected.
func (m *ConnectionManager) ForceDisconnect() {
	m.mu.Lock()
	conn, w := m.conn, m.watcher
	m.conn, m.watcher = nil, nil
	notify := m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if w != nil {
		close(w.stop)
	}
	if conn != nil {
		_ = conn.Close()
		m.logger.Debug("sp108e: disconnected", "addr", m.addr)
	}
	if w != nil {
		<-w.done
	}
	notify()
}

// Exchange writes frame and, when respLen > 0, reads exactly respLen bytes
// back. Any I/O failure or read timeout destroys the connection.
func (m *ConnectionManager) Exchange(ctx context.Context, frame Frame, respLen int) ([]byte, error) {
	m.pauseWatcher()

	conn, err := m.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("sp108e: send", "addr", m.addr, "frame", frame.String())

	_ = conn.SetWriteDeadline(time.Now().Add(m.readTimeout))
	if _, err := conn.Write(frame.Bytes()); err != nil {
		m.ForceDisconnect()
		return nil, m.writeError(err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	var resp []byte
	if respLen > 0 {
		resp = make([]byte, respLen)
		_ = conn.SetReadDeadline(time.Now().Add(m.readTimeout))
		if _, err := io.ReadFull(conn, resp); err != nil {
			m.ForceDisconnect()
			return nil, m.readError(err)
		}
		_ = conn.SetReadDeadline(time.Time{})
		m.logger.Debug("sp108e: recv", "addr", m.addr, "data", hex.EncodeToString(resp))
	}

	m.resumeWatcher()
	return resp, nil
}

// writeError classifies a failed write. A stalled write is an I/O failure,
// not a read timeout.
func (m *ConnectionManager) writeError(err error) error {
	if isTimeout(err) {
		return errors.IOf("write %s: timed out after %s", m.addr, m.readTimeout)
	}
	return errors.IOf("write %s: %v", m.addr, err)
}

func (m *ConnectionManager) readError(err error) error {
	if isTimeout(err) {
		return errors.ReadTimeoutf("read %s after %s", m.addr, m.readTimeout)
	}
	return errors.IOf("read %s: %v", m.addr, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// setStateLocked records the new state and returns a function that fires the
// hook. Call the returned function after releasing m.mu.
func (m *ConnectionManager) setStateLocked(to ConnectionState) func() {
	from := m.state
	if from == to {
		return func() {}
	}
	m.state = to
	hook := m.hook
	return func() {
		if hook != nil {
			hook(from, to)
		}
	}
}

func (m *ConnectionManager) pauseWatcher() {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()
	if w == nil {
		return
	}
	close(w.stop)
	_ = w.conn.SetReadDeadline(time.Now())
	<-w.done
	_ = w.conn.SetReadDeadline(time.Time{})
}

func (m *ConnectionManager) resumeWatcher() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.watcher != nil {
		return
	}
	w := &idleWatcher{conn: m.conn, stop: make(chan struct{}), done: make(chan struct{})}
	m.watcher = w
	go m.watch(w)
}

func (m *ConnectionManager) watch(w *idleWatcher) {
	defer close(w.done)
	buf := make([]byte, 64)
	for {
		n, err := w.conn.Read(buf)
		if n > 0 {
			m.logger.Debug("sp108e: discarding unsolicited bytes", "addr", m.addr, "data", hex.EncodeToString(buf[:n]))
		}
		if err == nil {
			continue
		}
		select {
		case <-w.stop:
			return
		default:
		}
		m.logger.Info("sp108e: connection lost", "addr", m.addr, "error", err)
		m.drop(w)
		return
	}
}

// drop tears down the connection watched by w if it is still current.
func (m *ConnectionManager) drop(w *idleWatcher) {
	m.mu.Lock()
	if m.conn != w.conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	if m.watcher == w {
		m.watcher = nil
	}
	notify := m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	_ = w.conn.Close()
	notify()
}
