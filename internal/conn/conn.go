// package conn implements a connection oriented protocol client. Inbound
// bytes accumulate in a [stream.Buffer] and the owner is notified through
// [Handler] hooks, dispatched one at a time on a [Loop].
package conn

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/frankli0324/go-netkit/internal/dialer"
	"github.com/frankli0324/go-netkit/internal/obs"
	"github.com/frankli0324/go-netkit/internal/stream"
)

// Handler receives the lifecycle events of a [Conn]. Every method runs on the
// connection's [Loop]. Returned errors and panics are logged with a stack
// trace and reported as *[HookError].
type Handler interface {
	// ConnectionMade is called once the transport is established.
	ConnectionMade(t net.Conn) error
	// DataReceived is called after every inbound chunk was appended to buf.
	// buf holds everything received so far with its cursor rewound to 0,
	// the handler keeps track of how much of it was already consumed.
	DataReceived(buf *stream.Buffer) error
	// EOFReceived is called when the peer ends its side of the stream.
	EOFReceived()
	// ConnectionLost is called exactly once when the connection ends, with
	// the cause or nil for a clean shutdown.
	ConnectionLost(err error) error
}

// BaseHandler implements [Handler] with no-ops, embed it to override only
// some of the hooks.
type BaseHandler struct{}

func (BaseHandler) ConnectionMade(net.Conn) error     { return nil }
func (BaseHandler) DataReceived(*stream.Buffer) error { return nil }
func (BaseHandler) EOFReceived()                      {}
func (BaseHandler) ConnectionLost(error) error        { return nil }

type State int32

const (
	StateIdle State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const defaultReadSize = 32 * 1024

type Config struct {
	Endian   stream.Endian
	Loop     *Loop         // defaults to DefaultLoop()
	Dialer   dialer.Dialer // defaults to a zero *dialer.CoreDialer
	ReadSize int           // size of a single socket read, default 32KiB
	Logger   obs.Logger    // defaults to logging errors with the standard logger
}

// Conn wraps one network connection. It is created idle, becomes connected
// on a successful [Conn.Open] and is closed for good once the connection is
// lost.
type Conn struct {
	handler  Handler
	loop     *Loop
	dialer   dialer.Dialer
	logger   obs.Logger
	readSize int

	state   atomic.Int32
	opening atomic.Bool
	closing atomic.Bool

	// owned by the loop goroutine
	transport net.Conn
	buf       *stream.Buffer
	reading   bool
	failure   error // hook failure that tore the connection down
	err       error

	done chan struct{}
}

func NewConn(h Handler, cfg *Config) *Conn {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Conn{
		handler:  h,
		loop:     cfg.Loop,
		dialer:   cfg.Dialer,
		logger:   cfg.Logger,
		readSize: cfg.ReadSize,
		buf:      &stream.Buffer{},
		done:     make(chan struct{}),
	}
	c.buf.SetEndian(cfg.Endian)
	if c.loop == nil {
		c.loop = DefaultLoop()
	}
	if c.dialer == nil {
		c.dialer = &dialer.CoreDialer{}
	}
	if c.logger == nil {
		c.logger = obs.StdLogger{L: log.Default(), Min: obs.Error}
	}
	if c.readSize <= 0 {
		c.readSize = defaultReadSize
	}
	return c
}

func (c *Conn) State() State { return State(c.state.Load()) }

// Buffer returns the receive buffer. Only touch it from the loop.
func (c *Conn) Buffer() *stream.Buffer { return c.buf }

// Transport returns the underlying connection, nil before it is established
// and after it was lost. Only call it from the loop, or after [Conn.Open]
// returned or [Conn.Done] was closed.
func (c *Conn) Transport() net.Conn { return c.transport }

func (c *Conn) Loop() *Loop { return c.loop }

// Done is closed once the connection was lost and the transport released.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended. It is only meaningful after Done was
// closed.
func (c *Conn) Err() error { return c.err }

// Open connects to address:port and runs the ConnectionMade hook. When the
// hook fails its *[HookError] is returned, the transport stays assigned and
// nothing is read from it until the owner calls [Conn.Close]. Open waits for
// the loop, so it must not be called from a hook or anything else running on
// the loop goroutine.
func (c *Conn) Open(ctx context.Context, address string, port int) error {
	if c.State() != StateIdle || !c.opening.CompareAndSwap(false, true) {
		return ErrNotIdle
	}
	nc, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		c.opening.Store(false)
		return err
	}
	err = c.loop.Call(func() error {
		if c.State() != StateIdle { // closed while dialing
			nc.Close()
			return net.ErrClosed
		}
		c.transport = nc
		c.state.Store(int32(StateConnected))
		if err := c.invoke("ConnectionMade", func() error { return c.handler.ConnectionMade(nc) }); err != nil {
			return err
		}
		c.reading = true
		go c.readLoop(nc)
		return nil
	})
	if errors.Is(err, ErrLoopStopped) {
		nc.Close()
	}
	return err
}

// Write sends p on the transport. Call it from the loop only.
func (c *Conn) Write(p []byte) (int, error) {
	if c.transport == nil {
		return 0, ErrNotOpen
	}
	return c.transport.Write(p)
}

// Close shuts the connection down. The ConnectionLost hook runs with a nil
// error unless the connection was already lost. It is safe to call more than
// once and from any goroutine.
func (c *Conn) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}
	return c.loop.Post(func() {
		switch c.State() {
		case StateIdle:
			c.state.Store(int32(StateClosed))
			close(c.done)
		case StateConnected:
			if c.reading {
				c.transport.Close() // the reader reports the loss
			} else {
				c.connectionLost(nil)
			}
		}
	})
}

func (c *Conn) readLoop(nc net.Conn) {
	p := make([]byte, c.readSize)
	for {
		n, err := nc.Read(p)
		if n > 0 {
			chunk := append([]byte(nil), p[:n]...)
			if perr := c.loop.Post(func() { c.dataReceived(chunk) }); perr != nil {
				c.lostAfterStop(nc, perr)
				return
			}
		}
		if err != nil {
			eof := errors.Is(err, io.EOF)
			if eof || (c.closing.Load() && errors.Is(err, net.ErrClosed)) {
				err = nil
			}
			if perr := c.loop.Post(func() {
				if eof && c.State() == StateConnected && c.failure == nil {
					c.invoke("EOFReceived", func() error {
						c.handler.EOFReceived()
						return nil
					})
				}
				c.connectionLost(err)
			}); perr != nil {
				c.lostAfterStop(nc, err)
			}
			return
		}
	}
}

// lostAfterStop ends the connection from the reader once the loop was
// stopped. It waits for the loop to drain, after which the reader is the only
// goroutine left touching the connection.
func (c *Conn) lostAfterStop(nc net.Conn, cause error) {
	nc.Close()
	<-c.loop.Done()
	c.connectionLost(cause)
}

func (c *Conn) dataReceived(chunk []byte) {
	if c.State() != StateConnected || c.failure != nil {
		return
	}
	c.buf.Seek(stream.EndOfBuffer)
	c.buf.Write(chunk)
	c.buf.Seek(0)
	if err := c.invoke("DataReceived", func() error { return c.handler.DataReceived(c.buf) }); err != nil {
		c.failure = err
		c.transport.Close()
	}
}

func (c *Conn) connectionLost(cause error) {
	if c.State() == StateClosed {
		return
	}
	c.state.Store(int32(StateClosed))
	if c.failure != nil {
		cause = c.failure
	}
	defer func() {
		if c.transport != nil {
			c.transport.Close()
		}
		c.transport = nil
		close(c.done)
	}()
	herr := c.invoke("ConnectionLost", func() error { return c.handler.ConnectionLost(cause) })
	c.err = errors.Join(cause, herr)
}
