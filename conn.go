package netkit

import (
	"github.com/frankli0324/go-netkit/internal/conn"
	"github.com/frankli0324/go-netkit/internal/stream"
)

// Conn is a framed duplex TCP connection. Inbound bytes are appended to a
// single running [Buffer] and announced to a [ConnHandler], always on the
// connection's [Loop].
type Conn = conn.Conn
type ConnConfig = conn.Config
type ConnState = conn.State

// ConnHandler receives the events of a [Conn]. Embed [BaseConnHandler] to
// implement only some of them.
type ConnHandler = conn.Handler
type BaseConnHandler = conn.BaseHandler

type Loop = conn.Loop

type HookError = conn.HookError
type PanicError = conn.PanicError

const (
	StateIdle      = conn.StateIdle
	StateConnected = conn.StateConnected
	StateClosed    = conn.StateClosed
)

var (
	ErrHookFailure = conn.ErrHookFailure
	ErrNotIdle     = conn.ErrNotIdle
	ErrNotOpen     = conn.ErrNotOpen
	ErrLoopStopped = conn.ErrLoopStopped
)

func NewConn(h ConnHandler, cfg *ConnConfig) *Conn { return conn.NewConn(h, cfg) }

func NewLoop() *Loop { return conn.NewLoop() }

// DefaultLoop is the loop connections use when their config names none.
func DefaultLoop() *Loop { return conn.DefaultLoop() }

// Buffer is a growable byte buffer with a cursor and a configurable byte
// order for fixed width values.
type Buffer = stream.Buffer
type Endian = stream.Endian
type OutOfRangeError = stream.OutOfRangeError

const (
	BigEndian    = stream.BigEndian
	LittleEndian = stream.LittleEndian

	// EndOfBuffer seeks to the current end of a [Buffer].
	EndOfBuffer = stream.EndOfBuffer
)

var ErrOutOfRange = stream.ErrOutOfRange

// NewBuffer returns a big endian buffer holding a copy of initial with the
// cursor at 0.
func NewBuffer(initial []byte) *Buffer { return stream.New(initial) }
