package conn_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frankli0324/go-netkit/internal/conn"
	"github.com/frankli0324/go-netkit/internal/obs"
	"github.com/frankli0324/go-netkit/internal/stream"
)

type memLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *memLogger) Logf(level obs.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level.String()+" "+fmt.Sprintf(format, args...))
}

func (l *memLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

// serve accepts a single connection and hands it to fn.
func serve(t *testing.T, fn func(c net.Conn)) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		fn(c)
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func waitDone(t *testing.T, c *conn.Conn) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not finish")
	}
}

// frameHandler decodes uint32 length prefixed frames, keeping its own offset
// into the running receive buffer.
type frameHandler struct {
	conn.BaseHandler
	consumed int
	lens     []int
	frames   []string
	events   []string
	lostErr  error
}

func (h *frameHandler) ConnectionMade(t net.Conn) error {
	h.events = append(h.events, "made")
	return nil
}

func (h *frameHandler) DataReceived(buf *stream.Buffer) error {
	if buf.Pos() != 0 {
		return fmt.Errorf("cursor at %d on entry", buf.Pos())
	}
	h.lens = append(h.lens, buf.Len())
	buf.Seek(h.consumed)
	for {
		n, err := buf.ReadUint32()
		if err != nil {
			return nil
		}
		payload, err := buf.ReadN(int(n))
		if err != nil {
			return nil
		}
		h.frames = append(h.frames, string(payload))
		h.consumed = buf.Pos()
	}
}

func (h *frameHandler) EOFReceived() { h.events = append(h.events, "eof") }

func (h *frameHandler) ConnectionLost(err error) error {
	h.events = append(h.events, "lost")
	h.lostErr = err
	return nil
}

func TestRunningBufferFrames(t *testing.T) {
	host, port := serve(t, func(c net.Conn) {
		b := &stream.Buffer{}
		b.SetEndian(stream.LittleEndian)
		for _, f := range []string{"hello", "framed", "world"} {
			b.WriteUint32(uint32(len(f)))
			b.Write([]byte(f))
		}
		raw := b.Bytes()
		for _, part := range [][]byte{raw[:3], raw[3:12], raw[12:]} {
			c.Write(part)
			time.Sleep(20 * time.Millisecond)
		}
	})

	h := &frameHandler{}
	c := conn.NewConn(h, &conn.Config{Endian: stream.LittleEndian, Loop: conn.NewLoop()})
	defer c.Loop().Stop()
	if err := c.Open(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	if c.State() != conn.StateConnected {
		t.Errorf("state %s after open", c.State())
	}
	waitDone(t, c)

	if got := strings.Join(h.frames, ","); got != "hello,framed,world" {
		t.Errorf("frames %q", got)
	}
	for i := 1; i < len(h.lens); i++ {
		if h.lens[i] <= h.lens[i-1] {
			t.Errorf("buffer did not grow between calls: %v", h.lens)
		}
	}
	if got := strings.Join(h.events, ","); got != "made,eof,lost" {
		t.Errorf("events %q", got)
	}
	if h.lostErr != nil || c.Err() != nil {
		t.Errorf("clean close reported %v / %v", h.lostErr, c.Err())
	}
	if c.State() != conn.StateClosed || c.Transport() != nil {
		t.Errorf("state %s, transport %v after loss", c.State(), c.Transport())
	}
}

type failingMade struct {
	conn.BaseHandler
	lost chan error
}

func (h *failingMade) ConnectionMade(net.Conn) error { return errors.New("handshake rejected") }

func (h *failingMade) ConnectionLost(err error) error {
	h.lost <- err
	return nil
}

func TestConnectionMadeFailurePropagates(t *testing.T) {
	host, port := serve(t, func(c net.Conn) { io.Copy(io.Discard, c) })
	logs := &memLogger{}
	h := &failingMade{lost: make(chan error, 1)}
	c := conn.NewConn(h, &conn.Config{Loop: conn.NewLoop(), Logger: logs})
	defer c.Loop().Stop()

	err := c.Open(context.Background(), host, port)
	if !errors.Is(err, conn.ErrHookFailure) {
		t.Fatalf("Open returned %v", err)
	}
	var he *conn.HookError
	if !errors.As(err, &he) || he.Hook != "ConnectionMade" || len(he.Stack) == 0 {
		t.Errorf("hook error %+v", he)
	}
	if c.Transport() == nil {
		t.Error("transport cleared after ConnectionMade failure")
	}
	if out := logs.joined(); !strings.Contains(out, "handshake rejected") || !strings.Contains(out, "goroutine") {
		t.Errorf("failure not logged with a trace:\n%s", out)
	}

	c.Close()
	waitDone(t, c)
	if err := <-h.lost; err != nil {
		t.Errorf("lost after owner close: %v", err)
	}
	if c.Transport() != nil {
		t.Error("transport kept after close")
	}
}

type failingData struct {
	conn.BaseHandler
	lost error
}

func (h *failingData) DataReceived(*stream.Buffer) error { panic("bad frame") }

func (h *failingData) ConnectionLost(err error) error {
	h.lost = err
	return nil
}

func TestDataHookFailureTearsDown(t *testing.T) {
	host, port := serve(t, func(c net.Conn) {
		c.Write([]byte("boom"))
		io.Copy(io.Discard, c)
	})
	h := &failingData{}
	c := conn.NewConn(h, &conn.Config{Loop: conn.NewLoop(), Logger: &memLogger{}})
	defer c.Loop().Stop()
	if err := c.Open(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	waitDone(t, c)

	var he *conn.HookError
	if !errors.As(h.lost, &he) || he.Hook != "DataReceived" {
		t.Fatalf("ConnectionLost got %v", h.lost)
	}
	var pe *conn.PanicError
	if !errors.As(he, &pe) || pe.Value != "bad frame" {
		t.Errorf("panic value not carried: %v", he)
	}
	if !errors.Is(c.Err(), conn.ErrHookFailure) {
		t.Errorf("Err() = %v", c.Err())
	}
}

type failingLost struct{ conn.BaseHandler }

func (failingLost) ConnectionLost(error) error { panic("cleanup crashed") }

func TestConnectionLostFailureStillReleases(t *testing.T) {
	host, port := serve(t, func(c net.Conn) {})
	c := conn.NewConn(failingLost{}, &conn.Config{Loop: conn.NewLoop(), Logger: &memLogger{}})
	defer c.Loop().Stop()
	if err := c.Open(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	waitDone(t, c)
	if c.Transport() != nil {
		t.Error("transport not cleared")
	}
	if !errors.Is(c.Err(), conn.ErrHookFailure) {
		t.Errorf("Err() = %v", c.Err())
	}
}

type writer struct {
	conn.BaseHandler
	got chan string
}

func (h *writer) ConnectionMade(t net.Conn) error {
	_, err := t.Write([]byte("ping\n"))
	return err
}

func (h *writer) DataReceived(buf *stream.Buffer) error {
	if strings.HasSuffix(string(buf.Bytes()), "\n") {
		h.got <- string(buf.Bytes())
	}
	return nil
}

func TestOwnerCloseAndEcho(t *testing.T) {
	host, port := serve(t, func(c net.Conn) { io.Copy(c, c) })
	h := &writer{got: make(chan string, 1)}
	c := conn.NewConn(h, &conn.Config{Loop: conn.NewLoop()})
	defer c.Loop().Stop()
	if err := c.Open(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	if got := <-h.got; got != "ping\n" {
		t.Errorf("echo %q", got)
	}
	c.Close()
	c.Close()
	waitDone(t, c)
	if c.Err() != nil {
		t.Errorf("owner close reported %v", c.Err())
	}
}

func TestOpenTwiceAndCloseIdle(t *testing.T) {
	loop := conn.NewLoop()
	defer loop.Stop()

	idle := conn.NewConn(conn.BaseHandler{}, &conn.Config{Loop: loop})
	idle.Close()
	waitDone(t, idle)
	if idle.State() != conn.StateClosed {
		t.Errorf("state %s", idle.State())
	}
	if err := idle.Open(context.Background(), "127.0.0.1", 1); !errors.Is(err, conn.ErrNotIdle) {
		t.Errorf("open after close: %v", err)
	}

	host, port := serve(t, func(c net.Conn) { io.Copy(io.Discard, c) })
	c := conn.NewConn(conn.BaseHandler{}, &conn.Config{Loop: loop})
	if err := c.Open(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	if err := c.Open(context.Background(), host, port); !errors.Is(err, conn.ErrNotIdle) {
		t.Errorf("second open: %v", err)
	}
	c.Close()
	waitDone(t, c)
}

func TestDialFailureStaysIdle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := conn.NewConn(conn.BaseHandler{}, &conn.Config{Loop: conn.NewLoop()})
	defer c.Loop().Stop()
	if err := c.Open(context.Background(), "127.0.0.1", port); err == nil {
		t.Fatal("expected dial error")
	}
	if c.State() != conn.StateIdle || c.Transport() != nil {
		t.Errorf("state %s after failed dial", c.State())
	}
}

type lostCounter struct {
	conn.BaseHandler
	calls int
	err   error
}

func (h *lostCounter) ConnectionLost(err error) error {
	h.calls++
	h.err = err
	return nil
}

func TestLoopStoppedWhileConnected(t *testing.T) {
	release, finish := make(chan struct{}), make(chan struct{})
	defer close(finish)
	host, port := serve(t, func(c net.Conn) {
		<-release
		c.Write([]byte("late"))
		<-finish
	})

	loop := conn.NewLoop()
	h := &lostCounter{}
	c := conn.NewConn(h, &conn.Config{Loop: loop})
	if err := c.Open(context.Background(), host, port); err != nil {
		t.Fatal(err)
	}
	loop.Stop()
	<-loop.Done()
	close(release)

	waitDone(t, c)
	if c.State() != conn.StateClosed || c.Transport() != nil {
		t.Errorf("state %s, transport %v", c.State(), c.Transport())
	}
	if h.calls != 1 || !errors.Is(h.err, conn.ErrLoopStopped) || !errors.Is(c.Err(), conn.ErrLoopStopped) {
		t.Errorf("ConnectionLost called %d times with %v, Err %v", h.calls, h.err, c.Err())
	}
}
