package conn

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

var ErrLoopStopped = errors.New("conn: loop stopped")

// Loop runs posted callbacks one at a time on a single goroutine, in the
// order they were posted. Connection hooks are dispatched through a Loop so
// that they never run concurrently with each other.
type Loop struct {
	mu      sync.Mutex
	pending *queue.Queue
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func NewLoop() *Loop {
	l := &Loop{
		pending: queue.New(),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

var (
	defaultLoop     *Loop
	defaultLoopOnce sync.Once
)

// DefaultLoop returns the process wide loop, starting it on first use.
func DefaultLoop() *Loop {
	defaultLoopOnce.Do(func() { defaultLoop = NewLoop() })
	return defaultLoop
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.drain()
		select {
		case <-l.wake:
		case <-l.quit:
			l.drain()
			return
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if l.pending.Length() == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.pending.Remove().(func())
		l.mu.Unlock()
		fn()
	}
}

// Post schedules fn to run on the loop and returns immediately.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.pending.Add(fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Call runs fn on the loop and waits for its result. It must not be called
// from the loop goroutine itself.
func (l *Loop) Call(fn func() error) error {
	res := make(chan error, 1)
	if err := l.Post(func() { res <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-l.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Stop rejects further posts and ends the loop once the callbacks already
// queued have run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.quit)
	})
}

// Done is closed after the loop has stopped and drained.
func (l *Loop) Done() <-chan struct{} { return l.done }
