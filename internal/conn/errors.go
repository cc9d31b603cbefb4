package conn

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/frankli0324/go-netkit/internal/obs"
)

var (
	ErrHookFailure = errors.New("conn: hook failure")
	ErrNotIdle     = errors.New("conn: connection already opened")
	ErrNotOpen     = errors.New("conn: connection not open")
)

// HookError carries the failure of an owner supplied hook, either a returned
// error or a recovered panic, with the stack captured where it was observed.
type HookError struct {
	Hook  string
	Err   error
	Stack []byte
}

func (e *HookError) Error() string {
	return "conn: " + e.Hook + " hook failed: " + e.Err.Error()
}

func (e *HookError) Unwrap() error { return e.Err }

func (e *HookError) Is(err error) bool { return err == ErrHookFailure }

// PanicError wraps a value recovered from a panicking hook.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// invoke runs fn, turning errors and panics into a logged *HookError.
func (c *Conn) invoke(hook string, fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
		if err != nil {
			he := &HookError{Hook: hook, Err: err, Stack: debug.Stack()}
			c.logger.Logf(obs.Error, "conn: %s hook failed: %v\n%s", hook, he.Err, he.Stack)
			err = he
		}
	}()
	return fn()
}
