//go:build !linux
// +build !linux

package dialer

import (
	"syscall"
	"time"
)

// TCP_USER_TIMEOUT is Linux only, other platforms ignore the setting.
func setUserTimeout(c syscall.RawConn, d time.Duration) error {
	return nil
}

func getUserTimeout(c syscall.RawConn) (time.Duration, error) {
	return 0, nil
}
