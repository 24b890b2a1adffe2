package netutil

import (
	"net"
	"time"
)

// WaitForListener tries to connect to the given TCP addr and returns
// nil or the last error occurred when trying to dial that addr, in case
// of timeout.
func WaitForListener(addr string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for time.Since(start) < timeout {
		if lastErr = TryDial(addr); lastErr == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return lastErr
}

// TryDial dials the addr once and closes the connection right away.
// It is used as a connectivity probe when building a stub from a
// running skeleton.
func TryDial(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err == nil {
		err = conn.Close()
	}
	return err
}
