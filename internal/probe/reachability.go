// Package probe checks camera liveness and measures stream variant
// quality through bounded test invocations of the external relay.
package probe

import (
	"net"
	"strconv"
	"time"
)

// ControlPort is the camera's RTMP control port used for liveness checks.
const ControlPort = 1935

// DefaultDialTimeout bounds the reachability check.
const DefaultDialTimeout = 2 * time.Second

// Reachable reports whether a TCP connection to the camera's control
// port succeeds within the timeout. It never blocks past the timeout
// and is used to avoid spending the probe budget on dead cameras.
func Reachable(address string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(address, strconv.Itoa(ControlPort)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
