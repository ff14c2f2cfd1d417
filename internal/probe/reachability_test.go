package probe

import (
	"net"
	"testing"
	"time"
)

func TestReachableClosedPort(t *testing.T) {
	start := time.Now()
	if Reachable("127.0.0.1", 500*time.Millisecond) {
		t.Skip("something is listening on the control port locally")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("check outlived its timeout: %v", elapsed)
	}
}

func TestReachableBadHost(t *testing.T) {
	// Reserved TEST-NET-1 address, guaranteed to not answer.
	if Reachable("192.0.2.1", 100*time.Millisecond) {
		t.Error("expected unreachable")
	}
}

func TestReachableTimeoutBound(t *testing.T) {
	start := time.Now()
	Reachable("192.0.2.1", 100*time.Millisecond)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("check took %v, should be bounded by timeout", elapsed)
	}
}

func TestReachableJoinsIPv6(t *testing.T) {
	// Must not panic or mis-join; the address is bracketed internally.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	defer ln.Close()

	// The listener is not on the control port, so this stays a pure
	// formatting check.
	Reachable("::1", 100*time.Millisecond)
}
