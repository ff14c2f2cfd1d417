// Package slots enumerates the provisioned v4l2loopback capture devices.
// The kernel module is loaded by an external setup script; this package
// only observes which device slots exist.
package slots

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrNoSlots indicates that no capture devices exist at all, which is
// fatal for the whole process.
var ErrNoSlots = fmt.Errorf("no capture devices found")

// Provider enumerates the currently provisioned capture slots.
// Enumerate returns a map of slot index to device path; it is consulted
// at startup and again before every relay relaunch, since devices can
// disappear if the kernel module is reloaded.
type Provider interface {
	Enumerate() (map[int]string, error)
}

// DevProvider discovers slots by scanning a device directory for
// video<N> entries, normally /dev.
type DevProvider struct {
	Dir string
}

// Enumerate implements Provider.
func (p DevProvider) Enumerate() (map[int]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.Dir, err)
	}

	found := make(map[int]string)
	for _, e := range entries {
		name := e.Name()
		numStr, ok := strings.CutPrefix(name, "video")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(numStr)
		if err != nil || n < 0 {
			continue
		}
		found[n] = p.Dir + "/" + name
	}
	return found, nil
}
