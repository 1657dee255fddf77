package registry

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/d1nch8g/ample/driver"
)

// Driver names used in configuration
const (
	Graph  = "graph"
	Native = "native"
	Bridge = "bridge"
)

// Probe answers the host capability questions that decide driver priority
type Probe interface {
	// TrustsNativeMixer reports whether the host mixer copes with many
	// concurrently open sounds
	TrustsNativeMixer() bool
}

// ProbeFunc adapts a function to Probe
type ProbeFunc func() bool

func (f ProbeFunc) TrustsNativeMixer() bool {
	return f()
}

// HostProbe inspects the running host. A PulseAudio or PipeWire client, or
// CoreAudio on macOS, is trusted with native playback.
type HostProbe struct {
	LookPath func(file string) (string, error)
	GOOS     string
}

// NewHostProbe returns a probe for the current process
func NewHostProbe() HostProbe {
	return HostProbe{LookPath: exec.LookPath, GOOS: runtime.GOOS}
}

func (p HostProbe) TrustsNativeMixer() bool {
	if p.GOOS == "darwin" {
		return true
	}
	for _, bin := range []string{"pacat", "pw-cat"} {
		if _, err := p.LookPath(bin); err == nil {
			return true
		}
	}
	return false
}

// DefaultOrder puts the buffer graph first, then prefers the native backend
// over the plugin bridge only on hosts whose mixer is trusted
func DefaultOrder(p Probe) []string {
	if p.TrustsNativeMixer() {
		return []string{Graph, Native, Bridge}
	}
	return []string{Graph, Bridge, Native}
}

// ParseOrder splits a comma separated driver list
func ParseOrder(s string) []string {
	var order []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(strings.ToLower(name)); name != "" {
			order = append(order, name)
		}
	}
	return order
}

// Factory constructs the backend of one driver kind
type Factory func() driver.Backend

// Build creates one driver per name in order using factories. Each kind may
// appear only once.
func Build(order []string, factories map[string]Factory, driverOpts []driver.Option, opts ...Option) (*Registry, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("driver order is empty")
	}

	seen := make(map[string]bool, len(order))
	drivers := make([]*driver.Driver, 0, len(order))
	for _, name := range order {
		if seen[name] {
			return nil, fmt.Errorf("driver %q listed twice", name)
		}
		seen[name] = true

		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown driver %q", name)
		}
		drivers = append(drivers, driver.New(factory(), driverOpts...))
	}
	return New(drivers, opts...), nil
}
