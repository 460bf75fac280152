package prof

import "errors"

// ErrActive is returned by [Capture] while a previous capture is still running.
var ErrActive = errors.New("profile capture already active")

// Options selects which profiles a capture records. Empty paths disable the
// corresponding profile.
type Options struct {
	CPU   string // CPU profile output path
	Heap  string // heap snapshot written at stop
	Block string // blocking profile written at stop
	Mutex string // mutex contention profile written at stop
	HTTP  string // serve /debug/pprof/ on this address while active
}

// Enabled reports whether any profile was requested.
func (o Options) Enabled() bool {
	return o.CPU != "" || o.Heap != "" || o.Block != "" || o.Mutex != "" || o.HTTP != ""
}
