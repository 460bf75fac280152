//go:build !profile

package prof

// Compiled reports whether profiling support is built in.
const Compiled = false

// Capture does nothing when built without the "profile" tag.
func Capture(_ Options) (stop func() error, err error) {
	return func() error { return nil }, nil
}
