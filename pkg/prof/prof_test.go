//go:build profile

package prof

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCapture_WritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Mutex: filepath.Join(dir, "mutex.prof"),
	}

	stop, err := Capture(opts)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop() error = %v", err)
	}

	for _, path := range []string{opts.CPU, opts.Heap, opts.Mutex} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("Stat(%s) error = %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestCapture_FailFastWhenActive(t *testing.T) {
	stop, err := Capture(Options{Heap: filepath.Join(t.TempDir(), "heap.prof")})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	defer stop()

	if _, err := Capture(Options{}); !errors.Is(err, ErrActive) {
		t.Errorf("second Capture() error = %v, want %v", err, ErrActive)
	}
}

func TestCapture_StopIdempotent(t *testing.T) {
	stop, err := Capture(Options{})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Errorf("second stop() error = %v", err)
	}

	again, err := Capture(Options{})
	if err != nil {
		t.Fatalf("Capture() after stop error = %v", err)
	}
	again()
}

func TestCapture_InvalidPath(t *testing.T) {
	_, err := Capture(Options{CPU: "/nonexistent/directory/cpu.prof"})
	if err == nil {
		t.Fatal("Capture() error = nil, want error for invalid path")
	}
	stop, err := Capture(Options{})
	if err != nil {
		t.Fatalf("Capture() after failure error = %v", err)
	}
	stop()
}
