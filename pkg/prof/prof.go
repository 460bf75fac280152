//go:build profile

package prof

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	rpprof "runtime/pprof"
	"sync"
	"time"
)

// Compiled reports whether profiling support is built in.
const Compiled = true

var (
	mu     sync.Mutex
	active bool
)

// Capture starts the profiles selected by opts and returns a function that
// stops them and writes the snapshot profiles. The stop function is safe to
// call more than once.
func Capture(opts Options) (stop func() error, err error) {
	mu.Lock()
	defer mu.Unlock()

	if active {
		return nil, ErrActive
	}

	var cpu *os.File
	if opts.CPU != "" {
		if cpu, err = os.Create(opts.CPU); err != nil {
			return nil, fmt.Errorf("prof: create cpu profile: %w", err)
		}
		if err = rpprof.StartCPUProfile(cpu); err != nil {
			cpu.Close()
			return nil, fmt.Errorf("prof: start cpu profile: %w", err)
		}
	}
	if opts.Block != "" {
		runtime.SetBlockProfileRate(1)
	}
	if opts.Mutex != "" {
		runtime.SetMutexProfileFraction(1)
	}

	var srv *http.Server
	if opts.HTTP != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		srv = &http.Server{Addr: opts.HTTP, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go srv.ListenAndServe()
	}

	active = true

	var once sync.Once
	var stopErr error
	stop = func() error {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()

			var errs []error
			if cpu != nil {
				rpprof.StopCPUProfile()
				errs = append(errs, cpu.Close())
			}
			errs = append(errs,
				snapshot("heap", opts.Heap),
				snapshot("block", opts.Block),
				snapshot("mutex", opts.Mutex),
			)
			if opts.Block != "" {
				runtime.SetBlockProfileRate(0)
			}
			if opts.Mutex != "" {
				runtime.SetMutexProfileFraction(0)
			}
			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				errs = append(errs, srv.Shutdown(ctx))
				cancel()
			}
			active = false
			stopErr = errors.Join(errs...)
		})
		return stopErr
	}
	return stop, nil
}

func snapshot(name, path string) error {
	if path == "" {
		return nil
	}
	p := rpprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("prof: unknown profile %q", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("prof: create %s profile: %w", name, err)
	}
	if err := p.WriteTo(f, 0); err != nil {
		f.Close()
		return fmt.Errorf("prof: write %s profile: %w", name, err)
	}
	return f.Close()
}
