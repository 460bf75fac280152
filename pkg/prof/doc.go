// Package prof captures pprof profiles around a streaming run.
//
// Profiling is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./examples/datastreamer
//
// Without the tag, [Capture] returns a no-op stop function so tools can keep
// their profiling flags unconditionally.
//
// # Usage
//
//	stop, err := prof.Capture(prof.Options{
//	    CPU:  "cpu.prof",
//	    Heap: "heap.prof",
//	})
//	if err != nil {
//	    return err
//	}
//	defer stop()
//
// CPU samples stream for the whole run. Heap, block and mutex profiles are
// snapshots written when the stop function runs. Setting [Options.HTTP]
// additionally serves /debug/pprof/ on that address until stop.
package prof
