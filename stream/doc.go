// Package stream implements the asynchronous bulk-IN streaming engine.
//
// An [Engine] keeps a fixed number of transfer buffers in flight on a
// [hal.BulkReader], reaps their completions on a dedicated reactor goroutine
// and hands the received chunks to the consumer strictly in submission order.
//
// # Buffer Ownership
//
// Every buffer lives in one [Pool] slot and is always in exactly one state:
//
//	Free ──Acquire──▶ InFlight ──Complete──▶ Completed ──Release──▶ Free
//	                     │
//	                     └──────Discard─────▶ Free
//
// InFlight buffers belong to the transport, Completed buffers belong to the
// consumer until [Chunk.Release]. Any other transition is rejected with
// [ErrInvalidTransition].
//
// # Ordering
//
// Each submission is stamped with the next sequence number. Completions that
// arrive early wait in a reorder buffer bounded by the pool size. A transfer
// that is dropped after a transient error leaves a tombstone so the cursor
// steps over its sequence number instead of waiting for it.
//
// # Usage
//
//	eng, err := stream.Start(reader, stream.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
//	for {
//	    chunk, err := eng.NextChunk(ctx)
//	    if err != nil {
//	        return err // io.EOF after Stop, *FatalError after a fault
//	    }
//	    consume(chunk.Data)
//	    chunk.Release()
//	}
//
// # Errors
//
// Recoverable transfer losses never reach the consumer; they are counted in
// [Stats] and logged at warn level. Fatal faults end the stream with a single
// [*FatalError] from [Engine.NextChunk], followed by [io.EOF].
package stream
