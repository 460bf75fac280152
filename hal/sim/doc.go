// Package sim provides an in-process simulated FT60x bulk-IN endpoint.
//
// The simulated endpoint implements [hal.BulkReader] without hardware. Each
// accepted request is completed by a background goroutine after a
// configurable latency and is filled with the counter pattern an FPGA test
// image produces: a little-endian 16-bit counter followed by a 16-bit zero
// word, continuing across requests in submission order.
//
// Faults are injected by a script that sees every Submit call in order:
//
//	ep := sim.New(sim.Options{
//	    Script: func(i uint64) sim.Fault {
//	        if i%10 == 9 {
//	            return sim.FaultTimeout
//	        }
//	        return sim.FaultNone
//	    },
//	})
//	defer ep.Close()
//
// Completions may be released out of submission order with [Options.Reorder],
// which exercises the reorder buffer of a consumer.
//
// [Device] pairs an endpoint factory with a [Chip] that answers the FT60x
// configuration request and records session commands, so the whole
// configure-then-stream path runs without hardware.
package sim
