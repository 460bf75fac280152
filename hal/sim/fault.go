package sim

// Fault selects how a simulated request completes.
type Fault int

// Fault kinds.
const (
	FaultNone       Fault = iota // full transfer
	FaultShort                   // half the requested length, rounded down to a word
	FaultTimeout                 // zero bytes, pkg.ErrTimeout
	FaultStall                   // zero bytes, pkg.ErrStall
	FaultDisconnect              // zero bytes, pkg.ErrNoDevice; the device is gone afterwards
	FaultBusy                    // Submit fails with pkg.ErrBusy
)

// String returns the fault name.
func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultShort:
		return "short"
	case FaultTimeout:
		return "timeout"
	case FaultStall:
		return "stall"
	case FaultDisconnect:
		return "disconnect"
	case FaultBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Script decides the fault for the Submit call with the given index. Indexes
// start at 0 and count every Submit call, including rejected ones.
type Script func(index uint64) Fault

// Every returns a script that injects fault on every nth Submit call, starting
// with call n-1.
func Every(n uint64, fault Fault) Script {
	return func(i uint64) Fault {
		if n > 0 && i%n == n-1 {
			return fault
		}
		return FaultNone
	}
}

// At returns a script that injects fault on the listed Submit calls only.
func At(fault Fault, indexes ...uint64) Script {
	set := make(map[uint64]struct{}, len(indexes))
	for _, i := range indexes {
		set[i] = struct{}{}
	}
	return func(i uint64) Fault {
		if _, ok := set[i]; ok {
			return fault
		}
		return FaultNone
	}
}
