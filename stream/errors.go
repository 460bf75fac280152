package stream

import (
	"errors"
	"fmt"

	"github.com/ardnew/ft60x/pkg"
)

var (
	// ErrInvalidTransition is returned when a pool slot is moved out of a
	// state it is not in, such as releasing a buffer that is still in flight.
	ErrInvalidTransition = errors.New("invalid buffer state transition")

	// ErrDrainTimeout is returned by Stop when outstanding transfers did not
	// resolve within the drain timeout.
	ErrDrainTimeout = errors.New("drain timed out")
)

// SubmitErrorKind classifies a failed submission.
type SubmitErrorKind int

// Submission failure kinds.
const (
	SubmitBusy       SubmitErrorKind = iota // controller cannot queue more right now
	SubmitDeviceGone                        // device disconnected or unusable
)

// String returns the kind name.
func (k SubmitErrorKind) String() string {
	switch k {
	case SubmitBusy:
		return "busy"
	case SubmitDeviceGone:
		return "device gone"
	default:
		return "unknown"
	}
}

// SubmitError reports a transfer the controller refused.
type SubmitError struct {
	Kind SubmitErrorKind
	Seq  uint64
	Err  error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit seq %d: %s: %v", e.Seq, e.Kind, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// newSubmitError classifies a transport submission error.
func newSubmitError(seq uint64, err error) *SubmitError {
	kind := SubmitDeviceGone
	if errors.Is(err, pkg.ErrBusy) || errors.Is(err, pkg.ErrNoMemory) || errors.Is(err, pkg.ErrNoResources) {
		kind = SubmitBusy
	}
	return &SubmitError{Kind: kind, Seq: seq, Err: err}
}

// TransferErrorKind classifies a failed completion.
type TransferErrorKind int

// Transfer failure kinds.
const (
	TransferTransient TransferErrorKind = iota // chunk lost, stream continues
	TransferFatal                              // stream ends
)

// String returns the kind name.
func (k TransferErrorKind) String() string {
	switch k {
	case TransferTransient:
		return "transient"
	case TransferFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// TransferError reports a completion that carried an error.
type TransferError struct {
	Kind TransferErrorKind
	Seq  uint64
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer seq %d: %s: %v", e.Seq, e.Kind, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// FatalError ends a stream. It is returned once by NextChunk after every
// chunk that completed before the fault has been delivered.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "stream: fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }

// ConfigError rejects an engine configuration at Start.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("stream: config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// completionClass is the reactor's view of a completion status.
type completionClass int

const (
	classSuccess completionClass = iota
	classTransient
	classCancelled
	classFatal
)

// classify maps a completion error to how the reactor treats it.
func classify(err error) completionClass {
	switch {
	case err == nil:
		return classSuccess
	case errors.Is(err, pkg.ErrCancelled):
		return classCancelled
	case errors.Is(err, pkg.ErrTimeout),
		errors.Is(err, pkg.ErrCRC),
		errors.Is(err, pkg.ErrOverrun),
		errors.Is(err, pkg.ErrBitStuff),
		errors.Is(err, pkg.ErrNAK),
		errors.Is(err, pkg.ErrProtocol),
		errors.Is(err, pkg.ErrUnderrun),
		errors.Is(err, pkg.ErrFrameOverrun):
		return classTransient
	default:
		return classFatal
	}
}
