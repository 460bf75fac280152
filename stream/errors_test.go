package stream

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ardnew/ft60x/pkg"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want completionClass
	}{
		{"success", nil, classSuccess},
		{"timeout", pkg.ErrTimeout, classTransient},
		{"wrapped crc", fmt.Errorf("urb: %w", pkg.ErrCRC), classTransient},
		{"overrun", pkg.ErrOverrun, classTransient},
		{"frame overrun", pkg.ErrFrameOverrun, classTransient},
		{"cancelled", pkg.ErrCancelled, classCancelled},
		{"no device", pkg.ErrNoDevice, classFatal},
		{"stall", pkg.ErrStall, classFatal},
		{"unknown", errors.New("boom"), classFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewSubmitError(t *testing.T) {
	tests := []struct {
		err  error
		want SubmitErrorKind
	}{
		{pkg.ErrBusy, SubmitBusy},
		{pkg.ErrNoMemory, SubmitBusy},
		{pkg.ErrNoResources, SubmitBusy},
		{pkg.ErrNoDevice, SubmitDeviceGone},
		{errors.New("ioctl failed"), SubmitDeviceGone},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			se := newSubmitError(3, tt.err)
			if se.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", se.Kind, tt.want)
			}
			if !errors.Is(se, tt.err) {
				t.Errorf("SubmitError does not unwrap to %v", tt.err)
			}
		})
	}
}

func TestFatalError_Unwrap(t *testing.T) {
	err := error(&FatalError{Err: &TransferError{Kind: TransferFatal, Seq: 4, Err: pkg.ErrStall}})

	var te *TransferError
	if !errors.As(err, &te) || te.Seq != 4 {
		t.Fatalf("errors.As(*TransferError) failed for %v", err)
	}
	if !errors.Is(err, pkg.ErrStall) {
		t.Errorf("%v does not wrap %v", err, pkg.ErrStall)
	}
	if got, want := err.Error(), "stream: fatal: transfer seq 4: fatal: endpoint stalled"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
