package ft60x

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/hal/sim"
	"github.com/ardnew/ft60x/pkg"
	"github.com/ardnew/ft60x/stream"
)

// fakeUSB implements hal.Controller and hal.BulkWriter over an in-memory
// configuration block.
type fakeUSB struct {
	config  []byte
	reads   int
	writes  int
	bulk    [][]byte
	ctrlErr error
	bulkErr error
}

func newFakeUSB(t *testing.T, c *ChipConfig) *fakeUSB {
	t.Helper()
	buf, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	return &fakeUSB{config: buf}
}

func (f *fakeUSB) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if f.ctrlErr != nil {
		return 0, f.ctrlErr
	}
	if request != reqChipConfiguration {
		return 0, pkg.ErrStall
	}
	if rType&hal.RequestDirIn != 0 {
		f.reads++
		return copy(data, f.config), nil
	}
	f.writes++
	f.config = append([]byte(nil), data...)
	return len(data), nil
}

func (f *fakeUSB) WriteBulk(_ context.Context, endpoint uint8, data []byte) (int, error) {
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	if endpoint != hal.SessionOutPipe {
		return 0, pkg.ErrInvalidEndpoint
	}
	f.bulk = append(f.bulk, append([]byte(nil), data...))
	return len(data), nil
}

func TestDevice_Configure(t *testing.T) {
	usb := newFakeUSB(t, sampleConfig(t))
	dev := New(usb, usb)

	changed, err := dev.Configure(DefaultSettings())
	if err != nil || !changed {
		t.Fatalf("Configure() = %v, %v, want true, nil", changed, err)
	}
	if usb.writes != 1 {
		t.Errorf("writes = %d, want 1", usb.writes)
	}

	c, err := dev.Config()
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if !c.Matches(DefaultSettings()) {
		t.Errorf("config after Configure = %s", c)
	}
	if s, _ := c.Strings(); s.Manufacturer != "FTDI" {
		t.Errorf("Configure() lost string descriptors: %+v", s)
	}

	changed, err = dev.Configure(DefaultSettings())
	if err != nil || changed {
		t.Errorf("second Configure() = %v, %v, want false, nil", changed, err)
	}
	if usb.writes != 1 {
		t.Errorf("writes after no-op Configure = %d, want 1", usb.writes)
	}
}

func TestDevice_ConfigureKeepsFeatures(t *testing.T) {
	battery := FeatureBatteryCharging

	tests := []struct {
		name         string
		mode         FIFOMode
		want         Settings
		wantChanged  bool
		wantFeatures uint16
	}{
		{"rewrite keeps features", FIFOMode600, DefaultSettings(), true, 0x101},
		{"matching chip is not rewritten", FIFOMode245, DefaultSettings(), false, 0x101},
		{"explicit features", FIFOMode245, Settings{
			Mode: FIFOMode245, Clock: FIFOClock100MHz, Channels: ChannelConfig1InPipe, Features: &battery,
		}, true, FeatureBatteryCharging},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleConfig(t)
			c.Apply(DefaultSettings())
			c.FIFOMode = tt.mode
			c.OptionalFeatureSupport = 0x101
			usb := newFakeUSB(t, c)
			dev := New(usb, usb)

			changed, err := dev.Configure(tt.want)
			if err != nil || changed != tt.wantChanged {
				t.Fatalf("Configure() = %v, %v, want %v, nil", changed, err, tt.wantChanged)
			}
			if !tt.wantChanged && usb.writes != 0 {
				t.Errorf("writes = %d, want 0", usb.writes)
			}

			got, err := dev.Config()
			if err != nil {
				t.Fatalf("Config() error = %v", err)
			}
			if got.OptionalFeatureSupport != tt.wantFeatures {
				t.Errorf("OptionalFeatureSupport = %#x, want %#x", got.OptionalFeatureSupport, tt.wantFeatures)
			}
			if !got.Matches(tt.want) {
				t.Errorf("config after Configure = %s", got)
			}
		})
	}
}

func TestDevice_ConfigErrors(t *testing.T) {
	usb := newFakeUSB(t, sampleConfig(t))
	usb.ctrlErr = pkg.ErrNoDevice
	if _, err := New(usb, usb).Config(); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Config() error = %v, want %v", err, pkg.ErrNoDevice)
	}

	usb = newFakeUSB(t, sampleConfig(t))
	usb.config = usb.config[:64]
	if _, err := New(usb, usb).Config(); !errors.Is(err, pkg.ErrProtocol) {
		t.Errorf("Config() short read error = %v, want %v", err, pkg.ErrProtocol)
	}
}

func TestDevice_CheckStreaming(t *testing.T) {
	tests := []struct {
		name    string
		apply   bool
		wantErr error
	}{
		{"configured", true, nil},
		{"factory", false, pkg.ErrNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleConfig(t)
			if tt.apply {
				c.Apply(DefaultSettings())
			}
			usb := newFakeUSB(t, c)
			if err := New(usb, usb).CheckStreaming(DefaultSettings()); !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckStreaming() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDevice_StartStreaming(t *testing.T) {
	usb := newFakeUSB(t, sampleConfig(t))
	if err := New(usb, usb).StartStreaming(context.Background(), hal.DataInPipe, DefaultStreamSize); err != nil {
		t.Fatalf("StartStreaming() error = %v", err)
	}

	want := [][]byte{{
		0x00, 0x00, 0x00, 0x00, 0x82, 0x02, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}}
	if diff := cmp.Diff(want, usb.bulk); diff != "" {
		t.Errorf("session request mismatch (-want +got):\n%s", diff)
	}
}

func TestDevice_Stream(t *testing.T) {
	c := sampleConfig(t)
	c.Apply(DefaultSettings())
	usb := newFakeUSB(t, c)

	ep := sim.New(sim.Options{})
	t.Cleanup(func() { ep.Close() })

	eng, err := New(usb, usb).Stream(context.Background(), ep, DefaultSettings(), stream.Config{TargetDepth: 2, BufferSize: 64})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	t.Cleanup(func() { eng.Stop() })

	if len(usb.bulk) != 1 {
		t.Errorf("session requests = %d, want 1", len(usb.bulk))
	}
	buf := make([]byte, 256)
	if _, err := io.ReadFull(eng.Reader(), buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
}

func TestDevice_StreamNotConfigured(t *testing.T) {
	usb := newFakeUSB(t, sampleConfig(t))
	ep := sim.New(sim.Options{})
	t.Cleanup(func() { ep.Close() })

	_, err := New(usb, usb).Stream(context.Background(), ep, DefaultSettings(), stream.Config{})
	var ce *stream.ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, pkg.ErrNotConfigured) {
		t.Fatalf("Stream() error = %v, want *stream.ConfigError wrapping %v", err, pkg.ErrNotConfigured)
	}
	if len(usb.bulk) != 0 {
		t.Error("streaming armed on an unconfigured device")
	}
	if ep.Submitted() != 0 {
		t.Errorf("Submitted() = %d, want 0", ep.Submitted())
	}
}

func TestDevice_StreamRunsCallerReadyFirst(t *testing.T) {
	c := sampleConfig(t)
	c.Apply(DefaultSettings())
	usb := newFakeUSB(t, c)
	ep := sim.New(sim.Options{})
	t.Cleanup(func() { ep.Close() })

	gate := errors.New("gate closed")
	_, err := New(usb, usb).Stream(context.Background(), ep, DefaultSettings(), stream.Config{
		Ready: func() error { return gate },
	})
	if !errors.Is(err, gate) {
		t.Errorf("Stream() error = %v, want %v", err, gate)
	}
	if usb.reads != 0 {
		t.Errorf("config read %d times after caller hook failed", usb.reads)
	}
}
