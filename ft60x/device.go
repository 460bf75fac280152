package ft60x

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
	"github.com/ardnew/ft60x/stream"
)

// Chip configuration control request.
const (
	reqChipConfiguration uint8  = 0xcf
	getConfigValue       uint16 = 1
	setConfigValue       uint16 = 0
)

const (
	rTypeVendorIn  = hal.RequestDirIn | hal.RequestTypeVendor | hal.RequestRecipDevice
	rTypeVendorOut = hal.RequestDirOut | hal.RequestTypeVendor | hal.RequestRecipDevice
)

// Device issues configuration requests to an opened FT60x.
type Device struct {
	ctrl    hal.Controller
	session hal.BulkWriter
}

// New returns a Device that sends control requests on ctrl and session
// commands on session.
func New(ctrl hal.Controller, session hal.BulkWriter) *Device {
	return &Device{ctrl: ctrl, session: session}
}

// Config reads the chip configuration.
func (d *Device) Config() (*ChipConfig, error) {
	buf := make([]byte, ConfigSize)
	n, err := d.ctrl.Control(rTypeVendorIn, reqChipConfiguration, getConfigValue, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("ft60x: read config: %w", err)
	}
	if n != ConfigSize {
		return nil, fmt.Errorf("ft60x: read config: %w: got %d bytes, want %d", pkg.ErrProtocol, n, ConfigSize)
	}

	var c ChipConfig
	if err := c.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	if pkg.Enabled(slog.LevelDebug) {
		pkg.LogDebug(pkg.ComponentConfig, "read chip config", "config", c.String())
	}
	return &c, nil
}

// SetConfig writes the chip configuration.
func (d *Device) SetConfig(c *ChipConfig) error {
	buf, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	n, err := d.ctrl.Control(rTypeVendorOut, reqChipConfiguration, setConfigValue, 0, buf)
	if err != nil {
		return fmt.Errorf("ft60x: write config: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("ft60x: write config: %w: wrote %d bytes, want %d", pkg.ErrProtocol, n, len(buf))
	}
	pkg.LogInfo(pkg.ComponentConfig, "wrote chip config", "config", c.String())
	return nil
}

// Configure brings the chip to the wanted settings with a read-modify-write.
// It writes only when the current configuration differs and reports whether
// it did.
func (d *Device) Configure(want Settings) (bool, error) {
	c, err := d.Config()
	if err != nil {
		return false, err
	}
	if c.Matches(want) {
		return false, nil
	}

	pkg.LogWarn(pkg.ComponentConfig, "chip configuration differs, rewriting",
		"mode", c.FIFOMode, "want_mode", want.Mode,
		"channels", c.ChannelConfig, "want_channels", want.Channels)
	c.Apply(want)
	return true, d.SetConfig(c)
}

// CheckStreaming confirms that the FIFO mode and channel layout match want.
// It returns an error wrapping pkg.ErrNotConfigured otherwise.
func (d *Device) CheckStreaming(want Settings) error {
	c, err := d.Config()
	if err != nil {
		return err
	}
	if c.FIFOMode != want.Mode {
		return fmt.Errorf("%w: fifo mode %s, want %s", pkg.ErrNotConfigured, c.FIFOMode, want.Mode)
	}
	if c.ChannelConfig != want.Channels {
		return fmt.Errorf("%w: channel config %s, want %s", pkg.ErrNotConfigured, c.ChannelConfig, want.Channels)
	}
	return nil
}

// StartStreaming asks the chip to stream size bytes from pipe.
func (d *Device) StartStreaming(ctx context.Context, pipe uint8, size uint32) error {
	req, err := buildRequest(0, pipe, CmdStream, size)
	if err != nil {
		return err
	}
	n, err := d.session.WriteBulk(ctx, hal.SessionOutPipe, req)
	if err != nil {
		return fmt.Errorf("ft60x: start streaming on %#02x: %w", pipe, err)
	}
	if n != len(req) {
		return fmt.Errorf("ft60x: start streaming on %#02x: %w: wrote %d bytes", pipe, pkg.ErrProtocol, n)
	}
	pkg.LogDebug(pkg.ComponentConfig, "streaming armed", "pipe", pipe, "size", size)
	return nil
}

// Stream checks the configuration, arms streaming on the data IN pipe and
// starts an engine on in. The checks run as the engine's Ready hook, so any
// failure is reported as a *stream.ConfigError before buffers are allocated.
func (d *Device) Stream(ctx context.Context, in hal.BulkReader, want Settings, cfg stream.Config) (*stream.Engine, error) {
	prev := cfg.Ready
	cfg.Ready = func() error {
		if prev != nil {
			if err := prev(); err != nil {
				return err
			}
		}
		if err := d.CheckStreaming(want); err != nil {
			return err
		}
		return d.StartStreaming(ctx, hal.DataInPipe, DefaultStreamSize)
	}
	return stream.Start(in, cfg)
}
