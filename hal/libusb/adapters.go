//go:build cgo

package libusb

// The adapters below wrap gousb types behind interfaces. This decouples the
// transport from gousb and lets its tests run against stubs.

import (
	"context"
	"io"
	"time"

	"github.com/google/gousb"
)

type usbInEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

type usbOutEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

type usbInterface interface {
	io.Closer
	InEndpoint(epNum int) (usbInEndpoint, error)
	OutEndpoint(epNum int) (usbOutEndpoint, error)
}

type usbConfig interface {
	io.Closer
	Interface(num, alt int) (usbInterface, error)
}

type usbDevice interface {
	io.Closer
	ActiveConfigNum() (int, error)
	Config(cfgNum int) (usbConfig, error)
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	SerialNumber() (string, error)
	SetAutoDetach(autodetach bool) error
	SetControlTimeout(d time.Duration)
}

// OpenerFunc reports whether to open the device with the given identifiers.
type OpenerFunc func(vendor, product uint16) bool

type usbContext interface {
	io.Closer
	OpenDevices(opener OpenerFunc) ([]usbDevice, error)
}

type usbInterfaceAdapter struct {
	*gousb.Interface
}

func (i usbInterfaceAdapter) Close() error {
	i.Interface.Close()
	return nil
}

func (i usbInterfaceAdapter) InEndpoint(epNum int) (usbInEndpoint, error) {
	return i.Interface.InEndpoint(epNum)
}

func (i usbInterfaceAdapter) OutEndpoint(epNum int) (usbOutEndpoint, error) {
	return i.Interface.OutEndpoint(epNum)
}

type usbConfigAdapter struct {
	*gousb.Config
}

func (c usbConfigAdapter) Interface(num, alt int) (usbInterface, error) {
	i, err := c.Config.Interface(num, alt)
	if err != nil {
		return nil, err
	}
	return usbInterfaceAdapter{i}, nil
}

type usbDeviceAdapter struct {
	*gousb.Device
}

func (d usbDeviceAdapter) Config(cfgNum int) (usbConfig, error) {
	cfg, err := d.Device.Config(cfgNum)
	if err != nil {
		return nil, err
	}
	return usbConfigAdapter{cfg}, nil
}

func (d usbDeviceAdapter) SetControlTimeout(t time.Duration) {
	d.Device.ControlTimeout = t
}

type usbContextAdapter struct {
	*gousb.Context
}

func (c usbContextAdapter) OpenDevices(opener OpenerFunc) ([]usbDevice, error) {
	devs, err := c.Context.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return opener(uint16(desc.Vendor), uint16(desc.Product))
	})
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		return nil, err
	}

	out := make([]usbDevice, 0, len(devs))
	for _, d := range devs {
		out = append(out, usbDeviceAdapter{d})
	}
	return out, nil
}
