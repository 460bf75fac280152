package ft60x

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/ardnew/ft60x/pkg"
)

// ConfigSize is the size of the chip configuration block.
const ConfigSize = 152

const (
	stringBlockSize      = 128
	stringDescriptorType = 0x03
)

// ChipConfig is the chip configuration block, little-endian on the wire.
type ChipConfig struct {
	VendorID                  uint16
	ProductID                 uint16
	StringDescriptors         [stringBlockSize]byte
	Reserved                  uint8
	PowerAttributes           uint8
	PowerConsumption          uint16
	Reserved2                 uint8
	FIFOClock                 FIFOClock
	FIFOMode                  FIFOMode
	ChannelConfig             ChannelConfig
	OptionalFeatureSupport    uint16
	BatteryChargingGPIOConfig uint8
	FlashEEPROMDetection      FlashROMDetection
	MSIOControl               uint32
	GPIOControl               uint32
}

// MarshalBinary encodes the configuration block.
func (c *ChipConfig) MarshalBinary() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, ConfigSize))
	if err := binary.Write(buf, binary.LittleEndian, c); err != nil {
		return nil, fmt.Errorf("ft60x: encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a configuration block and rejects unknown clock,
// mode and channel values.
func (c *ChipConfig) UnmarshalBinary(data []byte) error {
	if len(data) != ConfigSize {
		return fmt.Errorf("%w: config block is %d bytes, want %d", pkg.ErrBufferTooSmall, len(data), ConfigSize)
	}
	var tmp ChipConfig
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &tmp); err != nil {
		return fmt.Errorf("ft60x: decode config: %w", err)
	}
	if err := tmp.validate(); err != nil {
		return err
	}
	*c = tmp
	return nil
}

func (c *ChipConfig) validate() error {
	switch {
	case !c.FIFOClock.Valid():
		return fmt.Errorf("%w: unknown fifo clock %d", pkg.ErrInvalidParameter, c.FIFOClock)
	case !c.FIFOMode.Valid():
		return fmt.Errorf("%w: unknown fifo mode %d", pkg.ErrInvalidParameter, c.FIFOMode)
	case !c.ChannelConfig.Valid():
		return fmt.Errorf("%w: unknown channel config %d", pkg.ErrInvalidParameter, c.ChannelConfig)
	}
	return nil
}

// Strings are the USB string descriptors stored in the configuration.
type Strings struct {
	Manufacturer string
	Product      string
	Serial       string
}

// Strings decodes the manufacturer, product and serial number descriptors.
func (c *ChipConfig) Strings() (Strings, error) {
	var s Strings
	block := c.StringDescriptors[:]
	for _, dst := range []*string{&s.Manufacturer, &s.Product, &s.Serial} {
		v, n, err := decodeString(block)
		if err != nil {
			return Strings{}, err
		}
		*dst = v
		block = block[n:]
	}
	return s, nil
}

// SetStrings encodes the three descriptors into the configuration. The
// encoded descriptors must fit the 128-byte string block together.
func (c *ChipConfig) SetStrings(s Strings) error {
	var block [stringBlockSize]byte
	off := 0
	for _, v := range []string{s.Manufacturer, s.Product, s.Serial} {
		enc, err := encodeString(v)
		if err != nil {
			return err
		}
		if off+len(enc) > len(block) {
			return fmt.Errorf("%w: string descriptors exceed %d bytes", pkg.ErrBufferTooSmall, stringBlockSize)
		}
		off += copy(block[off:], enc)
	}
	c.StringDescriptors = block
	return nil
}

// decodeString parses one descriptor: total length, type 0x03, UTF-16LE
// code units. It returns the string and the descriptor length.
func decodeString(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, fmt.Errorf("%w: truncated string descriptor", pkg.ErrBufferTooSmall)
	}
	n := int(b[0])
	switch {
	case b[1] != stringDescriptorType:
		return "", 0, fmt.Errorf("%w: descriptor type %#x, want %#x", pkg.ErrInvalidParameter, b[1], stringDescriptorType)
	case n < 2 || n%2 != 0 || n > len(b):
		return "", 0, fmt.Errorf("%w: descriptor length %d", pkg.ErrInvalidParameter, n)
	}
	units := make([]uint16, (n-2)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2+2*i:])
	}
	return string(utf16.Decode(units)), n, nil
}

func encodeString(s string) ([]byte, error) {
	units := utf16.Encode([]rune(s))
	n := 2 + 2*len(units)
	if n > 0xff {
		return nil, fmt.Errorf("%w: string %q too long for a descriptor", pkg.ErrInvalidParameter, s)
	}
	out := make([]byte, n)
	out[0] = byte(n)
	out[1] = stringDescriptorType
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2+2*i:], u)
	}
	return out, nil
}

// Settings is the part of the configuration that streaming depends on.
// Fields outside Settings are never touched by Apply.
type Settings struct {
	Mode     FIFOMode
	Clock    FIFOClock
	Channels ChannelConfig

	// Features replaces the optional feature bits when non-nil. Nil keeps
	// whatever the chip has.
	Features *uint16
}

// DefaultSettings selects 245 mode at 100 MHz with a single IN pipe.
func DefaultSettings() Settings {
	return Settings{
		Mode:     FIFOMode245,
		Clock:    FIFOClock100MHz,
		Channels: ChannelConfig1InPipe,
	}
}

// Matches reports whether the configuration already has every setting.
func (c *ChipConfig) Matches(s Settings) bool {
	return c.FIFOMode == s.Mode &&
		c.FIFOClock == s.Clock &&
		c.ChannelConfig == s.Channels &&
		(s.Features == nil || c.OptionalFeatureSupport == *s.Features)
}

// Apply copies the settings into the configuration.
func (c *ChipConfig) Apply(s Settings) {
	c.FIFOMode = s.Mode
	c.FIFOClock = s.Clock
	c.ChannelConfig = s.Channels
	if s.Features != nil {
		c.OptionalFeatureSupport = *s.Features
	}
}

// String summarizes the configuration.
func (c *ChipConfig) String() string {
	return fmt.Sprintf("vid=%04x pid=%04x mode=%s clock=%s channels=%s features=%#x power=%dmA",
		c.VendorID, c.ProductID, c.FIFOMode, c.FIFOClock, c.ChannelConfig,
		c.OptionalFeatureSupport, c.PowerConsumption)
}
