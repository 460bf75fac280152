package ft60x

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ardnew/ft60x/pkg"
)

// FIFOMode is the parallel FIFO bus protocol.
type FIFOMode uint8

// FIFO modes.
const (
	FIFOMode245 FIFOMode = 0
	FIFOMode600 FIFOMode = 1
)

// String returns the mode name.
func (m FIFOMode) String() string {
	switch m {
	case FIFOMode245:
		return "245"
	case FIFOMode600:
		return "600"
	default:
		return fmt.Sprintf("FIFOMode(%d)", uint8(m))
	}
}

// Valid reports whether m is a known mode.
func (m FIFOMode) Valid() bool { return m <= FIFOMode600 }

// ParseFIFOMode parses "245" or "600".
func ParseFIFOMode(s string) (FIFOMode, error) {
	switch strings.TrimSpace(s) {
	case "245":
		return FIFOMode245, nil
	case "600":
		return FIFOMode600, nil
	}
	return 0, fmt.Errorf("%w: fifo mode %q", pkg.ErrInvalidParameter, s)
}

// FIFOClock is the FIFO bus clock.
type FIFOClock uint8

// FIFO clocks.
const (
	FIFOClock100MHz FIFOClock = 0
	FIFOClock66MHz  FIFOClock = 1
	FIFOClock50MHz  FIFOClock = 2
	FIFOClock40MHz  FIFOClock = 3
)

// MHz returns the clock frequency.
func (c FIFOClock) MHz() int {
	switch c {
	case FIFOClock100MHz:
		return 100
	case FIFOClock66MHz:
		return 66
	case FIFOClock50MHz:
		return 50
	case FIFOClock40MHz:
		return 40
	default:
		return 0
	}
}

// String returns the clock as "<n>MHz".
func (c FIFOClock) String() string {
	if !c.Valid() {
		return fmt.Sprintf("FIFOClock(%d)", uint8(c))
	}
	return fmt.Sprintf("%dMHz", c.MHz())
}

// Valid reports whether c is a known clock.
func (c FIFOClock) Valid() bool { return c <= FIFOClock40MHz }

// ParseFIFOClock parses a frequency such as "100" or "66MHz".
func ParseFIFOClock(s string) (FIFOClock, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "mhz")
	for c := FIFOClock100MHz; c <= FIFOClock40MHz; c++ {
		if fmt.Sprint(c.MHz()) == v {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: fifo clock %q", pkg.ErrInvalidParameter, s)
}

// ChannelConfig is the FIFO channel layout.
type ChannelConfig uint8

// Channel layouts.
const (
	ChannelConfig4        ChannelConfig = 0
	ChannelConfig2        ChannelConfig = 1
	ChannelConfig1        ChannelConfig = 2
	ChannelConfig1OutPipe ChannelConfig = 3
	ChannelConfig1InPipe  ChannelConfig = 4
)

var channelNames = [...]string{"4", "2", "1", "1-out", "1-in"}

// String returns the layout name.
func (c ChannelConfig) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ChannelConfig(%d)", uint8(c))
	}
	return channelNames[c]
}

// Valid reports whether c is a known layout.
func (c ChannelConfig) Valid() bool { return int(c) < len(channelNames) }

// ParseChannelConfig parses "4", "2", "1", "1-out" or "1-in".
func ParseChannelConfig(s string) (ChannelConfig, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range channelNames {
		if name == v {
			return ChannelConfig(i), nil
		}
	}
	return 0, fmt.Errorf("%w: channel config %q", pkg.ErrInvalidParameter, s)
}

// Optional feature bits.
const (
	FeatureNone            uint16 = 0
	FeatureBatteryCharging uint16 = 1 << 0
)

// ParseFeatures parses "none", "battery" or a hex feature mask.
func ParseFeatures(s string) (uint16, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "none":
		return FeatureNone, nil
	case "battery":
		return FeatureBatteryCharging, nil
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: optional features %q", pkg.ErrInvalidParameter, s)
	}
	return uint16(n), nil
}

// FlashROMDetection is the read-only flash/EEPROM status byte.
type FlashROMDetection uint8

// FlashROMDetection bits. A set bit selects the second alternative.
const (
	DetectROM              FlashROMDetection = 1 << 0 // memory is ROM, not flash
	DetectMemoryAbsent     FlashROMDetection = 1 << 1 // memory does not exist
	DetectConfigInvalid    FlashROMDetection = 1 << 2 // custom config is invalid
	DetectChecksumInvalid  FlashROMDetection = 1 << 3 // custom config checksum is invalid
	DetectCustomConfigUsed FlashROMDetection = 1 << 4 // custom config in use, not default
	DetectGPIOInputUsed    FlashROMDetection = 1 << 5 // GPIO input used, not ignored
	DetectGPIO0High        FlashROMDetection = 1 << 6
	DetectGPIO1High        FlashROMDetection = 1 << 7
)

// Has reports whether every bit of flag is set.
func (f FlashROMDetection) Has(flag FlashROMDetection) bool { return f&flag == flag }

// String lists the decoded fields.
func (f FlashROMDetection) String() string {
	pick := func(flag FlashROMDetection, off, on string) string {
		if f.Has(flag) {
			return on
		}
		return off
	}
	return strings.Join([]string{
		"memory=" + pick(DetectROM, "flash", "rom"),
		"present=" + pick(DetectMemoryAbsent, "yes", "no"),
		"config=" + pick(DetectConfigInvalid, "valid", "invalid"),
		"checksum=" + pick(DetectChecksumInvalid, "valid", "invalid"),
		"used=" + pick(DetectCustomConfigUsed, "default", "custom"),
		"gpio-input=" + pick(DetectGPIOInputUsed, "ignored", "used"),
		"gpio0=" + pick(DetectGPIO0High, "low", "high"),
		"gpio1=" + pick(DetectGPIO1High, "low", "high"),
	}, " ")
}
