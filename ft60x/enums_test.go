package ft60x

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/ft60x/pkg"
)

func TestParseFIFOMode(t *testing.T) {
	tests := []struct {
		in      string
		want    FIFOMode
		wantErr bool
	}{
		{"245", FIFOMode245, false},
		{" 600 ", FIFOMode600, false},
		{"300", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFIFOMode(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFIFOMode(%q) = %v, %v", tt.in, got, err)
			}
			if err != nil && !errors.Is(err, pkg.ErrInvalidParameter) {
				t.Errorf("error %v does not wrap %v", err, pkg.ErrInvalidParameter)
			}
		})
	}
}

func TestParseFIFOClock(t *testing.T) {
	tests := []struct {
		in      string
		want    FIFOClock
		wantErr bool
	}{
		{"100", FIFOClock100MHz, false},
		{"66MHz", FIFOClock66MHz, false},
		{"50mhz", FIFOClock50MHz, false},
		{"40", FIFOClock40MHz, false},
		{"33", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFIFOClock(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFIFOClock(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestParseChannelConfig(t *testing.T) {
	for c := ChannelConfig4; c <= ChannelConfig1InPipe; c++ {
		got, err := ParseChannelConfig(c.String())
		if err != nil || got != c {
			t.Errorf("ParseChannelConfig(%q) = %v, %v, want %v", c.String(), got, err, c)
		}
	}
	if _, err := ParseChannelConfig("3"); err == nil {
		t.Error("ParseChannelConfig(\"3\") error = nil")
	}
}

func TestParseFeatures(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"none", FeatureNone, false},
		{"Battery", FeatureBatteryCharging, false},
		{"0x0101", 0x101, false},
		{"3", 3, false},
		{"on", 0, true},
		{"0x10000", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFeatures(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFeatures(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, pkg.ErrInvalidParameter) {
				t.Errorf("ParseFeatures(%q) error = %v, want %v", tt.in, err, pkg.ErrInvalidParameter)
			}
			if got != tt.want {
				t.Errorf("ParseFeatures(%q) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FIFOMode245.String(), "245"},
		{FIFOMode(7).String(), "FIFOMode(7)"},
		{FIFOClock66MHz.String(), "66MHz"},
		{FIFOClock(9).String(), "FIFOClock(9)"},
		{ChannelConfig1InPipe.String(), "1-in"},
		{ChannelConfig(8).String(), "ChannelConfig(8)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestFlashROMDetection(t *testing.T) {
	f := DetectROM | DetectCustomConfigUsed | DetectGPIO0High
	if !f.Has(DetectROM) || f.Has(DetectMemoryAbsent) {
		t.Errorf("Has() wrong for %08b", uint8(f))
	}

	s := f.String()
	for _, want := range []string{"memory=rom", "present=yes", "used=custom", "gpio0=high", "gpio1=low"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
