package usbfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Info describes a USB device found in sysfs.
type Info struct {
	SysfsPath string
	DevfsPath string
	Bus       uint8
	Address   uint8
	VendorID  uint16
	ProductID uint16
	Speed     Speed
	Serial    string
	Product   string
}

// String identifies the device the way lsusb does.
func (i Info) String() string {
	return fmt.Sprintf("bus %03d device %03d: %04x:%04x %s (%s speed)",
		i.Bus, i.Address, i.VendorID, i.ProductID, i.Product, i.Speed)
}

// Scan lists the USB devices under sysfsRoot. Device nodes are resolved
// under devfsRoot. Entries that cannot be parsed are skipped.
func Scan(sysfsRoot, devfsRoot string) ([]Info, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, err
	}

	var devices []Info
	for _, entry := range entries {
		name := entry.Name()
		// Root hubs are "usbN"; interfaces are "1-1:1.0".
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		info, err := parseDevice(filepath.Join(sysfsRoot, name), devfsRoot)
		if err != nil {
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

// Find returns the devices under the given roots that match vid and pid, and
// serial when it is not empty.
func Find(sysfsRoot, devfsRoot string, vid, pid uint16, serial string) ([]Info, error) {
	all, err := Scan(sysfsRoot, devfsRoot)
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, d := range all {
		if d.VendorID != vid || d.ProductID != pid {
			continue
		}
		if serial != "" && d.Serial != serial {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func parseDevice(sysfsPath, devfsRoot string) (Info, error) {
	info := Info{SysfsPath: sysfsPath}

	bus, err := readSysfsUint8(filepath.Join(sysfsPath, "busnum"))
	if err != nil {
		return info, err
	}
	addr, err := readSysfsUint8(filepath.Join(sysfsPath, "devnum"))
	if err != nil {
		return info, err
	}
	info.Bus, info.Address = bus, addr
	info.DevfsPath = formatDevfsPath(devfsRoot, bus, addr)

	if info.VendorID, err = readSysfsHexUint16(filepath.Join(sysfsPath, "idVendor")); err != nil {
		return info, err
	}
	if info.ProductID, err = readSysfsHexUint16(filepath.Join(sysfsPath, "idProduct")); err != nil {
		return info, err
	}
	if s, err := readSysfsString(filepath.Join(sysfsPath, "speed")); err == nil {
		info.Speed = parseSpeed(s)
	}
	info.Serial, _ = readSysfsString(filepath.Join(sysfsPath, "serial"))
	info.Product, _ = readSysfsString(filepath.Join(sysfsPath, "product"))
	return info, nil
}

func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readSysfsUint8(path string) (uint8, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func readSysfsHexUint16(path string) (uint16, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// formatDevfsPath returns <root>/BBB/DDD.
func formatDevfsPath(root string, bus, addr uint8) string {
	return fmt.Sprintf("%s/%03d/%03d", root, bus, addr)
}

// parseSpeed converts a sysfs speed attribute ("480", "5000", "1.5").
func parseSpeed(s string) Speed {
	if s == "1.5" {
		return SpeedLow
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return SpeedUnknown
	}
	return Speed(v)
}
