package usbfs

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// IDPaths are the usual locations of the usb.ids database.
var IDPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Names maps vendor and product IDs to the names listed in a usb.ids
// database. A nil *Names answers every lookup with "".
type Names struct {
	vendors  map[uint16]string
	products map[uint32]string // vid<<16 | pid
}

// LoadNames parses the first database found in paths, or in IDPaths when
// paths is empty. It returns an error wrapping fs.ErrNotExist when none exist.
func LoadNames(paths ...string) (*Names, error) {
	if len(paths) == 0 {
		paths = IDPaths
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		return ParseNames(f)
	}
	return nil, fmt.Errorf("usb.ids: %w", fs.ErrNotExist)
}

// ParseNames reads a usb.ids database. Class, language and HID sections are
// ignored.
func ParseNames(r io.Reader) (*Names, error) {
	n := &Names{vendors: make(map[uint16]string), products: make(map[uint32]string)}

	var vid uint16
	inVendor := false
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] != '\t' {
			id, name, ok := splitIDLine(line)
			inVendor = ok
			if ok {
				vid = id
				n.vendors[vid] = name
			}
			continue
		}
		if !inVendor || strings.HasPrefix(line, "\t\t") {
			continue
		}
		if pid, name, ok := splitIDLine(line[1:]); ok {
			n.products[uint32(vid)<<16|uint32(pid)] = name
		}
	}
	return n, sc.Err()
}

// splitIDLine splits "xxxx  Name" into its hex ID and name.
func splitIDLine(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimSpace(line[5:]), true
}

// Vendor returns the vendor name for vid.
func (n *Names) Vendor(vid uint16) string {
	if n == nil {
		return ""
	}
	return n.vendors[vid]
}

// Product returns the product name for vid:pid.
func (n *Names) Product(vid, pid uint16) string {
	if n == nil {
		return ""
	}
	return n.products[uint32(vid)<<16|uint32(pid)]
}

// Describe names a device from the database, falling back to the product
// string the device reports.
func (n *Names) Describe(i Info) string {
	vendor, product := n.Vendor(i.VendorID), n.Product(i.VendorID, i.ProductID)
	if product == "" {
		product = i.Product
	}
	return strings.TrimSpace(vendor + " " + product)
}
