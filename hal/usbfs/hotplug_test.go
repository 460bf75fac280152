//go:build linux

package usbfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseUEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want uevent
		add  bool
	}{
		{
			name: "device add",
			data: "add@/devices/pci0000:00/0000:00:14.0/usb2/2-1\x00ACTION=add\x00DEVPATH=/devices/pci0000:00/0000:00:14.0/usb2/2-1\x00SUBSYSTEM=usb\x00DEVTYPE=usb_device\x00BUSNUM=002\x00",
			want: uevent{action: "add", devpath: "/devices/pci0000:00/0000:00:14.0/usb2/2-1", subsystem: "usb", devtype: "usb_device"},
			add:  true,
		},
		{
			name: "interface add",
			data: "add@/devices/usb2/2-1/2-1:1.0\x00ACTION=add\x00SUBSYSTEM=usb\x00DEVTYPE=usb_interface\x00",
			want: uevent{action: "add", devpath: "/devices/usb2/2-1/2-1:1.0", subsystem: "usb", devtype: "usb_interface"},
		},
		{
			name: "remove",
			data: "remove@/devices/usb2/2-1\x00ACTION=remove\x00SUBSYSTEM=usb\x00DEVTYPE=usb_device\x00",
			want: uevent{action: "remove", devpath: "/devices/usb2/2-1", subsystem: "usb", devtype: "usb_device"},
		},
		{
			name: "header only",
			data: "bind@/devices/usb2/2-1",
			want: uevent{action: "bind", devpath: "/devices/usb2/2-1"},
		},
		{
			name: "other subsystem",
			data: "ACTION=add\x00DEVPATH=/devices/virtual/net/tap0\x00SUBSYSTEM=net\x00",
			want: uevent{action: "add", devpath: "/devices/virtual/net/tap0", subsystem: "net"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseUEvent([]byte(tt.data))
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(uevent{})); diff != "" {
				t.Errorf("parseUEvent() mismatch (-want +got):\n%s", diff)
			}
			if got.isDeviceAdd() != tt.add {
				t.Errorf("isDeviceAdd() = %v, want %v", got.isDeviceAdd(), tt.add)
			}
		})
	}
}

func TestWaitAttached_Present(t *testing.T) {
	root := fakeSysfs(t)
	info, err := WaitAttached(context.Background(), Options{Serial: "000000000002", SysfsRoot: root, DevfsRoot: "/dev/bus/usb"})
	if err != nil {
		t.Fatalf("WaitAttached() error = %v", err)
	}
	if info.SysfsPath != filepath.Join(root, "2-2") {
		t.Errorf("SysfsPath = %q, want 2-2", info.SysfsPath)
	}
}

func TestWaitAttached_Later(t *testing.T) {
	root, staging := t.TempDir(), t.TempDir()
	writeDevice(t, staging, "3-1", map[string]string{
		"busnum": "3", "devnum": "2", "idVendor": "0403", "idProduct": "601f", "speed": "5000",
	})
	go func() {
		time.Sleep(150 * time.Millisecond)
		os.Rename(filepath.Join(staging, "3-1"), filepath.Join(root, "3-1"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := WaitAttached(ctx, Options{SysfsRoot: root, DevfsRoot: "/dev/bus/usb"})
	if err != nil {
		t.Fatalf("WaitAttached() error = %v", err)
	}
	if info.DevfsPath != "/dev/bus/usb/003/002" {
		t.Errorf("DevfsPath = %q, want /dev/bus/usb/003/002", info.DevfsPath)
	}
}

func TestWaitAttached_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_, err := WaitAttached(ctx, Options{SysfsRoot: t.TempDir()})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitAttached() error = %v, want %v", err, context.DeadlineExceeded)
	}
}
