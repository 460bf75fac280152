//go:build !linux

package stream

import "github.com/ardnew/ft60x/pkg"

func pinCPU(int) error {
	return pkg.ErrNotSupported
}
