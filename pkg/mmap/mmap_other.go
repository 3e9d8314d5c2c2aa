//go:build !linux && !darwin

package mmap

import "github.com/ajitpratap0/gtfcol/pkg/errors"

// Supported reports whether Open can map files on this platform
const Supported = false

const (
	protRead       = 0
	mapShared      = 0
	madvSequential = 0
)

var errUnsupported = errors.New(errors.ErrorTypeCapability, "memory mapping is not supported on this platform")

func mmap(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
	return nil, errUnsupported
}

func munmap(b []byte) error { return errUnsupported }

func madvise(b []byte, advice int) error { return errUnsupported }
