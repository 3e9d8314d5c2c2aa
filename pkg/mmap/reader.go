// Package mmap reads local annotation files through a read-only memory map
package mmap

import (
	"io"
	"os"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

// ErrEmpty is returned by Open for zero-length files, which cannot be mapped
var ErrEmpty = errors.New(errors.ErrorTypeFile, "file is empty")

// Reader is an io.ReadCloser over a memory-mapped file. Reads copy out of the
// mapping; Bytes exposes it directly.
//
// A Reader is not safe for concurrent use, except for ReadAt.
type Reader struct {
	file *os.File
	data []byte
	off  int64
}

// Open maps path read-only and advises the kernel that it will be read
// sequentially
func Open(path string) (*Reader, error) {
	if !Supported {
		return nil, errors.New(errors.ErrorTypeCapability, "memory mapping is not supported on this platform")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").WithDetail("path", path)
	}

	size := stat.Size()
	if size == 0 {
		file.Close()
		return nil, ErrEmpty
	}
	if int64(int(size)) != size {
		file.Close()
		return nil, errors.New(errors.ErrorTypeCapability, "file too large to map").WithDetail("path", path)
	}

	data, err := mmap(int(file.Fd()), 0, int(size), protRead, mapShared)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to mmap file").WithDetail("path", path)
	}

	// Advice is a hint; a kernel that rejects it still serves the mapping
	_ = madvise(data, madvSequential)

	return &Reader{file: file, data: data}, nil
}

// Read implements io.Reader
func (r *Reader) Read(p []byte) (int, error) {
	if r.data == nil {
		return 0, os.ErrClosed
	}
	if r.off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += int64(n)
	return n, nil
}

// ReadAt implements io.ReaderAt
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if r.data == nil {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, errors.New(errors.ErrorTypeValidation, "negative offset")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (r *Reader) Bytes() []byte { return r.data }

// Len returns the number of unread bytes
func (r *Reader) Len() int {
	if r.off >= int64(len(r.data)) {
		return 0
	}
	return len(r.data) - int(r.off)
}

// Size returns the mapped file size
func (r *Reader) Size() int64 { return int64(len(r.data)) }

// Close unmaps the file and closes it. Calling Close twice is a no-op.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := munmap(r.data)
	r.data = nil
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
