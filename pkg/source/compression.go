package source

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

// Compression names the codec an input is wrapped in
type Compression string

const (
	// CompressionAuto detects the codec from the first bytes of the input
	CompressionAuto Compression = "auto"
	// CompressionNone reads the input as plain text
	CompressionNone Compression = "none"
	// CompressionGzip reads gzip and bgzip (multi-member gzip) input
	CompressionGzip Compression = "gzip"
	// CompressionZstd reads zstandard input
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 reads lz4 frame input
	CompressionLZ4 Compression = "lz4"
	// CompressionSnappy reads framed snappy input
	CompressionSnappy Compression = "snappy"
)

const readBufferSize = 256 * 1024

var (
	magicGzip   = []byte{0x1f, 0x8b}
	magicZstd   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4    = []byte{0x04, 0x22, 0x4d, 0x18}
	magicSnappy = []byte("\xff\x06\x00\x00sNaPpY")
)

// ParseCompression parses a compression name. The empty string means auto.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionAuto, nil
	case CompressionAuto, CompressionNone, CompressionGzip, CompressionZstd, CompressionLZ4, CompressionSnappy:
		return c, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unsupported compression %q", s)
	}
}

// Detect returns the codec whose magic number prefixes header, or
// CompressionNone
func Detect(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, magicGzip):
		return CompressionGzip
	case bytes.HasPrefix(header, magicZstd):
		return CompressionZstd
	case bytes.HasPrefix(header, magicLZ4):
		return CompressionLZ4
	case bytes.HasPrefix(header, magicSnappy):
		return CompressionSnappy
	default:
		return CompressionNone
	}
}

// decompress wraps r in the reader for c, detecting it first if c is auto.
// Closing the result closes r.
func decompress(r io.ReadCloser, c Compression) (io.ReadCloser, Compression, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	if c == CompressionAuto || c == "" {
		header, err := br.Peek(len(magicSnappy))
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, "", errors.Wrap(err, errors.ErrorTypeIO, "failed to read input header")
		}
		c = Detect(header)
	}

	var (
		dr  io.Reader
		err error
		cl  func() error
	)
	switch c {
	case CompressionNone:
		dr = br
	case CompressionGzip:
		var gr *gzip.Reader
		gr, err = gzip.NewReader(br)
		if err == nil {
			dr, cl = gr, gr.Close
		}
	case CompressionZstd:
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(br)
		if err == nil {
			dr = zr
			cl = func() error { zr.Close(); return nil }
		}
	case CompressionLZ4:
		dr = lz4.NewReader(br)
	case CompressionSnappy:
		dr = snappy.NewReader(br)
	default:
		err = errors.Newf(errors.ErrorTypeValidation, "unsupported compression %q", c)
	}
	if err != nil {
		r.Close()
		if _, ok := err.(*errors.Error); ok {
			return nil, "", err
		}
		return nil, "", errors.Wrap(err, errors.ErrorTypeIO, "failed to open "+string(c)+" stream")
	}

	return &readCloser{Reader: dr, closers: []func() error{cl, r.Close}}, c, nil
}

// readCloser reads from Reader and runs every non-nil closer on Close,
// returning the first error
type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
