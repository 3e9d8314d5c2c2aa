// Package source opens GTF inputs for parsing. An input is named by a URI:
//
//   - a local path or file:///path
//   - "-" for standard input
//   - s3://bucket/key, read through the AWS SDK default credential chain
//   - gs://bucket/object, read through Google application default credentials
//
// Whatever the origin, the stream is decompressed according to
// Options.Compression before it is returned, so the parser always sees
// plain GTF text.
package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
	"github.com/ajitpratap0/gtfcol/pkg/mmap"
)

// Stdin is the URI that reads standard input
const Stdin = "-"

// Scheme identifies where an input is read from
type Scheme string

const (
	SchemeFile  Scheme = "file"
	SchemeStdin Scheme = "stdin"
	SchemeS3    Scheme = "s3"
	SchemeGCS   Scheme = "gs"
)

// Options controls how inputs are opened
type Options struct {
	Compression Compression

	// MemoryMap reads local files through a read-only memory map. Empty
	// files and platforms without mmap fall back to a plain read.
	MemoryMap bool

	// S3Region overrides the region from the AWS environment
	S3Region string
	// S3Endpoint targets an S3-compatible service; path-style addressing is
	// used when it is set
	S3Endpoint string
	// S3Concurrency above 1 downloads objects in parallel ranged parts to a
	// temporary file before parsing instead of streaming them
	S3Concurrency int

	// GCSCredentialsFile points at a service account key file
	GCSCredentialsFile string
	// GCSEndpoint targets a GCS emulator; requests are sent unauthenticated
	// when it is set
	GCSEndpoint string

	// Stdin replaces os.Stdin for the "-" URI
	Stdin io.Reader
}

// Location is a parsed input URI
type Location struct {
	Scheme Scheme
	// Path is the local path for file inputs
	Path string
	// Bucket and Key address objects in s3 and gs inputs
	Bucket string
	Key    string
}

// ParseURI classifies uri. Strings without a scheme are local paths.
func ParseURI(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New(errors.ErrorTypeValidation, "empty input uri")
	}
	if uri == Stdin {
		return Location{Scheme: SchemeStdin}, nil
	}

	i := strings.Index(uri, "://")
	if i < 0 {
		return Location{Scheme: SchemeFile, Path: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeValidation, "invalid input uri").WithDetail("uri", uri)
	}

	switch Scheme(u.Scheme) {
	case SchemeFile:
		if u.Path == "" {
			return Location{}, errors.New(errors.ErrorTypeValidation, "file uri has no path").WithDetail("uri", uri)
		}
		return Location{Scheme: SchemeFile, Path: u.Path}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, errors.Newf(errors.ErrorTypeValidation, "%s uri must name a bucket and an object", u.Scheme).
				WithDetail("uri", uri)
		}
		return Location{Scheme: Scheme(u.Scheme), Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, errors.Newf(errors.ErrorTypeCapability, "unsupported input scheme %q", u.Scheme).
			WithDetail("uri", uri)
	}
}

// Open opens uri and returns its decompressed content. The caller must close
// the returned reader.
func Open(ctx context.Context, uri string, opts Options) (io.ReadCloser, error) {
	rc, _, err := OpenDetect(ctx, uri, opts)
	return rc, err
}

// OpenDetect is Open that also reports the compression that was applied
func OpenDetect(ctx context.Context, uri string, opts Options) (io.ReadCloser, Compression, error) {
	compression, err := ParseCompression(string(opts.Compression))
	if err != nil {
		return nil, "", err
	}

	loc, err := ParseURI(uri)
	if err != nil {
		return nil, "", err
	}

	var raw io.ReadCloser
	switch loc.Scheme {
	case SchemeStdin:
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		raw = io.NopCloser(in)
	case SchemeFile:
		raw, err = openFile(loc.Path, opts.MemoryMap)
	case SchemeS3:
		raw, err = openS3(ctx, loc, opts)
	case SchemeGCS:
		raw, err = openGCS(ctx, loc, opts)
	}
	if err != nil {
		return nil, "", err
	}

	rc, applied, err := decompress(raw, compression)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return nil, "", e.WithDetail("uri", uri)
		}
		return nil, "", err
	}
	return rc, applied, nil
}

func openFile(path string, memoryMap bool) (io.ReadCloser, error) {
	if memoryMap && mmap.Supported {
		r, err := mmap.Open(path)
		if err == nil {
			return r, nil
		}
		if err != mmap.ErrEmpty {
			return nil, err
		}
	}

	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").WithDetail("path", path)
	}
	return f, nil
}
