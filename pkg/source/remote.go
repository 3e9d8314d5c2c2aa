package source

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/gtfcol/pkg/errors"
)

func newS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.S3Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func openS3(ctx context.Context, loc Location, opts Options) (io.ReadCloser, error) {
	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	}

	if opts.S3Concurrency > 1 {
		return downloadS3(ctx, client, input, opts.S3Concurrency)
	}

	out, err := client.GetObject(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get s3 object").
			WithDetail("bucket", loc.Bucket).
			WithDetail("key", loc.Key)
	}
	return out.Body, nil
}

// downloadS3 fetches the object with parallel ranged GETs into a temporary
// file that is removed when the returned reader is closed
func downloadS3(ctx context.Context, client *s3.Client, input *s3.GetObjectInput, concurrency int) (io.ReadCloser, error) {
	tmp, err := os.CreateTemp("", "gtfcol-s3-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create download file")
	}
	cleanup := func() error {
		closeErr := tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && closeErr == nil {
			return err
		}
		return closeErr
	}

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = concurrency
	})
	if _, err := downloader.Download(ctx, tmp, input); err != nil {
		_ = cleanup()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to download s3 object").
			WithDetail("bucket", aws.ToString(input.Bucket)).
			WithDetail("key", aws.ToString(input.Key))
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = cleanup()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to rewind download file")
	}

	return &readCloser{Reader: tmp, closers: []func() error{cleanup}}, nil
}

func openGCS(ctx context.Context, loc Location, opts Options) (io.ReadCloser, error) {
	var clientOpts []option.ClientOption
	if opts.GCSCredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.GCSCredentialsFile))
	}
	if opts.GCSEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.GCSEndpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}

	r, err := client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open GCS object").
			WithDetail("bucket", loc.Bucket).
			WithDetail("object", loc.Key)
	}

	return &readCloser{Reader: r, closers: []func() error{r.Close, client.Close}}, nil
}
