package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// contentType is the MIME type written for collection blobs.
const contentType = "application/x-ndjson"

// s3OpTimeout bounds each S3 call so a hung connection surfaces as a
// transient error instead of stalling an append forever.
const s3OpTimeout = 15 * time.Second

// S3Backend stores collection blobs as objects in an S3-compatible bucket.
// Object generations are ETags; WriteIf uses conditional puts (If-Match /
// If-None-Match), so concurrent writers are detected by the bucket itself.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Backend = (*S3Backend)(nil)

// NewS3Backend creates an S3 backend. If endpoint is non-empty, path-style
// addressing is enabled (for MinIO and similar).
func NewS3Backend(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3opts...)
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (b *S3Backend) key(name string) string {
	return b.prefix + name + ".jsonl"
}

// Read downloads the blob at name. A missing object is ErrNotFound; every
// other failure (network, auth, quota, timeout) is transient.
func (b *S3Backend) Read(ctx context.Context, name string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", fmt.Errorf("s3 get %s: %w", name, ErrNotFound)
		}
		return nil, "", markTransient(fmt.Errorf("s3 get %s: %w", name, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", markTransient(fmt.Errorf("s3 read body %s: %w", name, err))
	}
	return data, aws.ToString(out.ETag), nil
}

// Write unconditionally uploads data as the blob at name.
func (b *S3Backend) Write(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	ct := contentType
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: &ct,
	})
	if err != nil {
		return markTransient(fmt.Errorf("s3 put %s: %w", name, err))
	}
	return nil
}

// WriteIf uploads data only while the object's ETag still matches generation.
// An empty generation demands that the object not exist yet.
func (b *S3Backend) WriteIf(ctx context.Context, name string, data []byte, generation string) error {
	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	ct := contentType
	in := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: &ct,
	}
	if generation == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(generation)
	}

	_, err := b.client.PutObject(ctx, in)
	if err != nil {
		if isPreconditionFailure(err) {
			return fmt.Errorf("s3 conditional put %s: %w", name, ErrPreconditionFailed)
		}
		return markTransient(fmt.Errorf("s3 conditional put %s: %w", name, err))
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// HeadObject-shaped 404s come back as a generic NotFound code.
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "NotFound"
}

func isPreconditionFailure(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
