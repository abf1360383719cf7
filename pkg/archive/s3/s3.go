// Package s3 implements report archival to Amazon S3 or S3-compatible
// storage (MinIO, Localstack, Cubbit DS3).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink uploads rendered reports as S3 objects.
//
// Key layout: <keyPrefix><name>, e.g. "dfsck/reports/fsck-20260824-120000.txt".
// The bucket must already exist; the sink does not create it.
type S3Sink struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3SinkConfig contains configuration for the S3 archive sink.
type S3SinkConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "dfsck/reports/"
	KeyPrefix string
}

// NewS3Sink creates an S3-backed archive sink and verifies bucket access.
func NewS3Sink(ctx context.Context, cfg S3SinkConfig) (*S3Sink, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 archive sink: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 archive sink: bucket is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 archive sink: bucket %q not accessible: %w", cfg.Bucket, err)
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Sink{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

// Store uploads the report as one object.
func (s *S3Sink) Store(ctx context.Context, name string, report []byte) error {
	key := s.keyPrefix + name

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(report),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("upload report to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
