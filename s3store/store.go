// Package s3store provides an S3-compatible object storage backend.
// It works against AWS S3 and self-hosted services such as MinIO.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/evteevakb/filestorage"
)

// Config holds connection settings for an S3-compatible service.
type Config struct {
	Endpoint  string // empty for AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// UsePathStyle addresses buckets as endpoint/bucket instead of
	// bucket.endpoint. MinIO needs this.
	UsePathStyle bool
}

type Store struct {
	client *s3.Client
	bucket string
	region string
}

// New builds an S3 client from cfg. Static credentials are used when an
// access key is set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("new s3 store: %w: bucket cannot be empty", filestorage.ErrInvalidInput)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewFromClient(client, cfg.Bucket, cfg.Region), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *s3.Client, bucket, region string) *Store {
	return &Store{client: client, bucket: bucket, region: region}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 is the implicit default and rejects an explicit constraint.
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err = s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}

	slog.Info("created bucket", "bucket", s.bucket)

	return nil
}

// Put uploads content under key. size may be -1 when unknown.
func (s *Store) Put(ctx context.Context, key string, content io.Reader, size int64) error {
	body, release, err := seekable(content)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	defer release()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err = s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

// Get opens the object stored under key. Returns filestorage.ErrNotFound if
// no such object exists.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, filestorage.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return out.Body, nil
}

// Delete removes the object stored under key. S3 deletes are idempotent, so
// the object is checked first to report filestorage.ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return filestorage.ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

// Ping checks that the bucket exists and is reachable with the configured
// credentials.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// isNotFound matches the typed errors from GetObject as well as the bare
// 404 codes HEAD requests come back with.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nsb) || errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}

	return false
}

// seekable returns content as an io.ReadSeeker, spooling it to a temp file
// when it cannot seek. The SDK needs to seek to sign plain-HTTP uploads.
func seekable(content io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := content.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}

	f, err := os.CreateTemp("", "filestorage-upload-*")
	if err != nil {
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}

	release := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	if _, err = io.Copy(f, content); err != nil {
		release()
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}

	if _, err = f.Seek(0, io.SeekStart); err != nil {
		release()
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}

	return f, release, nil
}
