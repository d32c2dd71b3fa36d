package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"talknote-go/internal/failure"
)

// S3Client abstracts the S3 API operations used by S3Store.
// The s3.Client type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements ObjectStore on Amazon S3 or any S3-compatible store
// (MinIO, R2, ...).
type S3Store struct {
	client S3Client
	bucket string
	prefix string

	// publicBaseURL, when set, is joined with the key to form Object.URL.
	// Otherwise URLs use the s3://bucket/key form.
	publicBaseURL string
}

func NewS3(client S3Client, bucket, prefix, publicBaseURL string) *S3Store {
	if prefix == "" {
		prefix = Folder
	}
	return &S3Store{
		client:        client,
		bucket:        bucket,
		prefix:        prefix,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// NewS3Client loads the default AWS credential chain. A non-empty endpoint
// switches to path-style addressing for S3-compatible servers.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Store) Upload(ctx context.Context, u Upload) (Object, error) {
	if len(u.Body) == 0 {
		return Object{}, failure.Newf(failure.Validation, "upload", "audio content is empty")
	}
	key := newKey(s.prefix, u)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(u.Body),
	}
	if u.ContentType != "" {
		in.ContentType = aws.String(u.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Object{}, failure.New(failure.Storage, "upload", fmt.Errorf("put %s: %w", key, err))
	}
	return Object{URL: s.url(key), PublicID: key}, nil
}

func (s *S3Store) Fetch(ctx context.Context, publicID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, failure.New(failure.NotFound, "fetch", fmt.Errorf("%s: %w", publicID, ErrNotFound))
		}
		return nil, failure.New(failure.Storage, "fetch", fmt.Errorf("get %s: %w", publicID, err))
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, failure.New(failure.Storage, "fetch", fmt.Errorf("read %s: %w", publicID, err))
	}
	return data, nil
}

// Delete removes the object. S3 DeleteObject already succeeds for missing keys.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil && !isS3NotFound(err) {
		return failure.New(failure.Storage, "delete", fmt.Errorf("delete %s: %w", publicID, err))
	}
	return nil
}

func (s *S3Store) url(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return "s3://" + s.bucket + "/" + key
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var _ ObjectStore = (*S3Store)(nil)
