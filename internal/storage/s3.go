package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket string
	Region string
	// Endpoint points the client at an S3-compatible service (MinIO,
	// Supabase storage). Path-style addressing is used when set.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL prefixes keys in returned URLs. Derived from the
	// endpoint or the AWS virtual-hosted URL when empty.
	PublicBaseURL string
}

// S3Store stores objects in a single bucket.
type S3Store struct {
	client    s3API
	bucket    string
	publicURL string
}

// NewS3Store loads the AWS configuration and builds the client.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, opts.Bucket, publicBase(opts, cfg.Region)), nil
}

func newS3Store(client s3API, bucket, publicURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicURL: publicURL}
}

func publicBase(opts S3Options, region string) string {
	switch {
	case opts.PublicBaseURL != "":
		return opts.PublicBaseURL
	case opts.Endpoint != "":
		return joinURL(opts.Endpoint, opts.Bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, region)
	}
}

// Bucket returns the bucket name.
func (s *S3Store) Bucket() string {
	return s.bucket
}

// Put uploads data with the given metadata.
func (s *S3Store) Put(ctx context.Context, key string, opts PutOptions, data []byte) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s to S3: %w", key, err)
	}
	return joinURL(s.publicURL, key), nil
}

// Get downloads the object under key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket, Key: &key,
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("download %s from S3: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s from S3: %w", key, err)
	}
	return data, nil
}
