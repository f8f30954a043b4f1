package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/oliviawu/xetra-ruoshi/internal/config"
	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
)

// s3API is the subset of the S3 client used by Bucket. Tests substitute
// a mock implementation.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient builds an S3 client from the store configuration. Endpoint
// and path-style addressing support S3-compatible stores.
func NewClient(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return client, nil
}

// Bucket is the S3-backed Gateway implementation for one bucket
type Bucket struct {
	client s3API
	name   string
	logger *slog.Logger
}

// NewBucket creates a gateway over the given bucket
func NewBucket(client s3API, name string, logger *slog.Logger) *Bucket {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bucket{
		client: client,
		name:   name,
		logger: logger,
	}
}

// List returns all keys in the bucket starting with prefix, in the
// lexicographic order S3 guarantees
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
		Prefix: aws.String(prefix),
	}
	for {
		output, err := b.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to list objects with prefix %q", prefix), err)
		}
		for _, obj := range output.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if output.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	return keys, nil
}

// ReadTable reads the object at key and decodes it by key suffix:
// ".parquet" keys as Parquet, everything else as CSV
func (b *Bucket) ReadTable(ctx context.Context, key string) (*Table, error) {
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("object %q does not exist", key), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read object %q", key), err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read body of object %q", key), err)
	}

	b.logger.DebugContext(ctx, "read object",
		slog.String("bucket", b.name),
		slog.String("key", key),
		slog.Int("bytes", len(data)))

	return decodeTable(data, key)
}

// WriteTable encodes the table in the requested format and overwrites
// the object at key. An empty table is a no-op returning (false, nil).
func (b *Bucket) WriteTable(ctx context.Context, t *Table, key, format string) (bool, error) {
	if t.Empty() {
		b.logger.InfoContext(ctx, "empty table, skipping write",
			slog.String("bucket", b.name),
			slog.String("key", key))
		return false, nil
	}

	data, err := encodeTable(t, format)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeFormat) {
			b.logger.ErrorContext(ctx, "unsupported file format",
				slog.String("format", format),
				slog.String("key", key))
		}
		return false, err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return false, apperrors.NewStorageError(fmt.Sprintf("failed to write object %q", key), err)
	}

	b.logger.InfoContext(ctx, "wrote object",
		slog.String("bucket", b.name),
		slog.String("key", key),
		slog.String("format", format),
		slog.Int("rows", len(t.Rows)))

	return true, nil
}

// isNoSuchKey reports whether err is the store's absent-key condition
func isNoSuchKey(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey")
}
