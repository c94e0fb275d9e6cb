// Package operator records paid orders that could not be fulfilled so an
// operator can refund the buyer. Reports go to S3, with a local directory
// as fallback.
package operator

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Store persists report objects under a key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store writes gzipped objects to an S3 bucket.
type s3Store struct {
	client objectPutter
	bucket string
	logger zerolog.Logger
}

// NewS3Store creates a Store backed by bucket.
func NewS3Store(ctx context.Context, bucket, region string, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "s3-report-store").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 report store initialised")

	return &s3Store{client: s3.NewFromConfig(cfg), bucket: bucket, logger: logger}, nil
}

func (s *s3Store) Put(ctx context.Context, key string, data []byte) error {
	body, err := gzipBytes(data)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().Str("bucket", s.bucket).Str("key", key).Msg("report uploaded to S3")
	return nil
}

// fileStore writes gzipped files below a directory.
type fileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a Store that writes below dir.
func NewFileStore(dir string, logger zerolog.Logger) Store {
	return &fileStore{dir: dir, logger: logger.With().Str("component", "file-report-store").Logger()}
}

func (s *fileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	body, err := gzipBytes(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to write report")
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("report written")
	return nil
}

// fallbackStore tries S3 first, then the local directory.
type fallbackStore struct {
	primary   Store
	fallback  Store
	prefix    string
	s3Enabled bool
	logger    zerolog.Logger
}

// NewFallbackStore creates a Store that writes to primary under prefix and
// falls back to fallback without the prefix. primary may be nil.
func NewFallbackStore(primary, fallback Store, prefix string, s3Enabled bool, logger zerolog.Logger) Store {
	return &fallbackStore{
		primary:   primary,
		fallback:  fallback,
		prefix:    prefix,
		s3Enabled: s3Enabled,
		logger:    logger.With().Str("component", "fallback-report-store").Logger(),
	}
}

func (s *fallbackStore) Put(ctx context.Context, key string, data []byte) error {
	if s.s3Enabled && s.primary != nil {
		err := s.primary.Put(ctx, s.prefix+key, data)
		if err == nil {
			return nil
		}
		s.logger.Warn().
			Err(err).
			Str("s3_key", s.prefix+key).
			Msg("failed to upload report to S3, falling back to local file system")
	}

	return s.fallback.Put(ctx, key, data)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress report: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress report: %w", err)
	}
	return buf.Bytes(), nil
}
