// Package storage reads and writes cost reports in S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/lvonguyen/cost-reporter/internal/costdata"
)

var (
	ErrNoBucket = errors.New("storage bucket not configured")
	ErrNotFound = errors.New("object not found")
)

// NewStore creates a store over an S3 client
func NewStore(client ObjectAPI, cfg Config, logger *zap.Logger) *Store {
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		now:    time.Now,
		logger: logger,
	}
}

// NewFromConfig builds the store from an AWS config
func NewFromConfig(awsCfg aws.Config, cfg Config, logger *zap.Logger) *Store {
	return NewStore(s3.NewFromConfig(awsCfg), cfg, logger)
}

// Bucket returns the configured bucket
func (s *Store) Bucket() string {
	return s.bucket
}

// ReportKey returns the date-keyed object key for a report artifact
func (s *Store) ReportKey(day time.Time, ext string) string {
	return fmt.Sprintf("%s%s.%s", s.prefix, day.UTC().Format(costdata.DateLayout), ext)
}

// SaveDataset writes the raw dataset under today's key, overwriting any
// previous upload for the same day.
func (s *Store) SaveDataset(ctx context.Context, ds *costdata.Dataset) (string, error) {
	body, err := ds.Marshal()
	if err != nil {
		return "", err
	}
	key := s.ReportKey(s.now(), "json")
	if err := s.Put(ctx, key, "application/json", body); err != nil {
		return "", err
	}
	return key, nil
}

// SaveArtifact writes a rendered artifact next to today's dataset
func (s *Store) SaveArtifact(ctx context.Context, ext, contentType string, body []byte) (string, error) {
	key := s.ReportKey(s.now(), ext)
	if err := s.Put(ctx, key, contentType, body); err != nil {
		return "", err
	}
	return key, nil
}

// Put uploads an object
func (s *Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	if s.bucket == "" {
		return ErrNoBucket
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Info("Uploaded object",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// LoadDataset reads and parses a dataset object
func (s *Store) LoadDataset(ctx context.Context, key string) (*costdata.Dataset, error) {
	if s.bucket == "" {
		return nil, ErrNoBucket
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("s3://%s/%s: empty object", s.bucket, key)
	}

	return costdata.Parse(data)
}
