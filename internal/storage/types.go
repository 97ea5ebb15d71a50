package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectAPI is the subset of the S3 client the store uses
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store persists cost datasets and rendered reports in one bucket
type Store struct {
	client ObjectAPI
	bucket string
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// Config locates the report archive
type Config struct {
	Bucket string
	Prefix string // e.g. "reports/"
}
