// Package registry publishes exported dataset files to an S3-compatible
// bucket, one folder per translation run.
package registry

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config locates the bucket.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether a registry is configured at all.
func (c Config) Enabled() bool {
	return c.Endpoint != "" || c.Bucket != ""
}

// Validate checks the fields needed to connect.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("registry endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("registry endpoint %q must be host[:port] without a scheme", c.Endpoint)
	}
	if c.Bucket == "" {
		return fmt.Errorf("registry bucket is required")
	}
	return nil
}

// bucketAPI is the part of the MinIO client the registry uses.
type bucketAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts miniosdk.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts miniosdk.PutObjectOptions) (miniosdk.UploadInfo, error)
}

// Option customizes client initialization.
type Option func(*options)

type options struct {
	requireExistingBucket bool
	logger                *zap.Logger
}

// WithExistingBucketOnly requires the bucket to exist instead of creating it.
func WithExistingBucketOnly() Option {
	return func(o *options) {
		o.requireExistingBucket = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Registry uploads run outputs.
type Registry struct {
	client bucketAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := miniosdk.New(cfg.Endpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return newRegistry(ctx, client, cfg, opts...)
}

func newRegistry(ctx context.Context, client bucketAPI, cfg Config, opts ...Option) (*Registry, error) {
	settings := options{}
	for _, opt := range opts {
		opt(&settings)
	}
	logger := settings.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if settings.requireExistingBucket {
			return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, miniosdk.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created bucket", zap.String("bucket", cfg.Bucket))
	}

	return &Registry{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// Bucket returns the configured bucket name.
func (r *Registry) Bucket() string {
	return r.bucket
}

// ObjectKey returns the key a file is stored under for a run:
// <prefix>/<run-id>/<file name>.
func (r *Registry) ObjectKey(runID, file string) string {
	return objectKey(r.prefix, runID, file)
}

func objectKey(prefix, runID, file string) string {
	parts := []string{runID, filepath.Base(file)}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return path.Join(parts...)
}

// Push uploads files under the run's folder and returns their keys in
// order. It stops at the first failed upload.
func (r *Registry) Push(ctx context.Context, runID string, files []string) ([]string, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := r.ObjectKey(runID, file)
		info, err := r.client.FPutObject(ctx, r.bucket, key, file, miniosdk.PutObjectOptions{
			ContentType: contentType(file),
			UserMetadata: map[string]string{
				"run-id": runID,
			},
		})
		if err != nil {
			return keys, fmt.Errorf("failed to put object %s: %w", key, err)
		}
		r.logger.Info("uploaded",
			zap.String("bucket", r.bucket),
			zap.String("key", key),
			zap.Int64("size", info.Size),
		)
		keys = append(keys, key)
	}
	return keys, nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".jsonl", ".ndjson":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
