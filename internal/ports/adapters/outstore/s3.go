package outstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/forPelevin/brollcut/internal/types"
)

type S3Config struct {
	Endpoint  string        `yaml:"endpoint"`
	Region    string        `yaml:"region"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Bucket    string        `yaml:"bucket"`
	Prefix    string        `yaml:"prefix"`
	UseSSL    bool          `yaml:"use_ssl"`
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// Enabled reports whether enough is configured to publish to S3.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

// S3 publishes to an S3-compatible bucket.
type S3 struct {
	client *minio.Client
	bucket string
	region string
	prefix string
	expiry time.Duration
	log    *zap.Logger

	mu    sync.Mutex
	ready bool
}

// maxURLExpiry is the longest lifetime S3 accepts for a presigned URL.
const maxURLExpiry = 7 * 24 * time.Hour

func NewS3(cfg S3Config, log *zap.Logger) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	if expiry > maxURLExpiry {
		return nil, fmt.Errorf("s3 url expiry %s exceeds %s", expiry, maxURLExpiry)
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		expiry: expiry,
		log:    log,
	}, nil
}

// ensureBucket creates the bucket on first use. Failures are not cached, so
// a later publish retries.
func (s *S3) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return err
		}
	}
	s.ready = true
	return nil
}

func (s *S3) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3) Publish(ctx context.Context, name, localPath string) (types.OutputRef, error) {
	n, err := cleanName(name)
	if err != nil {
		return types.OutputRef{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return types.OutputRef{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key := s.key(n)
	_, err = s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return types.OutputRef{}, fmt.Errorf("%w: s3://%s/%s", ErrExists, s.bucket, key)
	case minio.ToErrorResponse(err).Code != "NoSuchKey":
		return types.OutputRef{}, fmt.Errorf("stat %s: %w", key, err)
	}

	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{ContentType: "video/mp4"}); err != nil {
		return types.OutputRef{}, fmt.Errorf("upload %s: %w", key, err)
	}
	ref := types.OutputRef{Name: n, Location: "s3://" + s.bucket + "/" + key}
	// The object is already stored; a missing URL does not undo the publish.
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		s.log.Warn("presign output url", zap.String("key", key), zap.Error(err))
		return ref, nil
	}
	ref.URL = u.String()
	return ref, nil
}
