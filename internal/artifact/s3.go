package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether enough is set to build a client.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

// S3Store writes site files to an S3-compatible bucket under sites/<lead id>/.
type S3Store struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("artifact: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("artifact: s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("artifact: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: init s3 client: %w", err)
	}
	return &S3Store{client: client, bucket: bucket, region: region}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if !exists {
			s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		}
	})
	return s.initErr
}

func (s *S3Store) PutSite(ctx context.Context, leadID string, files map[string]string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("artifact: ensure bucket: %w", err)
	}
	for name, content := range files {
		key, err := objectKey(leadID, name)
		if err != nil {
			return err
		}
		_, err = s.client.PutObject(ctx, s.bucket, key, strings.NewReader(content), int64(len(content)), minio.PutObjectOptions{
			ContentType: contentType(name),
		})
		if err != nil {
			return fmt.Errorf("artifact: put %s: %w", key, err)
		}
	}
	return nil
}

func (s *S3Store) GetSite(ctx context.Context, leadID string) (map[string]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("artifact: ensure bucket: %w", err)
	}
	prefix := sitePrefix(leadID)
	out := map[string]string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		body, err := s.read(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(obj.Key, prefix)] = body
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *S3Store) read(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// SiteURL presigns a one hour GET link.
func (s *S3Store) SiteURL(ctx context.Context, leadID, name string) (string, error) {
	key, err := objectKey(leadID, name)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, time.Hour, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
