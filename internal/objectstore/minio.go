package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"backend-catmap/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinio(cfg config.Config) (*Minio, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.S3Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &Minio{client: cl, bucket: cfg.S3Bucket, publicURL: cfg.S3PublicURL}, nil
}

// EnsureBucket creates the bucket and opens it for anonymous reads, so the
// URLs returned by Put resolve without credentials.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	return m.client.SetBucketPolicy(ctx, m.bucket, readOnlyPolicy(m.bucket))
}

func (m *Minio) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	_, err := m.client.StatObject(ctx, m.bucket, path, minio.StatObjectOptions{})
	if err == nil {
		return "", fmt.Errorf("%w: %s", ErrObjectExists, path)
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return "", err
	}

	_, err = m.client.PutObject(ctx, m.bucket, path,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return publicURL(m.publicURL, m.bucket, path), nil
}

func readOnlyPolicy(bucket string) string {
	return `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},` +
		`"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::` + bucket + `/*"]}]}`
}
