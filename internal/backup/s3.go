package backup

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config locates an S3-compatible bucket (MinIO, AWS, R2).
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
}

// S3Bucket implements Bucket on an S3-compatible object store.
type S3Bucket struct {
	client *minio.Client
	name   string
}

// NewS3Bucket opens a client for cfg.
func NewS3Bucket(cfg S3Config) (*S3Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &S3Bucket{client: client, name: cfg.Bucket}, nil
}

// Put writes data to the object name.
func (b *S3Bucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.name, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Get reads the object name.
func (b *S3Bucket) Get(ctx context.Context, name string) ([]byte, error) {
	object, err := b.client.GetObject(ctx, b.name, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapS3Error(err)
	}
	defer object.Close()
	if _, err := object.Stat(); err != nil {
		return nil, mapS3Error(err)
	}
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, mapS3Error(err)
	}
	return data, nil
}

func mapS3Error(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errObjectMissing
	}
	return err
}
