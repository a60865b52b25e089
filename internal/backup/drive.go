package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectName is the file name of the backup inside the drive folder.
const ObjectName = "weighcheck-backup.json"

// errObjectMissing is returned by Bucket implementations for absent objects.
var errObjectMissing = errors.New("backup: object missing")

// Bucket is the minimal object store the drive transport needs.
type Bucket interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// DriveTransport keeps one backup file per station in an object store folder.
type DriveTransport struct {
	name   string
	bucket Bucket
	object string
}

// NewDriveTransport stores the backup at <prefix>/<namespace>/weighcheck-backup.json.
func NewDriveTransport(bucket Bucket, prefix, namespace string) *DriveTransport {
	return NewObjectTransport("drive", bucket, prefix, namespace)
}

// NewObjectTransport is NewDriveTransport under another transport name.
func NewObjectTransport(name string, bucket Bucket, prefix, namespace string) *DriveTransport {
	return &DriveTransport{
		name:   name,
		bucket: bucket,
		object: path.Join(strings.Trim(prefix, "/"), namespace, ObjectName),
	}
}

// Name implements Transport.
func (t *DriveTransport) Name() string { return t.name }

// Object reports the object path used.
func (t *DriveTransport) Object() string { return t.object }

// Upload overwrites the remote file.
func (t *DriveTransport) Upload(ctx context.Context, payload []byte) error {
	if err := t.bucket.Put(ctx, t.object, "application/json", payload); err != nil {
		return fmt.Errorf("%w: %s upload: %v", ErrTransport, t.name, err)
	}
	return nil
}

// Download returns the remote file, or ErrNoRemoteBackup.
func (t *DriveTransport) Download(ctx context.Context) ([]byte, error) {
	data, err := t.bucket.Get(ctx, t.object)
	if errors.Is(err, errObjectMissing) {
		return nil, ErrNoRemoteBackup
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s download: %v", ErrTransport, t.name, err)
	}
	return data, nil
}

// GCSBucket implements Bucket on Google Cloud Storage.
type GCSBucket struct {
	client *storage.Client
	name   string
}

// NewGCSClient prefers explicit credentials JSON and falls back to ADC.
func NewGCSClient(ctx context.Context, credentialsJSON string) (*storage.Client, error) {
	if strings.TrimSpace(credentialsJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	return storage.NewClient(ctx)
}

// NewGCSBucket wraps a bucket handle.
func NewGCSBucket(client *storage.Client, bucket string) *GCSBucket {
	return &GCSBucket{client: client, name: bucket}
}

// Put writes data to the object name.
func (b *GCSBucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	wc := b.client.Bucket(b.name).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// Get reads the object name.
func (b *GCSBucket) Get(ctx context.Context, name string) ([]byte, error) {
	reader, err := b.client.Bucket(b.name).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errObjectMissing
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
