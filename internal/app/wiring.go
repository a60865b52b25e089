package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/weighcheck/weighcheck/internal/backup"
	"github.com/weighcheck/weighcheck/internal/knowledge"
	"github.com/weighcheck/weighcheck/internal/kvstore"
	"github.com/weighcheck/weighcheck/internal/platform/db"
	"github.com/weighcheck/weighcheck/internal/profile"
	"github.com/weighcheck/weighcheck/internal/records"
)

// Stores bundles the key-value backed state of one station.
type Stores struct {
	Records   *records.Store
	Knowledge *knowledge.Service
	Profiles  *profile.Service
	Codec     *backup.Codec
}

// NewStores builds the stores over a namespaced Redis keyspace.
func NewStores(client *redis.Client, namespace string) *Stores {
	kv := kvstore.NewRedisStore(client, namespace)
	s := &Stores{
		Records:   records.NewStore(kv),
		Knowledge: knowledge.NewService(kv),
		Profiles:  profile.NewService(kv),
	}
	s.Codec = backup.NewCodec(s.Records, s.Knowledge, s.Profiles)
	return s
}

// NewCloudService opens every configured backup transport. It returns a nil
// service when no transport is configured. The returned cleanup
// releases the opened clients.
func NewCloudService(ctx context.Context, cfg *Config, codec *backup.Codec, logger *slog.Logger) (*backup.CloudService, func(), error) {
	var (
		transports []backup.Transport
		closers    []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		rel := backup.NewRelationalTransport(pool, cfg.StoreNamespace)
		if err := rel.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: relational schema: %w", err)
		}
		transports = append(transports, rel)
	}

	if cfg.GCSBucket != "" {
		client, err := backup.NewGCSClient(ctx, cfg.GCSCredentialsJSON)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("gcs close", slog.Any("error", err))
			}
		})
		transports = append(transports, backup.NewDriveTransport(backup.NewGCSBucket(client, cfg.GCSBucket), cfg.GCSPrefix, cfg.StoreNamespace))
	}

	if cfg.S3Endpoint != "" && cfg.S3Bucket != "" {
		bucket, err := backup.NewS3Bucket(backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: s3 client: %w", err)
		}
		transports = append(transports, backup.NewObjectTransport("s3", bucket, cfg.S3Prefix, cfg.StoreNamespace))
	}

	if len(transports) == 0 {
		return nil, cleanup, nil
	}
	return backup.NewCloudService(codec, logger, transports...), cleanup, nil
}
