// Package minio archives completed analysis reports to S3-compatible object
// storage for long-term retention and offline review.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/parcelworks/appealengine/internal/config"
	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// objectStore abstracts the minio client surface the archive uses.
type objectStore interface {
	PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

type minioStore struct {
	client *minio.Client
}

func (s *minioStore) PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return s.client.PutObject(ctx, bucket, object, reader, size, opts)
}

func (s *minioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.client.BucketExists(ctx, bucket)
}

func (s *minioStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return s.client.MakeBucket(ctx, bucket, opts)
}

// Archive writes analysis reports as JSON objects, one per analysis.
type Archive struct {
	store  objectStore
	bucket string
	logger logging.Logger
}

// NewArchive connects to the object store and ensures the bucket exists.
func NewArchive(cfg config.MinIOConfig, log logging.Logger) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create object storage client")
	}

	a := &Archive{store: &minioStore{client: client}, bucket: cfg.Bucket, logger: log}
	if err := a.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

// NewArchiveWithStore wraps an existing store.  Used in tests.
func NewArchiveWithStore(store objectStore, bucket string, log logging.Logger) *Archive {
	return &Archive{store: store, bucket: bucket, logger: log}
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to check report bucket")
	}
	if exists {
		return nil
	}
	if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create report bucket")
	}
	a.logger.Info("created report bucket", logging.String("bucket", a.bucket))
	return nil
}

// Store archives one completed analysis.
func (a *Archive) Store(ctx context.Context, report *analysis.AppealAnalysis) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode report")
	}

	key := fmt.Sprintf("analyses/%s/%s.json", report.PIN, report.ID)
	_, err = a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to archive report")
	}

	a.logger.Debug("report archived",
		logging.String("bucket", a.bucket),
		logging.String("key", key),
	)
	return nil
}
