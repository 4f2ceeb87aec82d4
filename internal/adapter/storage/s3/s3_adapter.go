package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const keyPrefix = "images/"

// S3Storage keeps images in an S3-compatible bucket. References are the
// object URLs <endpoint>/<bucket>/<key>.
type S3Storage struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *logger.Logger
}

var _ domain.ArtifactStore = (*S3Storage)(nil)

func NewS3Storage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, log *logger.Logger) (*S3Storage, error) {
	log = log.Named("s3")
	log.Info("Initializing S3 MinIO Storage", "endpoint", endpoint, "bucket", bucketName, "use_ssl", useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to make bucket %s: %w", bucketName, err)
		}
		log.Info("S3Storage: bucket created", "bucket", bucketName)
	}

	return &S3Storage{
		client:  client,
		bucket:  bucketName,
		baseURL: fmt.Sprintf("%s/%s/", client.EndpointURL().String(), bucketName),
		logger:  log,
	}, nil
}

func (s *S3Storage) Put(ctx context.Context, blob domain.Blob) (string, error) {
	ext, ok := domain.ImageExtension(blob.ContentType)
	if !ok {
		return "", fmt.Errorf("unsupported content type %q: %w", blob.ContentType, domain.ErrInvalidInput)
	}
	objectKey := fmt.Sprintf("%s%s.%s", keyPrefix, uuid.NewString(), ext)

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(blob.Data), int64(len(blob.Data)), minio.PutObjectOptions{
		ContentType: blob.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}
	s.logger.Debug("S3Storage.Put: object uploaded", "key", info.Key, "size", info.Size)
	return s.baseURL + objectKey, nil
}

// Delete removes the object behind ref. S3 treats deleting a missing key as
// success.
func (s *S3Storage) Delete(ctx context.Context, ref string) error {
	key, err := s.objectKey(ref)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s from bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

func (s *S3Storage) objectKey(ref string) (string, error) {
	key := strings.TrimPrefix(ref, s.baseURL)
	if key == ref || !strings.HasPrefix(key, keyPrefix) {
		return "", fmt.Errorf("reference %q does not belong to bucket %s", ref, s.bucket)
	}
	return key, nil
}
