package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const keyPrefix = "images/"

// Storage keeps images in a Google Cloud Storage bucket. References are the
// public object URLs <PublicBaseURL>/<bucket>/<key>.
type Storage struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

var _ domain.ArtifactStore = (*Storage)(nil)

// NewClient builds a storage client, using credentialsFile when set and
// application default credentials otherwise.
func NewClient(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*storage.Client, error) {
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return client, nil
}

func NewStorage(client *storage.Client, bucket, publicBaseURL string) *Storage {
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	bucket = strings.TrimSpace(bucket)
	return &Storage{
		client:  client,
		bucket:  bucket,
		baseURL: base + "/" + bucket + "/",
	}
}

func (s *Storage) Put(ctx context.Context, blob domain.Blob) (string, error) {
	ext, ok := domain.ImageExtension(blob.ContentType)
	if !ok {
		return "", fmt.Errorf("unsupported content type %q: %w", blob.ContentType, domain.ErrInvalidInput)
	}
	key := keyPrefix + uuid.NewString() + "." + ext

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = blob.ContentType
	if _, err := w.Write(blob.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize gcs object %s: %w", key, err)
	}
	return s.baseURL + key, nil
}

func (s *Storage) Delete(ctx context.Context, ref string) error {
	key, err := s.objectKey(ref)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete gcs object %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) objectKey(ref string) (string, error) {
	key := strings.TrimPrefix(ref, s.baseURL)
	if key == ref || !strings.HasPrefix(key, keyPrefix) {
		return "", fmt.Errorf("reference %q does not belong to bucket %s", ref, s.bucket)
	}
	return key, nil
}
