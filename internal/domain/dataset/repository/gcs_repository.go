package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

const gcsWriteTimeout = 2 * time.Minute

// GCSRepository keeps the snapshot as a single object in a Cloud Storage bucket.
// It assumes Application Default Credentials are configured.
type GCSRepository struct {
	client   *storage.Client
	bucket   string
	object   string
	maxBytes int64
}

// NewGCSRepository wraps an existing storage client. The caller owns the client.
func NewGCSRepository(client *storage.Client, bucket, object string, maxBytes int64) *GCSRepository {
	return &GCSRepository{client: client, bucket: bucket, object: object, maxBytes: maxBytes}
}

func (r *GCSRepository) handle() *storage.ObjectHandle {
	return r.client.Bucket(r.bucket).Object(r.object)
}

func (r *GCSRepository) Load(ctx context.Context) (dataset.Snapshot, error) {
	rd, err := r.handle().NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return dataset.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("read GCS object: %w", err)
	}
	return decodeSnapshot(data)
}

func (r *GCSRepository) Save(ctx context.Context, snap dataset.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, len(data), r.maxBytes)
	}

	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	w := r.handle().NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

func (r *GCSRepository) Delete(ctx context.Context) error {
	err := r.handle().Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete GCS object: %w", err)
	}
	return nil
}
