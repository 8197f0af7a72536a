// Package persist writes harvested records to the relational store and
// offloads booking photos to object storage.
package persist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/storage"
)

// ImageKeyPrefix namespaces booking photos in the bucket.
const ImageKeyPrefix = "mugshots/"

// Store is the relational store as seen by the serializer and backfill updater.
type Store interface {
	WithTx(ctx context.Context, fn func(storage.Tx) error) error
	SetImageURL(ctx context.Context, inmateID int64, imageURL string) error
}

// ObjectStore uploads booking photos.
type ObjectStore interface {
	PutImage(ctx context.Context, key string, data []byte) error
}

// ImageKey derives the object key of a profile's booking photo from its core
// attributes, so the key can be recomputed without consulting the database.
func ImageKey(p *models.Profile) string {
	sum := sha256.Sum256([]byte(p.FirstName + p.LastName +
		p.DateOfBirth.Format("2006-01-02") + p.BookedAt.UTC().Format(time.RFC3339)))
	return ImageKeyPrefix + hex.EncodeToString(sum[:])
}

func uploadEligible(p *models.Profile, objects ObjectStore) bool {
	return p.HasImage() && objects != nil
}

func upload(ctx context.Context, objects ObjectStore, key string, data []byte) error {
	err := objects.PutImage(ctx, key, data)
	if err == nil || errors.Is(err, models.ErrObjectStore) {
		return err
	}
	return &models.ObjectStoreError{Detail: "put " + key, Err: err}
}
