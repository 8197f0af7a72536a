package persist

import (
	"context"
	"log/slog"

	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/observability"
)

// BackfillItem is a freshly extracted record for a row that is already stored
// but has no booking photo reference.
type BackfillItem struct {
	InmateID int64
	Record   *models.Record
}

// Backfiller uploads booking photos for stored rows that lack one and patches
// their image url. No other column is touched.
type Backfiller struct {
	store   Store
	objects ObjectStore
}

func NewBackfiller(store Store, objects ObjectStore) *Backfiller {
	return &Backfiller{store: store, objects: objects}
}

func (b *Backfiller) Update(ctx context.Context, inmateID int64, rec *models.Record) error {
	p := &rec.Profile
	if !p.HasImage() {
		return &models.InternalError{Detail: "latest parse still has no booking photo"}
	}
	if !uploadEligible(p, b.objects) {
		return &models.InternalError{Detail: "object storage is not configured"}
	}

	key := ImageKey(p)
	if err := upload(ctx, b.objects, key, p.Image); err != nil {
		observability.ImageUploads.WithLabelValues("failed").Inc()
		return err
	}
	observability.ImageUploads.WithLabelValues("ok").Inc()

	if err := b.store.SetImageURL(ctx, inmateID, key); err != nil {
		return err
	}
	slog.Info("backfilled booking photo", "inmate_id", inmateID, "key", key, "url", rec.SourceURL)
	return nil
}

type BackfillResult struct {
	Updated int
	Failed  int
}

// UpdateBatch backfills every item independently.
func (b *Backfiller) UpdateBatch(ctx context.Context, items []BackfillItem) BackfillResult {
	var res BackfillResult
	for _, item := range items {
		if err := b.Update(ctx, item.InmateID, item.Record); err != nil {
			res.Failed++
			observability.RecordsPersisted.WithLabelValues("backfill", "failed").Inc()
			slog.Warn("backfill failed, skipping", "inmate_id", item.InmateID, "error", err)
			continue
		}
		res.Updated++
		observability.RecordsPersisted.WithLabelValues("backfill", "ok").Inc()
	}
	if len(items) > 0 {
		slog.Info("backfilled records", "updated", res.Updated, "failed", res.Failed)
	}
	return res
}
