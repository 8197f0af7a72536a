package persist

import (
	"context"
	"log/slog"

	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/observability"
	"github.com/your-org/jailcrawler/internal/storage"
)

// Serializer persists new records, one transaction per record.
type Serializer struct {
	store   Store
	objects ObjectStore
}

// NewSerializer builds a serializer. objects may be nil, in which case booking
// photos are kept only in the image table.
func NewSerializer(store Store, objects ObjectStore) *Serializer {
	return &Serializer{store: store, objects: objects}
}

// Serialize writes rec and returns the new inmate id. A record whose identity
// is already stored fails with ErrDuplicateInmate and writes nothing.
func (s *Serializer) Serialize(ctx context.Context, rec *models.Record) (int64, error) {
	p := &rec.Profile

	eligible := uploadEligible(p, s.objects)
	imageKey := ""
	if eligible {
		imageKey = ImageKey(p)
	}

	var inmateID int64
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		id, err := tx.InsertInmate(ctx, p, imageKey)
		if err != nil {
			return err
		}
		inmateID = id

		// The row was written assuming the upload succeeds.
		if eligible {
			if err := upload(ctx, s.objects, imageKey, p.Image); err != nil {
				observability.ImageUploads.WithLabelValues("failed").Inc()
				slog.Warn("booking photo upload failed, clearing image url",
					"inmate_id", id, "key", imageKey, "error", err)
				if err := tx.SetImageURL(ctx, id, ""); err != nil {
					return err
				}
			} else {
				observability.ImageUploads.WithLabelValues("ok").Inc()
			}
		}

		seen := make(map[string]struct{}, len(p.Aliases))
		for _, alias := range p.Aliases {
			if alias == "" {
				continue
			}
			if _, dup := seen[alias]; dup {
				continue
			}
			seen[alias] = struct{}{}
			if err := tx.AttachAlias(ctx, id, alias); err != nil {
				slog.Warn("alias not stored, continuing", "inmate_id", id, "alias", alias, "error", err)
			}
		}

		if err := tx.InsertImage(ctx, id, p.Image); err != nil {
			return err
		}
		for _, bond := range rec.Bonds.Bonds {
			if err := tx.InsertBond(ctx, id, bond); err != nil {
				return err
			}
		}
		for _, charge := range rec.Charges.Charges {
			if err := tx.InsertCharge(ctx, id, charge); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("record serialized", "inmate_id", inmateID, "core", p.CoreAttributes())
	return inmateID, nil
}

// Persisted pairs a committed record with its inmate id.
type Persisted struct {
	InmateID int64
	Record   *models.Record
}

type BatchResult struct {
	Inserted  int
	Failed    int
	Persisted []Persisted
}

// SerializeBatch serializes every record independently. A failing record is
// logged and counted; it never stops the rest of the batch.
func (s *Serializer) SerializeBatch(ctx context.Context, recs []*models.Record) BatchResult {
	var res BatchResult
	for _, rec := range recs {
		id, err := s.Serialize(ctx, rec)
		if err != nil {
			res.Failed++
			observability.RecordsPersisted.WithLabelValues("insert", "failed").Inc()
			slog.Warn("failed to serialize record", "url", rec.SourceURL, "error", err)
			continue
		}
		res.Inserted++
		res.Persisted = append(res.Persisted, Persisted{InmateID: id, Record: rec})
		observability.RecordsPersisted.WithLabelValues("insert", "ok").Inc()
	}
	slog.Info("serialized records", "inserted", res.Inserted, "failed", res.Failed)
	return res
}
