package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/jailcrawler/internal/extract"
	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/observability"
	"github.com/your-org/jailcrawler/internal/persist"
	"github.com/your-org/jailcrawler/internal/source"
)

// Fetcher retrieves listing and detail documents. Implementations space
// successive requests.
type Fetcher interface {
	Fetch(ctx context.Context, kind, url string) ([]byte, error)
}

// RecordExtractor builds a record from a detail document.
type RecordExtractor interface {
	Extract(ctx context.Context, key, sourceURL string, body []byte) (*models.Record, error)
}

// Harvest is what one walk over the listings produced.
type Harvest struct {
	Records       []*models.Record
	Backfill      []persist.BackfillItem
	Candidates    int
	Skipped       int
	ExtractFailed int
}

// Walker enumerates candidates from listing pages and extracts the ones not
// already synchronized. Candidates are processed one at a time, oldest first.
type Walker struct {
	fetcher   Fetcher
	extractor RecordExtractor
	rootURL   string
	stopEarly bool
}

func NewWalker(fetcher Fetcher, extractor RecordExtractor, rootURL string, stopEarly bool) *Walker {
	return &Walker{
		fetcher:   fetcher,
		extractor: extractor,
		rootURL:   rootURL,
		stopEarly: stopEarly,
	}
}

// DetailURL is the address of the detail page for a natural key.
func (w *Walker) DetailURL(key string) string {
	return w.rootURL + key
}

// Walk visits every listing in order. A listing that cannot be fetched or
// parsed aborts the walk; a failing candidate is logged and skipped. In stop
// early mode the walk ends after the first candidate that needed a fetch.
func (w *Walker) Walk(ctx context.Context, listingURLs []string, part *Partition) (*Harvest, error) {
	h := &Harvest{}
	seen := make(map[string]struct{})

	for _, listingURL := range listingURLs {
		body, err := w.fetcher.Fetch(ctx, source.KindListing, listingURL)
		if err != nil {
			return nil, fmt.Errorf("fetch listing %s: %w", listingURL, err)
		}
		keys, err := extract.ListingKeys(body)
		if err != nil {
			return nil, fmt.Errorf("enumerate listing %s: %w", listingURL, err)
		}
		slog.Info("enumerated listing", "url", listingURL, "candidates", len(keys))

		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return h, err
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			h.Candidates++

			if part.IsSynchronized(key) {
				h.Skipped++
				observability.CandidatesSeen.WithLabelValues("synchronized").Inc()
				slog.Debug("skipping synchronized candidate", "key", key)
				continue
			}

			w.visit(ctx, key, part, h)

			if w.stopEarly {
				slog.Info("stop early requested, ending walk", "candidates", h.Candidates)
				return h, nil
			}
		}
	}
	return h, nil
}

func (w *Walker) visit(ctx context.Context, key string, part *Partition, h *Harvest) {
	detailURL := w.DetailURL(key)
	inmateID, backfill := part.BackfillID(key)

	rec, err := w.fetchRecord(ctx, key, detailURL)
	if err != nil {
		h.ExtractFailed++
		observability.ExtractionFailures.Inc()
		slog.Error("failed to build record, continuing", "key", key, "url", detailURL, "error", err)
		return
	}

	if backfill {
		observability.CandidatesSeen.WithLabelValues("backfill").Inc()
		h.Backfill = append(h.Backfill, persist.BackfillItem{InmateID: inmateID, Record: rec})
		return
	}
	observability.CandidatesSeen.WithLabelValues("new").Inc()
	h.Records = append(h.Records, rec)
}

func (w *Walker) fetchRecord(ctx context.Context, key, detailURL string) (*models.Record, error) {
	body, err := w.fetcher.Fetch(ctx, source.KindDetail, detailURL)
	if err != nil {
		return nil, err
	}
	return w.extractor.Extract(ctx, key, detailURL, body)
}
