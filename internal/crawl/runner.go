// Package crawl drives one incremental synchronization of the roster: it
// works out what is already stored, walks the listings, and hands the
// harvest to the persistence layer.
package crawl

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/observability"
	"github.com/your-org/jailcrawler/internal/persist"
	"github.com/your-org/jailcrawler/pkg/dto"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("crawl run already in progress")

type Store interface {
	StateReader
	CountInmates(ctx context.Context) (int64, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Publisher interface {
	PublishIngested(ctx context.Context, ev dto.InmateIngested) error
	PublishRunSummary(ctx context.Context, summary dto.RunSummary) error
}

// Deps are the collaborators of a Runner. Embedder and Publisher are optional.
type Deps struct {
	Store      Store
	Walker     *Walker
	Serializer *persist.Serializer
	Backfiller *persist.Backfiller
	Embedder   Embedder
	Publisher  Publisher
}

type Runner struct {
	deps        Deps
	listingURLs []string
	window      int

	running atomic.Bool
	mu      sync.RWMutex
	last    *dto.RunSummary
}

func NewRunner(deps Deps, listingURLs []string, window int) *Runner {
	return &Runner{deps: deps, listingURLs: listingURLs, window: window}
}

// LastRun returns the summary of the most recent finished run, or nil.
func (r *Runner) LastRun() *dto.RunSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	s := *r.last
	return &s
}

func (r *Runner) Running() bool { return r.running.Load() }

// Run performs one crawl. Only failing to read stored state or to enumerate
// a listing fails the run; per-record failures are counted in the summary.
func (r *Runner) Run(ctx context.Context) (*dto.RunSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	runID := uuid.New()
	started := time.Now()
	log := slog.With("run_id", runID)
	log.Info("crawl run started", "listings", len(r.listingURLs), "window", r.window)

	summary := &dto.RunSummary{RunID: runID, StartedAt: started.UTC().Format(time.RFC3339)}
	err := r.run(ctx, log, summary)

	if count, cerr := r.deps.Store.CountInmates(ctx); cerr != nil {
		log.Warn("failed to count inmates", "error", cerr)
	} else {
		summary.KnownInmates = count
		observability.KnownInmates.Set(float64(count))
	}
	if err != nil {
		summary.Error = err.Error()
	}
	summary.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	observability.RunDuration.Observe(time.Since(started).Seconds())

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	if r.deps.Publisher != nil {
		if perr := r.deps.Publisher.PublishRunSummary(ctx, *summary); perr != nil {
			log.Warn("failed to publish run summary", "error", perr)
		}
	}

	if err != nil {
		log.Error("crawl run failed", "error", err)
		return summary, err
	}
	log.Info("crawl run finished",
		"inserted", summary.Inserted,
		"failed", summary.Failed,
		"backfilled", summary.Backfilled,
		"backfill_failed", summary.BackfillFailed,
		"skipped", summary.Skipped,
		"extract_failed", summary.ExtractFailed,
		"known_inmates", summary.KnownInmates,
		"duration", time.Since(started))
	return summary, nil
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, summary *dto.RunSummary) error {
	part, err := LoadPartition(ctx, r.deps.Store, r.window)
	if err != nil {
		return err
	}

	harvest, err := r.deps.Walker.Walk(ctx, r.listingURLs, part)
	if harvest != nil {
		summary.Candidates = harvest.Candidates
		summary.Skipped = harvest.Skipped
		summary.ExtractFailed = harvest.ExtractFailed
	}
	if err != nil {
		return err
	}

	r.enrich(ctx, log, harvest.Records)

	batch := r.deps.Serializer.SerializeBatch(ctx, harvest.Records)
	summary.Inserted = batch.Inserted
	summary.Failed = batch.Failed

	backfill := r.deps.Backfiller.UpdateBatch(ctx, harvest.Backfill)
	summary.Backfilled = backfill.Updated
	summary.BackfillFailed = backfill.Failed

	r.publish(ctx, log, summary.RunID, batch.Persisted)
	return nil
}

// enrich attaches synopsis embeddings to records that lack one. A failure
// leaves the record without a vector.
func (r *Runner) enrich(ctx context.Context, log *slog.Logger, recs []*models.Record) {
	if r.deps.Embedder == nil {
		return
	}
	for _, rec := range recs {
		if len(rec.Profile.Embedding) > 0 {
			continue
		}
		vec, err := r.deps.Embedder.Embed(ctx, rec.Synopsis())
		if err != nil {
			log.Warn("failed to gather embedding, continuing", "url", rec.SourceURL, "error", err)
			continue
		}
		rec.Profile.Embedding = vec
	}
}

func (r *Runner) publish(ctx context.Context, log *slog.Logger, runID uuid.UUID, persisted []persist.Persisted) {
	if r.deps.Publisher == nil {
		return
	}
	for _, p := range persisted {
		if err := r.deps.Publisher.PublishIngested(ctx, IngestedEvent(runID, p)); err != nil {
			log.Warn("failed to publish ingested event", "inmate_id", p.InmateID, "error", err)
		}
	}
}

// IngestedEvent describes a committed record for downstream consumers.
func IngestedEvent(runID uuid.UUID, p persist.Persisted) dto.InmateIngested {
	prof := &p.Record.Profile
	ev := dto.InmateIngested{
		RunID:        runID,
		InmateID:     p.InmateID,
		FullName:     prof.FullName(),
		BookedAt:     prof.BookedAt.UTC().Format(time.RFC3339),
		SourceURL:    p.Record.SourceURL,
		BondTotal:    p.Record.Bonds.TotalDescription(),
		ChargeCount:  len(p.Record.Charges.Charges),
		HasImage:     prof.HasImage(),
		HasEmbedding: len(prof.Embedding) > 0,
	}
	if prof.NaturalKey != nil {
		ev.NaturalKey = *prof.NaturalKey
	}
	return ev
}
