package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/jailcrawler/internal/models"
)

// StateReader exposes the most recently persisted inmate rows.
type StateReader interface {
	RecentInmates(ctx context.Context, n int) ([]models.InmateSyncState, error)
}

// Partition splits the natural keys of recently stored rows into those that
// are fully synchronized and those still missing a booking photo. The two
// sets are disjoint.
type Partition struct {
	Synchronized  map[string]struct{}
	NeedsBackfill map[string]int64
}

func (p *Partition) IsSynchronized(key string) bool {
	_, ok := p.Synchronized[key]
	return ok
}

// BackfillID returns the stored row id for a key that needs backfill.
func (p *Partition) BackfillID(key string) (int64, bool) {
	id, ok := p.NeedsBackfill[key]
	return id, ok
}

// LoadPartition reads the n most recent rows and partitions their keys.
func LoadPartition(ctx context.Context, r StateReader, n int) (*Partition, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative window %d", models.ErrArgument, n)
	}
	states, err := r.RecentInmates(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("load recent inmates: %w", err)
	}
	return PartitionStates(states), nil
}

// PartitionStates partitions rows given newest first. Rows without a natural
// key are skipped. When one key appears on several rows, a row with an image
// wins; otherwise the newest row is the backfill target.
func PartitionStates(states []models.InmateSyncState) *Partition {
	p := &Partition{
		Synchronized:  make(map[string]struct{}),
		NeedsBackfill: make(map[string]int64),
	}
	for _, st := range states {
		if st.NaturalKey == nil || *st.NaturalKey == "" {
			slog.Warn("stored inmate has no natural key, ignoring for incremental sync", "inmate_id", st.ID)
			continue
		}
		key := *st.NaturalKey
		if p.IsSynchronized(key) {
			continue
		}
		if st.HasImage() {
			p.Synchronized[key] = struct{}{}
			delete(p.NeedsBackfill, key)
			continue
		}
		if _, seen := p.NeedsBackfill[key]; !seen {
			p.NeedsBackfill[key] = st.ID
		}
	}
	slog.Info("partitioned recent inmates",
		"rows", len(states), "synchronized", len(p.Synchronized), "needs_backfill", len(p.NeedsBackfill))
	return p
}
