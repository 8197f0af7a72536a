package storage

import (
	"context"

	"github.com/your-org/jailcrawler/internal/models"
)

// Tx is the write surface available inside one per-record transaction.
type Tx interface {
	// InsertInmate inserts the profile row with the given image reference and
	// returns its id. An existing row with the same first name, last name,
	// date of birth and booking timestamp yields ErrDuplicateInmate.
	InsertInmate(ctx context.Context, p *models.Profile, imageURL string) (int64, error)
	SetImageURL(ctx context.Context, inmateID int64, imageURL string) error
	// AttachAlias upserts the alias and links it to the inmate. A failure
	// leaves the surrounding transaction usable.
	AttachAlias(ctx context.Context, inmateID int64, alias string) error
	InsertImage(ctx context.Context, inmateID int64, data []byte) error
	InsertBond(ctx context.Context, inmateID int64, b models.Bond) error
	InsertCharge(ctx context.Context, inmateID int64, c models.Charge) error
}

// Store is implemented by PostgresStore and MemoryStore.
type Store interface {
	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(Tx) error) error
	// RecentInmates returns up to n rows ordered by descending id.
	RecentInmates(ctx context.Context, n int) ([]models.InmateSyncState, error)
	SetImageURL(ctx context.Context, inmateID int64, imageURL string) error
	CountInmates(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close()
}
