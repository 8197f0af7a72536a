package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/storage"
)

type fakeObjects struct {
	mu   sync.Mutex
	err  error
	puts map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{puts: make(map[string][]byte)}
}

func (f *fakeObjects) PutImage(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.puts[key] = data
	return nil
}

// faultyStore wraps a MemoryStore and lets a test break individual writes.
type faultyStore struct {
	*storage.MemoryStore
	failAlias  string
	failCharge bool
}

func (s *faultyStore) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.MemoryStore.WithTx(ctx, func(tx storage.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	storage.Tx
	store *faultyStore
}

func (t *faultyTx) AttachAlias(ctx context.Context, inmateID int64, alias string) error {
	if alias == t.store.failAlias {
		return &models.StoreError{Detail: "alias rejected"}
	}
	return t.Tx.AttachAlias(ctx, inmateID, alias)
}

func (t *faultyTx) InsertCharge(ctx context.Context, inmateID int64, c models.Charge) error {
	if t.store.failCharge {
		return &models.StoreError{Detail: "charge rejected"}
	}
	return t.Tx.InsertCharge(ctx, inmateID, c)
}

func testRecord(first, last string) *models.Record {
	key := "?sysid=" + strings.ToLower(first+last)
	return &models.Record{
		SourceURL: "https://roster.example/inmates.php" + key,
		Profile: models.Profile{
			FirstName:   first,
			LastName:    last,
			DateOfBirth: time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
			BookedAt:    time.Date(2024, 6, 1, 18, 45, 0, 0, time.UTC),
			NaturalKey:  &key,
			Aliases:     []string{"Shorty", "", "Shorty", "J"},
			Image:       []byte("jpeg"),
		},
		Bonds: models.BondInfo{Bonds: []models.Bond{
			{Type: "Cash", AmountCents: 150000},
			{Type: "Surety", AmountCents: 50000},
		}},
		Charges: models.ChargeInfo{Charges: []models.Charge{
			{Description: "OWI", Grade: models.GradeMisdemeanor, OffenseDate: "05/31/2024"},
		}},
	}
}

func TestImageKeyIsDeterministic(t *testing.T) {
	a := testRecord("John", "Doe")
	b := testRecord("John", "Doe")
	b.Profile.Aliases = nil
	b.Profile.Image = []byte("other")

	assert.Equal(t, ImageKey(&a.Profile), ImageKey(&b.Profile))
	assert.True(t, strings.HasPrefix(ImageKey(&a.Profile), ImageKeyPrefix))
	assert.Len(t, ImageKey(&a.Profile), len(ImageKeyPrefix)+64)

	c := testRecord("Jane", "Doe")
	assert.NotEqual(t, ImageKey(&a.Profile), ImageKey(&c.Profile))
}

func TestSerialize_WritesAllTables(t *testing.T) {
	store := storage.NewMemoryStore()
	objects := newFakeObjects()
	s := NewSerializer(store, objects)

	rec := testRecord("John", "Doe")
	id, err := s.Serialize(context.Background(), rec)
	require.NoError(t, err)

	rows := store.Inmates()
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, ImageKey(&rec.Profile), rows[0].ImageURL)
	assert.Equal(t, []byte("jpeg"), objects.puts[rows[0].ImageURL])

	assert.Equal(t, []string{"Shorty", "J"}, store.Aliases(id))
	assert.Len(t, store.Images(id), 1)
	assert.Len(t, store.Bonds(id), 2)
	assert.Len(t, store.Charges(id), 1)
}

func TestSerialize_DuplicateInsertsOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewSerializer(store, newFakeObjects())

	_, err := s.Serialize(context.Background(), testRecord("John", "Doe"))
	require.NoError(t, err)

	dup := testRecord("John", "Doe")
	dup.Profile.Aliases = []string{"Brand New Alias"}
	_, err = s.Serialize(context.Background(), dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDuplicateInmate)

	rows := store.Inmates()
	require.Len(t, rows, 1)
	assert.Len(t, store.Bonds(rows[0].ID), 2)
	assert.Equal(t, 2, store.AliasCount())
}

func TestSerialize_ImageUploadFailureKeepsRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	objects := newFakeObjects()
	objects.err = errors.New("bucket unavailable")
	s := NewSerializer(store, objects)

	res := s.SerializeBatch(context.Background(), []*models.Record{testRecord("John", "Doe")})
	assert.Equal(t, 1, res.Inserted)
	assert.Zero(t, res.Failed)

	rows := store.Inmates()
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].ImageURL)
	assert.Len(t, store.Images(rows[0].ID), 1)
}

func TestSerialize_NoObjectStoreLeavesURLEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewSerializer(store, nil)

	_, err := s.Serialize(context.Background(), testRecord("John", "Doe"))
	require.NoError(t, err)
	assert.Empty(t, store.Inmates()[0].ImageURL)
}

func TestSerialize_AliasFailureSkipped(t *testing.T) {
	store := &faultyStore{MemoryStore: storage.NewMemoryStore(), failAlias: "Shorty"}
	s := NewSerializer(store, nil)

	id, err := s.Serialize(context.Background(), testRecord("John", "Doe"))
	require.NoError(t, err)
	assert.Equal(t, []string{"J"}, store.Aliases(id))
	assert.Len(t, store.Charges(id), 1)
}

func TestSerialize_LateFailureRollsBackEverything(t *testing.T) {
	store := &faultyStore{MemoryStore: storage.NewMemoryStore(), failCharge: true}
	objects := newFakeObjects()
	s := NewSerializer(store, objects)

	_, err := s.Serialize(context.Background(), testRecord("John", "Doe"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStore)

	assert.Empty(t, store.Inmates())
	assert.Zero(t, store.AliasCount())
	assert.Empty(t, store.Bonds(1))
}

func TestSerializeBatch_ContinuesPastFailures(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewSerializer(store, newFakeObjects())

	var recs []*models.Record
	for i := 1; i <= 10; i++ {
		recs = append(recs, testRecord(fmt.Sprintf("Person%d", i), "Doe"))
	}
	// The fifth record repeats the first identity.
	recs[4] = testRecord("Person1", "Doe")

	res := s.SerializeBatch(context.Background(), recs)
	assert.Equal(t, 9, res.Inserted)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Persisted, 9)
	assert.Equal(t, "Person10", res.Persisted[8].Record.Profile.FirstName)

	count, err := store.CountInmates(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 9, count)
}

func TestBackfill_Preconditions(t *testing.T) {
	store := storage.NewMemoryStore()

	noImage := testRecord("John", "Doe")
	noImage.Profile.Image = nil
	err := NewBackfiller(store, newFakeObjects()).Update(context.Background(), 1, noImage)
	assert.ErrorIs(t, err, models.ErrInternal)

	err = NewBackfiller(store, nil).Update(context.Background(), 1, testRecord("John", "Doe"))
	assert.ErrorIs(t, err, models.ErrInternal)
}

func TestBackfill_UpdatesOnlyImageURL(t *testing.T) {
	store := storage.NewMemoryStore()
	rec := testRecord("John", "Doe")
	id, err := NewSerializer(store, nil).Serialize(context.Background(), rec)
	require.NoError(t, err)
	require.Empty(t, store.Inmates()[0].ImageURL)

	objects := newFakeObjects()
	refetched := testRecord("John", "Doe")
	refetched.Profile.Aliases = []string{"Ignored"}
	require.NoError(t, NewBackfiller(store, objects).Update(context.Background(), id, refetched))

	rows := store.Inmates()
	require.Len(t, rows, 1)
	assert.Equal(t, ImageKey(&rec.Profile), rows[0].ImageURL)
	assert.Contains(t, objects.puts, rows[0].ImageURL)
	assert.Equal(t, []string{"Shorty", "J"}, store.Aliases(id))
}

func TestBackfill_UploadFailureSurfaced(t *testing.T) {
	store := storage.NewMemoryStore()
	id, err := NewSerializer(store, nil).Serialize(context.Background(), testRecord("John", "Doe"))
	require.NoError(t, err)

	objects := newFakeObjects()
	objects.err = errors.New("denied")
	b := NewBackfiller(store, objects)

	err = b.Update(context.Background(), id, testRecord("John", "Doe"))
	assert.ErrorIs(t, err, models.ErrObjectStore)
	assert.Empty(t, store.Inmates()[0].ImageURL)

	res := b.UpdateBatch(context.Background(), []BackfillItem{{InmateID: id, Record: testRecord("John", "Doe")}})
	assert.Equal(t, BackfillResult{Failed: 1}, res)
}
