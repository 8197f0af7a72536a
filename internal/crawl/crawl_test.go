package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/jailcrawler/internal/extract"
	"github.com/your-org/jailcrawler/internal/extract/extracttest"
	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/persist"
	"github.com/your-org/jailcrawler/internal/storage"
	"github.com/your-org/jailcrawler/pkg/dto"
)

const (
	testRoot    = "https://roster.example/inmates.php"
	testListing = testRoot + "?comdate=today"
)

// fakeSite serves canned documents by URL and records every fetch.
type fakeSite struct {
	mu      sync.Mutex
	pages   map[string][]byte
	fail    map[string]error
	fetched []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{pages: make(map[string][]byte), fail: make(map[string]error)}
}

func (s *fakeSite) Fetch(_ context.Context, _ string, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, url)
	if err, ok := s.fail[url]; ok {
		return nil, err
	}
	body, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: no page at %s", models.ErrNetwork, url)
	}
	return body, nil
}

func (s *fakeSite) FetchImage(ctx context.Context, url string) ([]byte, error) {
	return s.Fetch(ctx, "image", url)
}

func (s *fakeSite) fetchedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

// addPeople publishes detail pages for keys 1..n and a newest-first listing.
func (s *fakeSite) addPeople(n int) {
	var hrefs []string
	for i := n; i >= 1; i-- {
		key := fmt.Sprintf("?sysid=%d", i)
		page := extracttest.NewDetail(fmt.Sprintf("Person%d", i), "Doe")
		page.PhotoSrc = fmt.Sprintf("//photos.example/%d.jpg", i)
		s.pages[testRoot+key] = page.HTML()
		s.pages[fmt.Sprintf("https://photos.example/%d.jpg", i)] = []byte(fmt.Sprintf("jpeg-%d", i))
		hrefs = append(hrefs, key)
	}
	s.pages[testListing] = extracttest.Listing(hrefs...)
}

func newWalker(t *testing.T, site *fakeSite, stopEarly bool) *Walker {
	t.Helper()
	ex, err := extract.NewExtractor(site)
	require.NoError(t, err)
	return NewWalker(site, ex, testRoot, stopEarly)
}

func strPtr(s string) *string { return &s }

func TestPartitionStates(t *testing.T) {
	states := []models.InmateSyncState{
		{ID: 6, NaturalKey: strPtr("?sysid=6"), ImageURL: strPtr("mugshots/6")},
		{ID: 5, NaturalKey: strPtr("?sysid=5"), ImageURL: strPtr("")},
		{ID: 4, NaturalKey: strPtr("?sysid=4"), ImageURL: nil},
		{ID: 3, NaturalKey: nil, ImageURL: strPtr("mugshots/3")},
		{ID: 2, NaturalKey: nil, ImageURL: nil},
		{ID: 1, NaturalKey: strPtr("?sysid=1"), ImageURL: strPtr("mugshots/1")},
	}

	p := PartitionStates(states)
	assert.Equal(t, map[string]struct{}{"?sysid=6": {}, "?sysid=1": {}}, p.Synchronized)
	assert.Equal(t, map[string]int64{"?sysid=5": 5, "?sysid=4": 4}, p.NeedsBackfill)
}

func TestPartitionStates_RepeatedKeyStaysDisjoint(t *testing.T) {
	p := PartitionStates([]models.InmateSyncState{
		{ID: 9, NaturalKey: strPtr("?sysid=1"), ImageURL: strPtr("")},
		{ID: 8, NaturalKey: strPtr("?sysid=1"), ImageURL: strPtr("mugshots/1")},
		{ID: 7, NaturalKey: strPtr("?sysid=2"), ImageURL: nil},
		{ID: 3, NaturalKey: strPtr("?sysid=2"), ImageURL: nil},
	})
	assert.True(t, p.IsSynchronized("?sysid=1"))
	_, backfill := p.BackfillID("?sysid=1")
	assert.False(t, backfill)

	id, ok := p.BackfillID("?sysid=2")
	require.True(t, ok)
	assert.EqualValues(t, 7, id)
}

func TestLoadPartitionUsesWindow(t *testing.T) {
	store := storage.NewMemoryStore()
	ser := persist.NewSerializer(store, nil)
	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("?sysid=%d", i)
		rec := &models.Record{Profile: *testProfile(fmt.Sprintf("P%d", i), key)}
		_, err := ser.Serialize(context.Background(), rec)
		require.NoError(t, err)
	}

	p, err := LoadPartition(context.Background(), store, 2)
	require.NoError(t, err)
	assert.Len(t, p.NeedsBackfill, 2)
	assert.NotContains(t, p.NeedsBackfill, "?sysid=1")

	_, err = LoadPartition(context.Background(), store, -1)
	assert.ErrorIs(t, err, models.ErrArgument)
}

func TestWalk_RoutesCandidates(t *testing.T) {
	site := newFakeSite()
	site.addPeople(4)

	part := PartitionStates([]models.InmateSyncState{
		{ID: 11, NaturalKey: strPtr("?sysid=2"), ImageURL: strPtr("mugshots/2")},
		{ID: 12, NaturalKey: strPtr("?sysid=3"), ImageURL: strPtr("")},
	})

	h, err := newWalker(t, site, false).Walk(context.Background(), []string{testListing}, part)
	require.NoError(t, err)

	assert.Equal(t, 4, h.Candidates)
	assert.Equal(t, 1, h.Skipped)
	require.Len(t, h.Records, 2)
	assert.Equal(t, "Person1", h.Records[0].Profile.FirstName)
	assert.Equal(t, "Person4", h.Records[1].Profile.FirstName)
	require.Len(t, h.Backfill, 1)
	assert.EqualValues(t, 12, h.Backfill[0].InmateID)
	assert.Equal(t, []byte("jpeg-3"), h.Backfill[0].Record.Profile.Image)

	assert.NotContains(t, site.fetchedURLs(), testRoot+"?sysid=2")
}

func TestWalk_ListingFailureIsFatal(t *testing.T) {
	site := newFakeSite()
	site.fail[testListing] = fmt.Errorf("%w: connection refused", models.ErrNetwork)

	h, err := newWalker(t, site, false).Walk(context.Background(), []string{testListing}, PartitionStates(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Nil(t, h)
}

func TestWalk_StopEarly(t *testing.T) {
	site := newFakeSite()
	site.addPeople(3)
	part := PartitionStates([]models.InmateSyncState{
		{ID: 1, NaturalKey: strPtr("?sysid=1"), ImageURL: strPtr("mugshots/1")},
	})

	h, err := newWalker(t, site, true).Walk(context.Background(), []string{testListing}, part)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Candidates)
	require.Len(t, h.Records, 1)
	assert.Equal(t, "Person2", h.Records[0].Profile.FirstName)
}

func TestWalk_DuplicateKeysAcrossListingsVisitedOnce(t *testing.T) {
	site := newFakeSite()
	site.addPeople(2)
	second := testRoot + "?comdate=yesterday"
	site.pages[second] = extracttest.Listing("?sysid=2")

	h, err := newWalker(t, site, false).Walk(context.Background(), []string{testListing, second}, PartitionStates(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, h.Candidates)
	assert.Len(t, h.Records, 2)
}

func TestWalk_CancelledBetweenCandidates(t *testing.T) {
	site := newFakeSite()
	site.addPeople(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newWalker(t, site, false).Walk(ctx, []string{testListing}, PartitionStates(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, models.EmbeddingDimensions), nil
}

type fakePublisher struct {
	mu        sync.Mutex
	ingested  []dto.InmateIngested
	summaries []dto.RunSummary
}

func (p *fakePublisher) PublishIngested(_ context.Context, ev dto.InmateIngested) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ingested = append(p.ingested, ev)
	return nil
}

func (p *fakePublisher) PublishRunSummary(_ context.Context, s dto.RunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, s)
	return nil
}

type fakeObjects struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func (f *fakeObjects) PutImage(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[key] = data
	return nil
}

func newRunner(t *testing.T, site *fakeSite, store *storage.MemoryStore, objects persist.ObjectStore, embedder Embedder, pub Publisher) *Runner {
	t.Helper()
	return NewRunner(Deps{
		Store:      store,
		Walker:     newWalker(t, site, false),
		Serializer: persist.NewSerializer(store, objects),
		Backfiller: persist.NewBackfiller(store, objects),
		Embedder:   embedder,
		Publisher:  pub,
	}, []string{testListing}, 500)
}

func TestRun_BatchSurvivesOneBadRecord(t *testing.T) {
	site := newFakeSite()
	site.addPeople(10)
	site.pages[testRoot+"?sysid=5"] = []byte("<html><body>Record unavailable</body></html>")

	store := storage.NewMemoryStore()
	pub := &fakePublisher{}
	r := newRunner(t, site, store, &fakeObjects{}, fakeEmbedder{}, pub)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Candidates)
	assert.Equal(t, 1, summary.ExtractFailed)
	assert.Equal(t, 9, summary.Inserted)
	assert.Zero(t, summary.Failed)
	assert.EqualValues(t, 9, summary.KnownInmates)

	rows := store.Inmates()
	require.Len(t, rows, 9)
	assert.Equal(t, "Person6", rows[4].Profile.FirstName)
	assert.Equal(t, "Person10", rows[8].Profile.FirstName)
	assert.Len(t, rows[8].Profile.Embedding, models.EmbeddingDimensions)
	assert.NotEmpty(t, rows[8].ImageURL)

	assert.Len(t, pub.ingested, 9)
	require.Len(t, pub.summaries, 1)
	assert.Equal(t, summary.RunID, pub.summaries[0].RunID)
	assert.Equal(t, summary, r.LastRun())
}

func TestRun_SecondRunIsIncremental(t *testing.T) {
	site := newFakeSite()
	site.addPeople(3)
	store := storage.NewMemoryStore()

	// First pass without object storage leaves every image url empty.
	first := newRunner(t, site, store, nil, nil, nil)
	s1, err := first.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s1.Inserted)

	objects := &fakeObjects{}
	second := newRunner(t, site, store, objects, fakeEmbedder{err: errors.New("quota")}, nil)
	s2, err := second.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s2.Inserted)
	assert.Equal(t, 3, s2.Backfilled)
	assert.EqualValues(t, 3, s2.KnownInmates)
	for _, row := range store.Inmates() {
		assert.NotEmpty(t, row.ImageURL)
	}

	before := len(site.fetchedURLs())
	third := newRunner(t, site, store, objects, nil, nil)
	s3, err := third.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s3.Skipped)
	assert.Equal(t, []string{testListing}, site.fetchedURLs()[before:])
}

func TestRun_ListingFailureReported(t *testing.T) {
	site := newFakeSite()
	store := storage.NewMemoryStore()
	r := newRunner(t, site, store, nil, nil, nil)

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNetwork)
	require.NotNil(t, summary)
	assert.NotEmpty(t, summary.Error)
	assert.Equal(t, summary.Error, r.LastRun().Error)
}

func TestIngestedEvent(t *testing.T) {
	rec := &models.Record{
		SourceURL: testRoot + "?sysid=1",
		Profile:   *testProfile("John", "?sysid=1"),
		Bonds:     models.BondInfo{Bonds: []models.Bond{{Type: "Cash", AmountCents: 1050}}},
		Charges:   models.ChargeInfo{Charges: []models.Charge{{Description: "OWI"}}},
	}
	ev := IngestedEvent([16]byte{1}, persist.Persisted{InmateID: 7, Record: rec})
	assert.EqualValues(t, 7, ev.InmateID)
	assert.Equal(t, "?sysid=1", ev.NaturalKey)
	assert.Equal(t, "John Doe", ev.FullName)
	assert.Equal(t, "$10.50", ev.BondTotal)
	assert.Equal(t, 1, ev.ChargeCount)
	assert.False(t, ev.HasImage)
}
