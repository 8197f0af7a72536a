package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/your-org/jailcrawler/internal/models"
)

// MemoryInmate is a persisted inmate row held by MemoryStore.
type MemoryInmate struct {
	ID       int64
	Profile  models.Profile
	ImageURL string
}

type inmateIdentity struct {
	first, last string
	dob         time.Time
	booked      time.Time
}

type memoryState struct {
	inmates       []MemoryInmate
	identities    map[inmateIdentity]int64
	aliases       map[string]int64
	inmateAliases map[int64][]int64
	images        map[int64][][]byte
	bonds         map[int64][]models.Bond
	charges       map[int64][]models.Charge
	nextInmateID  int64
	nextAliasID   int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		identities:    make(map[inmateIdentity]int64),
		aliases:       make(map[string]int64),
		inmateAliases: make(map[int64][]int64),
		images:        make(map[int64][][]byte),
		bonds:         make(map[int64][]models.Bond),
		charges:       make(map[int64][]models.Charge),
		nextInmateID:  1,
		nextAliasID:   1,
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		inmates:       slices.Clone(s.inmates),
		identities:    make(map[inmateIdentity]int64, len(s.identities)),
		aliases:       make(map[string]int64, len(s.aliases)),
		inmateAliases: make(map[int64][]int64, len(s.inmateAliases)),
		images:        make(map[int64][][]byte, len(s.images)),
		bonds:         make(map[int64][]models.Bond, len(s.bonds)),
		charges:       make(map[int64][]models.Charge, len(s.charges)),
		nextInmateID:  s.nextInmateID,
		nextAliasID:   s.nextAliasID,
	}
	for k, v := range s.identities {
		c.identities[k] = v
	}
	for k, v := range s.aliases {
		c.aliases[k] = v
	}
	for k, v := range s.inmateAliases {
		c.inmateAliases[k] = slices.Clone(v)
	}
	for k, v := range s.images {
		c.images[k] = slices.Clone(v)
	}
	for k, v := range s.bonds {
		c.bonds[k] = slices.Clone(v)
	}
	for k, v := range s.charges {
		c.charges[k] = slices.Clone(v)
	}
	return c
}

func (s *memoryState) inmate(id int64) *MemoryInmate {
	for i := range s.inmates {
		if s.inmates[i].ID == id {
			return &s.inmates[i]
		}
	}
	return nil
}

// MemoryStore keeps the roster tables in process memory. Transactions work on
// a copy of the state that replaces the committed state on success, and the
// inmate identity constraint is enforced as in Postgres.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &models.StoreError{Detail: "begin transaction", Err: err}
	}

	work := s.state.clone()
	if err := fn(&memoryTx{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) RecentInmates(_ context.Context, n int) ([]models.InmateSyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]models.InmateSyncState, 0, min(n, len(s.state.inmates)))
	for i := len(s.state.inmates) - 1; i >= 0 && len(states) < n; i-- {
		row := s.state.inmates[i]
		url := row.ImageURL
		states = append(states, models.InmateSyncState{
			ID:         row.ID,
			NaturalKey: row.Profile.NaturalKey,
			ImageURL:   &url,
		})
	}
	return states, nil
}

func (s *MemoryStore) SetImageURL(_ context.Context, inmateID int64, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.state.inmate(inmateID)
	if row == nil {
		return &models.StoreError{Detail: fmt.Sprintf("inmate %d not found", inmateID)}
	}
	row.ImageURL = imageURL
	return nil
}

func (s *MemoryStore) CountInmates(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.state.inmates)), nil
}

// Inmates returns a snapshot of all committed inmate rows in id order.
func (s *MemoryStore) Inmates() []MemoryInmate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.inmates)
}

// Bonds returns the committed bond rows of one inmate.
func (s *MemoryStore) Bonds(inmateID int64) []models.Bond {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.bonds[inmateID])
}

// Charges returns the committed charge rows of one inmate.
func (s *MemoryStore) Charges(inmateID int64) []models.Charge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.charges[inmateID])
}

// Images returns the committed image blob rows of one inmate.
func (s *MemoryStore) Images(inmateID int64) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.images[inmateID])
}

// Aliases returns the alias names linked to one inmate, in link order.
func (s *MemoryStore) Aliases(inmateID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, aliasID := range s.state.inmateAliases[inmateID] {
		for name, id := range s.state.aliases {
			if id == aliasID {
				names = append(names, name)
			}
		}
	}
	return names
}

// AliasCount returns the number of distinct alias rows.
func (s *MemoryStore) AliasCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.aliases)
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) InsertInmate(_ context.Context, p *models.Profile, imageURL string) (int64, error) {
	if p.FirstName == "" || p.LastName == "" {
		return 0, &models.StoreError{Detail: "insert inmate: empty name"}
	}
	key := inmateIdentity{
		first:  p.FirstName,
		last:   p.LastName,
		dob:    p.DateOfBirth.UTC().Truncate(24 * time.Hour),
		booked: p.BookedAt.UTC(),
	}
	if _, exists := t.state.identities[key]; exists {
		return 0, &models.StoreError{Detail: p.CoreAttributes(), Err: models.ErrDuplicateInmate}
	}

	id := t.state.nextInmateID
	t.state.nextInmateID++

	profile := *p
	profile.Image = nil
	t.state.inmates = append(t.state.inmates, MemoryInmate{ID: id, Profile: profile, ImageURL: imageURL})
	t.state.identities[key] = id
	return id, nil
}

func (t *memoryTx) SetImageURL(_ context.Context, inmateID int64, imageURL string) error {
	row := t.state.inmate(inmateID)
	if row == nil {
		return &models.StoreError{Detail: fmt.Sprintf("inmate %d not found", inmateID)}
	}
	row.ImageURL = imageURL
	return nil
}

func (t *memoryTx) AttachAlias(_ context.Context, inmateID int64, alias string) error {
	if alias == "" {
		return &models.StoreError{Detail: "upsert alias: empty alias"}
	}
	if t.state.inmate(inmateID) == nil {
		return &models.StoreError{Detail: fmt.Sprintf("link alias: inmate %d not found", inmateID)}
	}

	aliasID, ok := t.state.aliases[alias]
	if !ok {
		aliasID = t.state.nextAliasID
		t.state.nextAliasID++
		t.state.aliases[alias] = aliasID
	}
	if !slices.Contains(t.state.inmateAliases[inmateID], aliasID) {
		t.state.inmateAliases[inmateID] = append(t.state.inmateAliases[inmateID], aliasID)
	}
	return nil
}

func (t *memoryTx) InsertImage(_ context.Context, inmateID int64, data []byte) error {
	if t.state.inmate(inmateID) == nil {
		return &models.StoreError{Detail: fmt.Sprintf("insert image: inmate %d not found", inmateID)}
	}
	t.state.images[inmateID] = append(t.state.images[inmateID], slices.Clone(data))
	return nil
}

func (t *memoryTx) InsertBond(_ context.Context, inmateID int64, b models.Bond) error {
	if t.state.inmate(inmateID) == nil {
		return &models.StoreError{Detail: fmt.Sprintf("insert bond: inmate %d not found", inmateID)}
	}
	t.state.bonds[inmateID] = append(t.state.bonds[inmateID], b)
	return nil
}

func (t *memoryTx) InsertCharge(_ context.Context, inmateID int64, c models.Charge) error {
	if t.state.inmate(inmateID) == nil {
		return &models.StoreError{Detail: fmt.Sprintf("insert charge: inmate %d not found", inmateID)}
	}
	t.state.charges[inmateID] = append(t.state.charges[inmateID], c)
	return nil
}
