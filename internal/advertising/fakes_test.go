package advertising

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autoparts-market/backend/internal/models"
	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func strPtr(s string) *string { return &s }

func flagPtr(b bool) *Flag {
	f := Flag(b)
	return &f
}

// memStore is an in-memory Store. Atomic serialises callers and restores the previous rows when fn fails.
type memStore struct {
	txMu sync.Mutex

	mu         sync.Mutex
	rows       map[int64]models.Advertising
	nextID     int64
	failInsert error
	failUpdate error
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]models.Advertising{}}
}

func (m *memStore) List(context.Context) ([]models.Advertising, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.Advertising, 0, len(m.rows))
	for _, a := range m.rows {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*models.Advertising, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("Advertising not found")
	}
	return &a, nil
}

func (m *memStore) GetActive(context.Context) (*models.Advertising, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active *models.Advertising
	for _, a := range m.rows {
		if a.Status && (active == nil || a.ID > active.ID) {
			a := a
			active = &a
		}
	}
	return active, nil
}

func (m *memStore) DeactivateAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.rows {
		if a.Status {
			a.Status = false
			a.UpdatedAt = time.Now()
			m.rows[id] = a
		}
	}
	return nil
}

func (m *memStore) Insert(_ context.Context, a *models.Advertising) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return m.failInsert
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.rows[a.ID] = *a
	return nil
}

func (m *memStore) Update(_ context.Context, a *models.Advertising) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	if _, ok := m.rows[a.ID]; !ok {
		return apperr.NotFound("Advertising not found")
	}
	a.UpdatedAt = time.Now()
	m.rows[a.ID] = *a
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperr.NotFound("Advertising not found")
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) Atomic(_ context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[int64]models.Advertising, len(m.rows))
	for k, v := range m.rows {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.rows = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) activeIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, a := range m.rows {
		if a.Status {
			ids = append(ids, id)
		}
	}
	return ids
}

// flakyImages wraps an ImageStore and fails every Remove.
type flakyImages struct {
	storage.ImageStore
}

func (f flakyImages) Remove(_ context.Context, stored string) error {
	return apperr.Cleanup("remove image "+stored, errors.New("permission denied"))
}

type recordedEvent struct {
	event   string
	payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Broadcast(event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{event: event, payload: payload})
}

type recordingQueue struct {
	images []string
}

func (q *recordingQueue) EnqueueImageCleanup(_ context.Context, stored string) error {
	q.images = append(q.images, stored)
	return nil
}

type memCache struct {
	mu          sync.Mutex
	value       *models.Advertising
	set         bool
	gen         int64
	gets        int
	invalidated int
	rejected    int
}

func (c *memCache) Lookup(context.Context) (ActiveLookup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return ActiveLookup{Advertising: c.value, Hit: c.set, Generation: c.gen}, nil
}

func (c *memCache) Store(_ context.Context, gen int64, a *models.Advertising) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.rejected++
		return false, nil
	}
	c.value, c.set = a, true
	return true, nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value, c.set = nil, false
	c.gen++
	c.invalidated++
	return nil
}

// pausingStore parks the first GetActive after it has read the row, until release is closed.
type pausingStore struct {
	*memStore
	paused  atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func newPausingStore(inner *memStore) *pausingStore {
	return &pausingStore{memStore: inner, loaded: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingStore) GetActive(ctx context.Context) (*models.Advertising, error) {
	a, err := p.memStore.GetActive(ctx)
	if p.paused.CompareAndSwap(false, true) {
		close(p.loaded)
		<-p.release
	}
	return a, err
}
