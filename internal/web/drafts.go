package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/metrics"
)

// Draft is the working copy of a gateway's address list while it is open in
// an edit form. It belongs to the session that opened it and lives until it
// is saved, discarded or left idle for the draft TTL.
type Draft struct {
	ID            string
	SessionID     string
	GatewayID     string
	Namespace     string
	Name          string
	BaseUpdatedAt time.Time // gateway version the draft was opened from
	Addresses     domain.AddressList
	Dirty         bool
}

func (d *Draft) clone() *Draft {
	c := *d
	c.Addresses = d.Addresses.Clone()
	return &c
}

// DraftStore holds open drafts in a TTL cache. Reading a draft does not
// extend its life; editing it does.
type DraftStore struct {
	mu    sync.Mutex // serializes read-modify-write of one draft
	cache *cache.Cache
	ttl   time.Duration
}

// NewDraftStore creates a draft store whose drafts expire after ttl of
// inactivity.
func NewDraftStore(ttl time.Duration) *DraftStore {
	ds := &DraftStore{
		cache: cache.New(ttl, ttl),
		ttl:   ttl,
	}
	ds.cache.OnEvicted(func(string, any) {
		metrics.SetOpenDrafts(ds.cache.ItemCount())
	})
	return ds
}

// Open starts a draft of gw for the given session.
func (ds *DraftStore) Open(sessionID string, gw *domain.Gateway) *Draft {
	d := &Draft{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		GatewayID:     gw.ID,
		Namespace:     gw.Namespace,
		Name:          gw.Name,
		BaseUpdatedAt: gw.UpdatedAt,
		Addresses:     gw.Addresses.Clone(),
	}
	ds.cache.Set(d.ID, d, ds.ttl)
	metrics.SetOpenDrafts(ds.cache.ItemCount())
	return d.clone()
}

// Get returns a copy of the draft. A draft owned by another session is
// reported as expired.
func (ds *DraftStore) Get(id, sessionID string) (*Draft, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d, err := ds.lookup(id, sessionID)
	if err != nil {
		return nil, err
	}
	return d.clone(), nil
}

// Edit runs fn on the draft and stores the result. fn may return an error to
// leave the draft untouched.
func (ds *DraftStore) Edit(id, sessionID string, fn func(d *Draft) error) (*Draft, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	d, err := ds.lookup(id, sessionID)
	if err != nil {
		return nil, err
	}
	next := d.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	ds.cache.Set(id, next, ds.ttl)
	return next.clone(), nil
}

// Discard forgets a draft.
func (ds *DraftStore) Discard(id string) {
	ds.cache.Delete(id)
}

// Count returns the number of open drafts.
func (ds *DraftStore) Count() int {
	return ds.cache.ItemCount()
}

func (ds *DraftStore) lookup(id, sessionID string) (*Draft, error) {
	v, ok := ds.cache.Get(id)
	if !ok {
		return nil, domain.ErrDraftExpired
	}
	d := v.(*Draft)
	if d.SessionID != sessionID {
		return nil, domain.ErrDraftExpired
	}
	return d, nil
}
