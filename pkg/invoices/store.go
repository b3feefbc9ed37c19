package invoices

import (
	"sync"
	"time"
)

// DraftStore keeps in-progress drafts between wizard requests.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]entry
	ttl    time.Duration
	now    func() time.Time
}

type entry struct {
	draft   Draft
	touched time.Time
}

// NewDraftStore returns a store that drops drafts idle for longer than ttl.
func NewDraftStore(ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &DraftStore{drafts: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Get returns a copy of the draft with id.
func (s *DraftStore) Get(id string) (*Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	e, ok := s.drafts[id]
	if !ok {
		return nil, false
	}
	d := e.draft
	d.Items = append(d.Items[:0:0], e.draft.Items...)
	return &d, true
}

// Put stores a copy of d.
func (s *DraftStore) Put(d *Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	cp := *d
	cp.Items = append(d.Items[:0:0], d.Items...)
	s.drafts[d.ID] = entry{draft: cp, touched: s.now()}
}

// Delete removes a draft.
func (s *DraftStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
}

// Len reports the number of live drafts.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.drafts)
}

func (s *DraftStore) sweep() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.drafts {
		if e.touched.Before(cutoff) {
			delete(s.drafts, id)
		}
	}
}
