package notifications

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory Storage for development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
	seq     int64
	now     func() time.Time
}

type memoryRecord struct {
	Record
	seq int64
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*memoryRecord),
		now:     time.Now,
	}
}

func (s *MemoryStorage) Create(ctx context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = Lifecycle.Initial()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	s.seq++
	s.records[rec.ID] = &memoryRecord{Record: rec.Clone(), seq: s.seq}
	return rec.ID, nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	rec := r.Clone()
	return &rec, nil
}

func (s *MemoryStorage) UpdateStatus(ctx context.Context, id string, status Status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	return r.Transition(status, errorMessage, s.now())
}

func (s *MemoryStorage) MarkRead(ctx context.Context, id string, recipientID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return ReadOutcome(ErrRecordNotFound)
	}
	_, err := r.Record.MarkRead(recipientID, s.now())
	return ReadOutcome(err)
}

func (s *MemoryStorage) ListForUser(ctx context.Context, recipientID int64, opts ListOptions) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*memoryRecord
	for _, r := range s.records {
		if r.RecipientID != recipientID {
			continue
		}
		if opts.Channel != "" && r.Channel != opts.Channel {
			continue
		}
		matched = append(matched, r)
	}

	slices.SortFunc(matched, func(a, b *memoryRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	start := min(max(opts.Offset, 0), len(matched))
	end := len(matched)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, end)
	}

	out := make([]Record, 0, end-start)
	for _, r := range matched[start:end] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *MemoryStorage) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if r.RecipientID == recipientID && r.Status != StatusRead {
			count++
		}
	}
	return count, nil
}
