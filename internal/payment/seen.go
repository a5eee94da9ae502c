package payment

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/blob"
)

// DefaultSeenCapacity bounds the in-memory signature set.
const DefaultSeenCapacity = 1000

// SignatureSet records accepted transaction signatures.
type SignatureSet interface {
	Has(ctx context.Context, signature string) bool
	// Add inserts signature and reports whether it was absent.
	Add(ctx context.Context, signature string) bool
}

// SeenSignatures is a bounded insertion-ordered set. Once it holds more than
// its capacity the oldest inserted signature is evicted.
type SeenSignatures struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

var _ SignatureSet = (*SeenSignatures)(nil)

func NewSeenSignatures(capacity int) *SeenSignatures {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}
	return &SeenSignatures{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity+1),
	}
}

func (s *SeenSignatures) Has(_ context.Context, signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[signature]
	return ok
}

func (s *SeenSignatures) Add(_ context.Context, signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[signature]; ok {
		return false
	}
	s.index[signature] = s.order.PushBack(signature)
	if s.order.Len() > s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.index, oldest.Value.(string))
	}
	return true
}

func (s *SeenSignatures) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// StoredSignatures layers a blob store under the in-memory set so accepted
// signatures survive restarts and are visible to every instance sharing the
// store. Store failures degrade to the in-memory behaviour.
type StoredSignatures struct {
	mem   *SeenSignatures
	store blob.Store
	now   func() time.Time
}

var _ SignatureSet = (*StoredSignatures)(nil)

type seenRecord struct {
	AcceptedAt int64 `json:"acceptedAt"`
}

func NewStoredSignatures(mem *SeenSignatures, store blob.Store) *StoredSignatures {
	return &StoredSignatures{
		mem:   mem,
		store: blob.Namespace(store, "seen-signatures/"),
		now:   time.Now,
	}
}

func (s *StoredSignatures) Has(ctx context.Context, signature string) bool {
	if s.mem.Has(ctx, signature) {
		return true
	}
	var rec seenRecord
	found, err := blob.GetJSON(ctx, s.store, signature, &rec)
	if err != nil {
		logger.Warn().Err(err).Msg("signature ledger lookup failed")
		return false
	}
	return found
}

func (s *StoredSignatures) Add(ctx context.Context, signature string) bool {
	if s.Has(ctx, signature) {
		return false
	}
	if !s.mem.Add(ctx, signature) {
		return false
	}
	if err := blob.SetJSON(ctx, s.store, signature, seenRecord{AcceptedAt: s.now().Unix()}); err != nil {
		logger.Warn().Err(err).Msg("signature ledger write failed")
	}
	return true
}
