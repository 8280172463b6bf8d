package memory

import (
	"context"
	"sync"

	"example.com/fittrack/internal/domain"
)

// MarkerStore keeps last-sent markers in process memory. Each key has its own lock so
// concurrent dispatches for different users do not serialise.
type MarkerStore struct {
	mu      sync.Mutex
	values  map[domain.MarkerKey]string
	holding map[domain.MarkerKey]bool
}

// NewMarkerStore constructs an empty store.
func NewMarkerStore() *MarkerStore {
	return &MarkerStore{
		values:  make(map[domain.MarkerKey]string),
		holding: make(map[domain.MarkerKey]bool),
	}
}

// Get implements domain.MarkerStore.
func (s *MarkerStore) Get(_ context.Context, key domain.MarkerKey) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Update implements domain.MarkerStore.
func (s *MarkerStore) Update(ctx context.Context, key domain.MarkerKey, fn domain.MarkerUpdateFunc) error {
	s.mu.Lock()
	if s.holding[key] {
		s.mu.Unlock()
		return domain.ErrMarkerBusy
	}
	s.holding[key] = true
	current := s.values[key]
	s.mu.Unlock()

	committed := false
	var next string
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.holding, key)
		if committed {
			s.values[key] = next
		}
	}()

	next, err := fn(ctx, current)
	if err != nil {
		return err
	}
	committed = true
	return nil
}
