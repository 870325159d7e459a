package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pitabwire/curator/model"
)

// MemoryStore is an in-memory Store for single-instance deployments and
// tests.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
	now    func() time.Time
}

// NewMemoryStore creates an in-memory draft store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string]Draft),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new draft.
func (s *MemoryStore) Create(_ context.Context, draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.drafts[draft.ID]; exists {
		return model.NewConflictError(fmt.Sprintf("draft %q already exists", draft.ID))
	}
	s.drafts[draft.ID] = draft
	return nil
}

// Get retrieves a draft scoped to a subject. Expired drafts read as absent.
func (s *MemoryStore) Get(_ context.Context, subjectID, draftID string) (Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, exists := s.drafts[draftID]
	if !exists || draft.SubjectID != subjectID || draft.Expired(s.now()) {
		return Draft{}, model.NewDraftNotFoundError(draftID)
	}
	return draft, nil
}

// Update persists an updated draft with optimistic locking.
func (s *MemoryStore) Update(_ context.Context, draft Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.drafts[draft.ID]
	if !exists || existing.SubjectID != draft.SubjectID {
		return model.NewDraftNotFoundError(draft.ID)
	}
	if existing.Version != draft.Version {
		return model.NewConflictError(
			fmt.Sprintf("draft %q version conflict (expected %d, got %d)", draft.ID, existing.Version, draft.Version),
		)
	}

	draft.Version++
	draft.UpdatedAt = s.now()
	s.drafts[draft.ID] = draft
	return nil
}

// Delete removes a draft scoped to a subject.
func (s *MemoryStore) Delete(_ context.Context, subjectID, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, exists := s.drafts[draftID]
	if !exists || draft.SubjectID != subjectID {
		return model.NewDraftNotFoundError(draftID)
	}
	delete(s.drafts, draftID)
	return nil
}

// DeleteExpired removes every draft expired before the cutoff.
func (s *MemoryStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, draft := range s.drafts {
		if draft.Expired(cutoff) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed, nil
}
