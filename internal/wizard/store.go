package wizard

import (
	"context"
	"time"
)

// Step is a stage of the schema setup flow. Transitions move strictly
// forward; re-entering an earlier stage resets everything after it.
type Step string

const (
	StepDraft     Step = "draft"
	StepColumns   Step = "columns"
	StepParams    Step = "params"
	StepReview    Step = "review"
	StepSubmitted Step = "submitted"
)

// stepOrder fixes the forward sequence of the flow.
var stepOrder = []Step{StepDraft, StepColumns, StepParams, StepReview, StepSubmitted}

func stepIndex(s Step) int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Store persists setup drafts. Implementations must scope every read and
// delete to the owning subject; a draft is never visible across users.
type Store interface {
	// Create persists a new draft. Returns CONFLICT if the ID exists.
	Create(ctx context.Context, draft Draft) error

	// Get retrieves a draft by ID, scoped to a subject. Returns
	// DRAFT_NOT_FOUND if the draft does not exist, belongs to a different
	// subject, or has expired.
	Get(ctx context.Context, subjectID, draftID string) (Draft, error)

	// Update persists an updated draft with optimistic locking. The version
	// must match the stored version; returns CONFLICT otherwise.
	Update(ctx context.Context, draft Draft) error

	// Delete removes a draft, scoped to a subject.
	Delete(ctx context.Context, subjectID, draftID string) error

	// DeleteExpired removes every draft whose expiry is before the cutoff
	// and reports how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}
