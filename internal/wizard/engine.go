// Package wizard drives the multi-step schema setup flow: name a resource,
// define its columns, configure per-type parameters, review, submit. Drafts
// survive restarts through a pluggable store and expire after a configured
// lifetime.
package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/model"
)

// Publisher receives the composed schema when a draft is submitted.
type Publisher interface {
	Publish(ctx context.Context, rctx *model.RequestContext, meta model.ResourceMeta) error
}

// Engine runs the setup flow against a draft store.
type Engine struct {
	store     Store
	registry  *valuetype.Registry
	publisher Publisher
	ttl       time.Duration
	now       func() time.Time
}

// NewEngine creates an Engine. The publisher may be nil; submission then
// only finalizes the draft.
func NewEngine(store Store, registry *valuetype.Registry, publisher Publisher, ttl time.Duration) *Engine {
	if registry == nil {
		registry = valuetype.NewRegistry()
	}
	return &Engine{
		store:     store,
		registry:  registry,
		publisher: publisher,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a new draft for the named resource.
func (e *Engine) Start(ctx context.Context, rctx *model.RequestContext, resource, title, rowKey string) (Draft, error) {
	if !rctx.Capabilities().CanWrite {
		return Draft{}, model.NewWriteDeniedError()
	}
	if resource == "" {
		return Draft{}, model.NewBadRequestError("resource name is required")
	}
	if rowKey == "" {
		rowKey = "id"
	}

	now := e.now()
	draft := Draft{
		ID:        uuid.NewString(),
		SubjectID: rctx.SubjectID,
		Resource:  resource,
		Title:     title,
		RowKey:    rowKey,
		Step:      StepDraft,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}
	if err := e.store.Create(ctx, draft); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

// Get loads a draft owned by the requesting subject.
func (e *Engine) Get(ctx context.Context, rctx *model.RequestContext, draftID string) (Draft, error) {
	return e.store.Get(ctx, rctx.SubjectID, draftID)
}

// Abandon discards a draft.
func (e *Engine) Abandon(ctx context.Context, rctx *model.RequestContext, draftID string) error {
	return e.store.Delete(ctx, rctx.SubjectID, draftID)
}

// SetColumns records the draft's column list and advances to the parameter
// stage. Allowed from the draft stage onward; re-entering resets any
// previously collected parameters.
func (e *Engine) SetColumns(ctx context.Context, rctx *model.RequestContext, draftID string, columns []model.ColumnDescriptor) (Draft, error) {
	draft, err := e.writable(ctx, rctx, draftID, StepColumns)
	if err != nil {
		return Draft{}, err
	}
	if details := e.validateColumns(draft, columns); len(details) > 0 {
		return Draft{}, model.NewValidationError(details)
	}

	draft.Columns = columns
	draft.Params = nil
	draft.Step = StepParams
	if err := e.store.Update(ctx, draft); err != nil {
		return Draft{}, err
	}
	return e.Get(ctx, rctx, draftID)
}

// SetParams validates the per-column type configuration against each value
// type's parameter schema and advances to review. Columns whose type needs
// no configuration are skipped; columns whose type does need one must be
// covered.
func (e *Engine) SetParams(ctx context.Context, rctx *model.RequestContext, draftID string, params map[string]map[string]any) (Draft, error) {
	draft, err := e.writable(ctx, rctx, draftID, StepParams)
	if err != nil {
		return Draft{}, err
	}
	if details := e.validateParams(draft, params); len(details) > 0 {
		return Draft{}, model.NewValidationError(details)
	}

	draft.Params = params
	draft.Step = StepReview
	if err := e.store.Update(ctx, draft); err != nil {
		return Draft{}, err
	}
	return e.Get(ctx, rctx, draftID)
}

// Submit finalizes a reviewed draft. It requires explicit confirmation and
// publishes the composed schema before marking the draft submitted; a
// publish failure leaves the draft in review for retry.
func (e *Engine) Submit(ctx context.Context, rctx *model.RequestContext, draftID string, confirmed bool) (model.ResourceMeta, error) {
	draft, err := e.writable(ctx, rctx, draftID, StepSubmitted)
	if err != nil {
		return model.ResourceMeta{}, err
	}
	if !confirmed {
		return model.ResourceMeta{}, model.NewBadRequestError("submission requires explicit confirmation")
	}

	meta := draft.Meta()
	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, rctx, meta); err != nil {
			return model.ResourceMeta{}, err
		}
	}

	draft.Step = StepSubmitted
	if err := e.store.Update(ctx, draft); err != nil {
		return model.ResourceMeta{}, err
	}
	return meta, nil
}

// Sweep removes expired drafts. Intended to run periodically from the server
// loop.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	return e.store.DeleteExpired(ctx, e.now())
}

// writable loads the draft and checks that moving to the target stage is a
// legal transition: one step forward, or backward to redo an earlier stage.
// Submitted drafts are immutable.
func (e *Engine) writable(ctx context.Context, rctx *model.RequestContext, draftID string, target Step) (Draft, error) {
	if !rctx.Capabilities().CanWrite {
		return Draft{}, model.NewWriteDeniedError()
	}
	draft, err := e.store.Get(ctx, rctx.SubjectID, draftID)
	if err != nil {
		return Draft{}, err
	}
	if draft.Step == StepSubmitted {
		return Draft{}, model.NewInvalidStepError("draft is already submitted")
	}
	if stepIndex(target) > stepIndex(draft.Step)+1 {
		return Draft{}, model.NewInvalidStepError(
			fmt.Sprintf("cannot move from %q to %q", draft.Step, target),
		)
	}
	return draft, nil
}

func (e *Engine) validateColumns(draft Draft, columns []model.ColumnDescriptor) []model.FieldError {
	var details []model.FieldError
	if len(columns) == 0 {
		return append(details, model.FieldError{Field: "columns", Message: "at least one column is required"})
	}

	seen := map[string]bool{}
	for _, col := range columns {
		if col.DataIndex == "" {
			details = append(details, model.FieldError{Field: "dataIndex", Message: "every column needs a data index"})
			continue
		}
		if seen[col.DataIndex] {
			details = append(details, model.FieldError{Field: col.DataIndex, Message: "duplicate data index"})
		}
		seen[col.DataIndex] = true
		if col.ValueType != "" && !e.registry.Known(col.ValueType) {
			details = append(details, model.FieldError{
				Field:   col.DataIndex,
				Message: fmt.Sprintf("unknown value type %q", col.ValueType),
			})
		}
	}
	if !seen[draft.RowKey] {
		details = append(details, model.FieldError{
			Field:   draft.RowKey,
			Message: "the row key must appear in the column list",
		})
	}
	return details
}

func (e *Engine) validateParams(draft Draft, params map[string]map[string]any) []model.FieldError {
	var details []model.FieldError
	for _, col := range draft.Columns {
		schema := e.registry.Resolve(col.ValueType).ParamSchema
		if len(schema) == 0 {
			continue
		}
		for _, fe := range editor.Validate(schema, params[col.DataIndex]) {
			fe.Field = col.DataIndex + "." + fe.Field
			details = append(details, fe)
		}
	}
	for dataIndex := range params {
		if _, ok := columnByIndex(draft.Columns, dataIndex); !ok {
			details = append(details, model.FieldError{
				Field:   dataIndex,
				Message: "parameters reference an unknown column",
			})
		}
	}
	return details
}

func columnByIndex(columns []model.ColumnDescriptor, dataIndex string) (model.ColumnDescriptor, bool) {
	for _, col := range columns {
		if col.DataIndex == dataIndex {
			return col, true
		}
	}
	return model.ColumnDescriptor{}, false
}
