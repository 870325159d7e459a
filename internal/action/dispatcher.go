// Package action executes row-level and batch operations: the builtin delete
// and update, and dynamic actions declared by the upstream schema. Every
// mutation is capability- and confirmation-gated before any upstream call.
package action

import (
	"context"
	"fmt"

	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/model"
)

// Client is the upstream surface the dispatcher needs.
type Client interface {
	Delete(ctx context.Context, rctx *model.RequestContext, modelName string, id any) error
	Action(ctx context.Context, rctx *model.RequestContext, modelName, action string, id any, params map[string]any) (string, error)
}

// Submitter routes builtin update invocations through the form write path.
type Submitter interface {
	Submit(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, caps model.Capabilities, sub editor.Submission) (editor.SubmitResult, error)
}

// Request is one dispatch attempt against a named operation.
type Request struct {
	Name      string         `json:"name"`
	Targets   []any          `json:"targets"`
	Params    map[string]any `json:"params,omitempty"`
	Confirmed bool           `json:"confirmed"`
}

// Dispatcher resolves and executes operations against the upstream.
type Dispatcher struct {
	client    Client
	submitter Submitter
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(client Client, submitter Submitter) *Dispatcher {
	return &Dispatcher{client: client, submitter: submitter}
}

// batchDeleteAction is the upstream action name carrying a multi-row delete
// in a single call.
const batchDeleteAction = "batch-delete"

// Dispatch executes a named operation. The guards run in order and each
// short-circuits with no upstream call: write capability, operation lookup,
// confirmation for dangerous operations, then parameter validation. On
// success the result tells the UI to reload and clear any selection; a
// failure leaves both untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, caps model.Capabilities, req Request) (model.DispatchResult, error) {
	if req.Name == metadata.OpDetail {
		return model.DispatchResult{}, model.NewBadRequestError("detail is not a dispatchable operation")
	}
	if !caps.CanWrite {
		return model.DispatchResult{}, model.NewWriteDeniedError()
	}

	op, ok := snap.Operation(req.Name, caps)
	if !ok {
		return model.DispatchResult{}, model.NewNotFoundError(fmt.Sprintf("%s declares no operation %q", snap.Meta.Name, req.Name))
	}
	if len(req.Targets) == 0 {
		return model.DispatchResult{}, model.NewBadRequestError("operation requires at least one target row")
	}
	if len(req.Targets) > 1 && !op.Batch {
		return model.DispatchResult{}, model.NewBadRequestError(fmt.Sprintf("operation %q acts on a single row", op.Name))
	}
	if op.Danger && !req.Confirmed {
		return model.DispatchResult{}, model.NewBadRequestError(fmt.Sprintf("operation %q requires confirmation", op.Name))
	}
	if len(op.Columns) > 0 {
		if details := editor.Validate(op.Columns, req.Params); len(details) > 0 {
			return model.DispatchResult{}, model.NewValidationError(details)
		}
	}

	switch {
	case op.Builtin && op.Name == metadata.OpDelete:
		return d.dispatchDelete(ctx, rctx, snap, req)
	case op.Builtin && op.Name == metadata.OpUpdate:
		return d.dispatchUpdate(ctx, rctx, snap, caps, req)
	case op.Builtin:
		return model.DispatchResult{}, model.NewBadRequestError(fmt.Sprintf("operation %q is handled by the editor", op.Name))
	default:
		return d.dispatchDynamic(ctx, rctx, snap, op, req)
	}
}

// dispatchDelete removes the targets: a single row through the delete
// endpoint, several rows as one batch action carrying the full identity set.
func (d *Dispatcher) dispatchDelete(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, req Request) (model.DispatchResult, error) {
	if len(req.Targets) == 1 {
		if err := d.client.Delete(ctx, rctx, snap.Meta.Name, req.Targets[0]); err != nil {
			return model.DispatchResult{}, err
		}
		return model.DispatchResult{Reload: true, ClearSelection: true}, nil
	}

	// The upstream contract carries the identity set twice: folded into the
	// payload as "id" and repeated under "ids".
	msg, err := d.client.Action(ctx, rctx, snap.Meta.Name, batchDeleteAction, req.Targets, map[string]any{"ids": req.Targets})
	if err != nil {
		return model.DispatchResult{}, err
	}
	return model.DispatchResult{Reload: true, ClearSelection: true, Message: msg}, nil
}

func (d *Dispatcher) dispatchUpdate(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, caps model.Capabilities, req Request) (model.DispatchResult, error) {
	if d.submitter == nil {
		return model.DispatchResult{}, model.NewInternalError()
	}
	_, err := d.submitter.Submit(ctx, rctx, snap, caps, editor.Submission{
		Mode:      editor.ModeEdit,
		Identity:  req.Targets[0],
		Values:    req.Params,
		Confirmed: req.Confirmed,
	})
	if err != nil {
		return model.DispatchResult{}, err
	}
	return model.DispatchResult{Reload: true, ClearSelection: true}, nil
}

func (d *Dispatcher) dispatchDynamic(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, op metadata.Operation, req Request) (model.DispatchResult, error) {
	var id any = req.Targets[0]
	if len(req.Targets) > 1 {
		id = req.Targets
	}

	msg, err := d.client.Action(ctx, rctx, snap.Meta.Name, op.Name, id, req.Params)
	if err != nil {
		return model.DispatchResult{}, err
	}
	return model.DispatchResult{Reload: true, ClearSelection: true, Message: msg}, nil
}
