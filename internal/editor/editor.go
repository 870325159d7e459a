// Package editor builds create/edit/copy forms from resolved schemas and
// submits them through the write path. Every mutation is confirmation- and
// capability-gated before any upstream call is made.
package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/model"
)

// Mode is the editor state.
type Mode string

const (
	ModeClosed Mode = "closed"
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeCopy   Mode = "copy"
)

// RowSource fetches a single row by identity.
type RowSource interface {
	Detail(ctx context.Context, rctx *model.RequestContext, modelName string, id any) (model.Row, error)
}

// Writer submits create and update calls.
type Writer interface {
	Create(ctx context.Context, rctx *model.RequestContext, modelName string, fields map[string]any) (json.RawMessage, error)
	Update(ctx context.Context, rctx *model.RequestContext, modelName string, id any, fields map[string]any) (json.RawMessage, error)
}

// Field is one renderable form control.
type Field struct {
	Column  model.ColumnDescriptor `json:"column"`
	Control string                 `json:"control"`
}

// Form is a prepared editor instance.
type Form struct {
	Mode     Mode      `json:"mode"`
	Resource string    `json:"resource"`
	Identity any       `json:"identity,omitempty"`
	Fields   []Field   `json:"fields"`
	Values   model.Row `json:"values"`
}

// SubmitResult reports a completed submission.
type SubmitResult struct {
	Created bool            `json:"created"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Editor prepares and submits generic resource forms.
type Editor struct {
	source   RowSource
	writer   Writer
	registry *valuetype.Registry
}

// NewEditor creates an Editor.
func NewEditor(source RowSource, writer Writer, registry *valuetype.Registry) *Editor {
	if registry == nil {
		registry = valuetype.NewRegistry()
	}
	return &Editor{source: source, writer: writer, registry: registry}
}

// Open prepares a form for the given mode. Edit and copy fetch the target
// row; create uses the supplied defaults instead. Copy discards the identity
// so submission creates a new row.
func (e *Editor) Open(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, mode Mode, id any, defaults model.Row) (Form, error) {
	form := Form{
		Mode:     mode,
		Resource: snap.Meta.Name,
		Fields:   e.buildFields(snap),
	}

	switch mode {
	case ModeCreate:
		form.Values = cloneRow(defaults)
		return form, nil

	case ModeEdit, ModeCopy:
		if id == nil {
			return Form{}, model.NewBadRequestError(fmt.Sprintf("%s requires an identity", mode))
		}
		row, err := e.source.Detail(ctx, rctx, snap.Meta.Name, id)
		if err != nil {
			return Form{}, err
		}
		form.Values = cloneRow(row)
		if mode == ModeCopy {
			delete(form.Values, snap.Meta.RowKey)
		} else {
			form.Identity = id
		}
		return form, nil

	default:
		return Form{}, model.NewBadRequestError(fmt.Sprintf("unknown editor mode %q", mode))
	}
}

// Submission is one submit attempt.
type Submission struct {
	Mode      Mode
	Identity  any
	Values    map[string]any
	Confirmed bool
}

// Submit validates and executes a submission. The guards run in order and
// each short-circuits without any upstream call: explicit confirmation,
// write capability, then descriptor validation. Only fields present in the
// schema are forwarded; anything else a client staged locally is stripped.
func (e *Editor) Submit(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, caps model.Capabilities, sub Submission) (SubmitResult, error) {
	if !sub.Confirmed {
		return SubmitResult{}, model.NewBadRequestError("submission requires explicit confirmation")
	}
	if !caps.CanWrite {
		return SubmitResult{}, model.NewWriteDeniedError()
	}

	fields := stripUnknown(sub.Values, snap.Meta.Columns)

	if details := Validate(snap.Meta.Columns, fields); len(details) > 0 {
		return SubmitResult{}, model.NewValidationError(details)
	}

	switch sub.Mode {
	case ModeEdit:
		if sub.Identity == nil {
			return SubmitResult{}, model.NewBadRequestError("edit requires an identity")
		}
		delete(fields, snap.Meta.RowKey)
		data, err := e.writer.Update(ctx, rctx, snap.Meta.Name, sub.Identity, fields)
		if err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Data: data}, nil

	case ModeCreate, ModeCopy:
		delete(fields, snap.Meta.RowKey)
		data, err := e.writer.Create(ctx, rctx, snap.Meta.Name, fields)
		if err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Created: true, Data: data}, nil

	default:
		return SubmitResult{}, model.NewBadRequestError(fmt.Sprintf("cannot submit in mode %q", sub.Mode))
	}
}

// buildFields maps visible columns to form controls, substituting the text
// fallback for unregistered value types.
func (e *Editor) buildFields(snap metadata.Snapshot) []Field {
	var fields []Field
	for _, col := range snap.Meta.Columns {
		if col.HideInForm {
			continue
		}
		fields = append(fields, Field{
			Column:  col,
			Control: e.registry.Resolve(col.ValueType).Control,
		})
	}
	return fields
}

// stripUnknown keeps only values whose key names a schema column.
func stripUnknown(values map[string]any, columns []model.ColumnDescriptor) map[string]any {
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		known[col.DataIndex] = true
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		if known[key] {
			out[key] = value
		}
	}
	return out
}

func cloneRow(row model.Row) model.Row {
	out := make(model.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
