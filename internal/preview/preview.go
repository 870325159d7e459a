// Package preview renders read-only detail views: a disabled projection of
// the edit form plus a label/value listing with type-aware previews for
// rich-text, media, and enumerated fields.
package preview

import (
	"context"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/model"
)

// RowSource fetches the row under preview.
type RowSource interface {
	Detail(ctx context.Context, rctx *model.RequestContext, modelName string, id any) (model.Row, error)
}

// LabelSource resolves foreign-key labels for the row's bound columns.
type LabelSource interface {
	Enrich(ctx context.Context, rctx *model.RequestContext, columns []model.ColumnDescriptor, rows []model.Row) map[string]map[string]string
}

// Item is one entry of the label/value listing.
type Item struct {
	Field    string    `json:"field"`
	Label    string    `json:"label"`
	Kind     string    `json:"kind"`
	Value    string    `json:"value,omitempty"`
	HTML     string    `json:"html,omitempty"`
	URL      string    `json:"url,omitempty"`
	Media    MediaKind `json:"media,omitempty"`
	Download string    `json:"download,omitempty"`
}

// Item kinds.
const (
	KindText  = "text"
	KindHTML  = "html"
	KindMedia = "media"
)

// Detail is the full read-only projection of one row.
type Detail struct {
	Resource string         `json:"resource"`
	Identity any            `json:"identity"`
	Fields   []editor.Field `json:"fields"`
	Values   model.Row      `json:"values"`
	Items    []Item         `json:"items"`
	Disabled bool           `json:"disabled"`
}

// Viewer builds detail projections.
type Viewer struct {
	source   RowSource
	labels   LabelSource
	registry *valuetype.Registry
	policy   *bluemonday.Policy
}

// NewViewer creates a Viewer. Rich-text fields pass through a UGC
// sanitization policy before leaving the service.
func NewViewer(source RowSource, labels LabelSource, registry *valuetype.Registry) *Viewer {
	if registry == nil {
		registry = valuetype.NewRegistry()
	}
	return &Viewer{
		source:   source,
		labels:   labels,
		registry: registry,
		policy:   bluemonday.UGCPolicy(),
	}
}

// Detail fetches a row and renders both projections: the disabled form and
// the type-aware label/value listing.
func (v *Viewer) Detail(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, id any) (Detail, error) {
	if id == nil {
		return Detail{}, model.NewBadRequestError("detail requires an identity")
	}
	row, err := v.source.Detail(ctx, rctx, snap.Meta.Name, id)
	if err != nil {
		return Detail{}, err
	}

	var labels map[string]map[string]string
	if v.labels != nil && len(snap.ForeignColumns) > 0 {
		labels = v.labels.Enrich(ctx, rctx, snap.ForeignColumns, []model.Row{row})
	}

	return Detail{
		Resource: snap.Meta.Name,
		Identity: id,
		Fields:   formFields(snap, v.registry),
		Values:   row,
		Items:    v.renderItems(snap, row, labels),
		Disabled: true,
	}, nil
}

func (v *Viewer) renderItems(snap metadata.Snapshot, row model.Row, labels map[string]map[string]string) []Item {
	var items []Item
	for _, col := range snap.Meta.Columns {
		value, present := row[col.DataIndex]
		if !present {
			continue
		}
		items = append(items, v.renderItem(col, value, labels[col.DataIndex]))
	}
	return items
}

// renderItem picks the preview shape for one field. HTML-suffixed fields are
// sanitized; URL-shaped fields get a media classification and a download
// target; enumerated and foreign fields render their mapped label, falling
// back to the stringified raw value when no entry matches.
func (v *Viewer) renderItem(col model.ColumnDescriptor, value any, labels map[string]string) Item {
	item := Item{
		Field: col.DataIndex,
		Label: colTitle(col),
		Kind:  KindText,
	}

	str := valuetype.Stringify(value)

	switch {
	case isHTMLField(col.DataIndex) || col.ValueType == model.TypeHTML:
		item.Kind = KindHTML
		item.HTML = v.policy.Sanitize(str)

	case isMediaField(col.DataIndex) && str != "":
		item.Kind = KindMedia
		item.URL = str
		item.Media = ClassifyURL(str)
		item.Download = str

	case labels != nil:
		if label, ok := labels[str]; ok {
			item.Value = label
		} else {
			item.Value = str
		}

	case len(col.ValueEnum) > 0:
		item.Value = valuetype.Stringify(valuetype.EnumLabel(col, value))

	default:
		item.Value = valuetype.Stringify(v.registry.Project(col, model.Row{col.DataIndex: value}))
	}

	return item
}

func formFields(snap metadata.Snapshot, registry *valuetype.Registry) []editor.Field {
	var fields []editor.Field
	for _, col := range snap.Meta.Columns {
		if col.HideInForm {
			continue
		}
		fields = append(fields, editor.Field{
			Column:  col,
			Control: registry.Resolve(col.ValueType).Control,
		})
	}
	return fields
}

func colTitle(col model.ColumnDescriptor) string {
	if col.Title != "" {
		return col.Title
	}
	return col.DataIndex
}
