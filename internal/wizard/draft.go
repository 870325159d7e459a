package wizard

import (
	"time"

	"github.com/pitabwire/curator/model"
)

// Draft is one in-progress schema definition. The column list and the
// per-column type parameters accumulate as the flow advances; Version guards
// concurrent edits of the same draft.
type Draft struct {
	ID        string `json:"id"`
	SubjectID string `json:"-"`

	Resource string `json:"resource"`
	Title    string `json:"title,omitempty"`
	RowKey   string `json:"rowKey"`

	Step    Step                     `json:"step"`
	Columns []model.ColumnDescriptor `json:"columns,omitempty"`

	// Params maps column data-index to the configuration collected for its
	// value type, validated against the type's parameter schema.
	Params map[string]map[string]any `json:"params,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the draft's lifetime has passed.
func (d Draft) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && d.ExpiresAt.Before(now)
}

// Meta composes the resource schema the draft describes.
func (d Draft) Meta() model.ResourceMeta {
	cols := make([]model.ColumnDescriptor, len(d.Columns))
	copy(cols, d.Columns)
	for i, col := range cols {
		if params, ok := d.Params[col.DataIndex]; ok {
			cols[i].TypeParams = params
		}
	}
	return model.ResourceMeta{
		Name:    d.Resource,
		Title:   d.Title,
		RowKey:  d.RowKey,
		Columns: cols,
	}
}
