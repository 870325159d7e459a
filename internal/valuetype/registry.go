// Package valuetype maps column value-type tags to rendering strategies: a
// table-cell projection, a form control kind, and for configurable types a
// parameter schema consumed by the setup wizard. The registry is populated
// at construction and read-only afterwards.
package valuetype

import (
	"encoding/json"
	"fmt"

	"github.com/pitabwire/curator/model"
)

// CellFunc projects a raw stored value into its display form.
type CellFunc func(value any, row model.Row, col model.ColumnDescriptor) any

// Strategy describes how one value type renders and edits.
type Strategy struct {
	Name string

	// Control names the form input kind. Empty means the generic
	// single-line text input.
	Control string

	// Cell is the optional table-cell projection. Nil displays the raw value.
	Cell CellFunc

	// ParamSchema lists the configuration columns needed to define an
	// instance of this type. Only configurable types carry one.
	ParamSchema []model.ColumnDescriptor
}

// Registry resolves value-type tags to strategies.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry builds a registry with every builtin strategy installed.
func NewRegistry() *Registry {
	r := &Registry{
		strategies: make(map[string]Strategy),
		fallback:   Strategy{Name: model.TypeText, Control: "text"},
	}
	for _, s := range builtinStrategies() {
		r.strategies[s.Name] = s
	}
	return r
}

// Resolve returns the strategy for a tag. Unregistered or empty tags fall
// back to the plain text strategy.
func (r *Registry) Resolve(tag string) Strategy {
	if s, ok := r.strategies[tag]; ok {
		return s
	}
	return r.fallback
}

// Known reports whether a tag has a registered strategy.
func (r *Registry) Known(tag string) bool {
	_, ok := r.strategies[tag]
	return ok
}

// Tags returns every registered tag, for the wizard's type picker.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.strategies))
	for tag := range r.strategies {
		tags = append(tags, tag)
	}
	return tags
}

// Project applies the column's cell strategy to a row value.
func (r *Registry) Project(col model.ColumnDescriptor, row model.Row) any {
	value := row[col.DataIndex]
	s := r.Resolve(col.ValueType)
	if s.Cell == nil {
		return value
	}
	return s.Cell(value, row, col)
}

// EnumLabel maps a stored value through the column's enumeration. A value
// with no mapping entry comes back as-is, stringified when object-shaped.
func EnumLabel(col model.ColumnDescriptor, value any) any {
	key := Stringify(value)
	if label, ok := col.ValueEnum[key]; ok {
		return label
	}
	switch value.(type) {
	case map[string]any, []any:
		return key
	}
	return value
}

// Stringify renders any value as its lookup-key string form. Objects and
// arrays use compact JSON so the representation is stable.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; render integral values without
		// a fraction so keys match upstream string maps.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}
