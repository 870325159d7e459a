// Package listing translates query state into the upstream list protocol,
// executes queries, and resolves foreign-key display labels for the rows of
// the current page.
package listing

import (
	"sort"
	"strings"

	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/model"
)

// dateSuffix marks filter keys holding timestamp ranges: created_at,
// updated_at, deleted_at and the like.
const dateSuffix = "d_at"

// BuildQuery translates UI query state into the wire query. The translation
// is deterministic: map-backed inputs are emitted in sorted key order, so the
// same state always produces the same query.
//
// Rules:
//   - page and pageSize pass through, with zero values replaced by defaults
//   - the sort map merges with the fixed sort, fixed entries winning on key
//     collision, then flattens to an ordered sorter list
//   - filter keys with empty-array values are dropped; remaining arrays
//     become "in" params unless the key carries the date suffix, which
//     selects "between"; scalars become "=" params
//   - values of date-typed columns are normalized to UTC RFC 3339 strings
func BuildQuery(state model.QueryState, columns []model.ColumnDescriptor, fixedSort map[string]string, defaultPageSize int) model.Query {
	q := model.Query{
		Page:     state.Page,
		PageSize: state.PageSize,
		Keyword:  state.Keyword,
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}

	q.Sorters = buildSorters(state.Sort, fixedSort)
	q.Params = buildParams(state.Filters, columns)
	return q
}

func buildSorters(sorters, fixed map[string]string) []model.Sorter {
	merged := make(map[string]string, len(sorters)+len(fixed))
	for field, order := range sorters {
		merged[field] = order
	}
	for field, order := range fixed {
		merged[field] = order
	}

	fields := make([]string, 0, len(merged))
	for field, order := range merged {
		if order == "" {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]model.Sorter, 0, len(fields))
	for _, field := range fields {
		out = append(out, model.Sorter{Field: field, Order: merged[field]})
	}
	return out
}

func buildParams(filters map[string]any, columns []model.ColumnDescriptor) []model.Param {
	if len(filters) == 0 {
		return nil
	}

	dateColumns := make(map[string]bool)
	for _, col := range columns {
		switch col.ValueType {
		case model.TypeDate, model.TypeDateRange, model.TypeDateTime, model.TypeDateTimeRange:
			dateColumns[col.DataIndex] = true
		}
	}

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var params []model.Param
	for _, key := range keys {
		value := filters[key]
		if value == nil {
			continue
		}

		if arr, isArray := value.([]any); isArray {
			if len(arr) == 0 {
				continue
			}
			op := model.OpIn
			if strings.HasSuffix(key, dateSuffix) {
				op = model.OpBetween
			}
			params = append(params, model.Param{
				Key:      key,
				Operator: op,
				Value:    normalizeValue(arr, dateColumns[key]),
			})
			continue
		}

		params = append(params, model.Param{
			Key:      key,
			Operator: model.OpEquals,
			Value:    normalizeValue(value, dateColumns[key]),
		})
	}
	return params
}

// normalizeValue converts date-typed filter values to canonical UTC RFC 3339
// strings, element-wise for arrays.
func normalizeValue(value any, isDate bool) any {
	if !isDate {
		return value
	}
	if arr, ok := value.([]any); ok {
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i] = normalizeScalar(item)
		}
		return out
	}
	return normalizeScalar(value)
}

func normalizeScalar(value any) any {
	t, ok := valuetype.ParseTime(value)
	if !ok {
		return value
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
