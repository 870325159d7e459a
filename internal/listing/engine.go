package listing

import (
	"context"

	"github.com/pitabwire/curator/internal/config"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/model"
)

// Lister executes list and export calls against the upstream.
type Lister interface {
	List(ctx context.Context, rctx *model.RequestContext, modelName string, q model.Query) (model.ListResult, error)
	Export(ctx context.Context, rctx *model.RequestContext, modelName string, q model.Query) (string, error)
}

// PageResult is one resolved page: rows, total, and the columns with
// foreign-key enumerations merged in.
type PageResult struct {
	Rows    []model.Row                  `json:"data"`
	Total   int64                        `json:"total"`
	Columns []model.ColumnDescriptor     `json:"columns,omitempty"`
	Enums   map[string]map[string]string `json:"enums,omitempty"`
}

// Engine turns query state into resolved pages.
type Engine struct {
	backend  Lister
	enricher *Enricher
	cfg      config.ListingConfig
}

// NewEngine creates an Engine. The enricher may be nil to skip foreign-key
// resolution.
func NewEngine(backend Lister, enricher *Enricher, cfg config.ListingConfig) *Engine {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.ExportPageSize < 1 {
		cfg.ExportPageSize = 100
	}
	return &Engine{backend: backend, enricher: enricher, cfg: cfg}
}

// Query executes a list call for the resource and resolves foreign-key
// labels for the returned page. Upstream rejections propagate to the caller;
// an empty page is a success like any other.
func (e *Engine) Query(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, state model.QueryState) (PageResult, error) {
	state.PageSize = e.clampPageSize(snap, state.PageSize)

	q := BuildQuery(state, snap.Meta.Columns, snap.Overlay.FixedSort, e.defaultPageSize(snap))
	res, err := e.backend.List(ctx, rctx, snap.Meta.Name, q)
	if err != nil {
		return PageResult{}, err
	}

	result := PageResult{
		Rows:    res.Rows,
		Total:   res.Total,
		Columns: snap.Meta.Columns,
	}

	if e.enricher != nil && len(snap.ForeignColumns) > 0 {
		enums := e.enricher.Enrich(ctx, rctx, snap.ForeignColumns, res.Rows)
		if len(enums) > 0 {
			result.Enums = enums
			result.Columns = mergeEnums(snap.Meta.Columns, enums)
		}
	}

	return result, nil
}

// Export runs the same translation with the pagination pinned to the bulk
// export window, optionally narrowed to the selected identities, and returns
// the upstream file URL.
func (e *Engine) Export(ctx context.Context, rctx *model.RequestContext, snap metadata.Snapshot, state model.QueryState, selectedIDs []any) (string, error) {
	if !snap.Meta.Exportable {
		return "", model.NewBadRequestError("resource does not support export")
	}

	state.Page = 1
	state.PageSize = e.cfg.ExportPageSize
	q := BuildQuery(state, snap.Meta.Columns, snap.Overlay.FixedSort, e.cfg.ExportPageSize)

	if len(selectedIDs) > 0 {
		q.Params = append(q.Params, model.Param{
			Key:      snap.Meta.RowKey,
			Operator: model.OpIn,
			Value:    selectedIDs,
		})
	}

	return e.backend.Export(ctx, rctx, snap.Meta.Name, q)
}

func (e *Engine) defaultPageSize(snap metadata.Snapshot) int {
	if snap.Overlay.PageSize > 0 {
		return snap.Overlay.PageSize
	}
	return e.cfg.DefaultPageSize
}

func (e *Engine) clampPageSize(snap metadata.Snapshot, size int) int {
	if size < 1 {
		return e.defaultPageSize(snap)
	}
	if size > e.cfg.MaxPageSize {
		return e.cfg.MaxPageSize
	}
	return size
}

// mergeEnums copies the columns with resolved enumerations folded into
// ValueEnum. Existing static entries win over looked-up labels.
func mergeEnums(columns []model.ColumnDescriptor, enums map[string]map[string]string) []model.ColumnDescriptor {
	out := make([]model.ColumnDescriptor, len(columns))
	for i, col := range columns {
		labels, ok := enums[col.DataIndex]
		if !ok {
			out[i] = col
			continue
		}
		merged := make(map[string]string, len(col.ValueEnum)+len(labels))
		for k, v := range labels {
			merged[k] = v
		}
		for k, v := range col.ValueEnum {
			merged[k] = v
		}
		col.ValueEnum = merged
		out[i] = col
	}
	return out
}
