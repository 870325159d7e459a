package listing

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/model"
)

// FieldLookup resolves display labels for a set of foreign keys.
type FieldLookup interface {
	BatchFetchFields(ctx context.Context, rctx *model.RequestContext, modelName, keyField string, keys []any, labelField string) (map[string]string, error)
}

// Enricher resolves foreign-key enumerations for the rows of one page. Each
// bound column gets one batched lookup; lookups run concurrently and all
// settle before Enrich returns. A failed lookup leaves its column without an
// enumeration rather than failing the page, and a lookup issued while one is
// already in flight for the same binding is dropped, not queued.
type Enricher struct {
	lookup FieldLookup
	cache  LabelCache

	mu     sync.Mutex
	guards map[string]*FetchGuard
}

// NewEnricher creates an Enricher. The cache may be nil to disable caching.
func NewEnricher(lookup FieldLookup, cache LabelCache) *Enricher {
	return &Enricher{
		lookup: lookup,
		cache:  cache,
		guards: make(map[string]*FetchGuard),
	}
}

func (e *Enricher) guardFor(binding string) *FetchGuard {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guards[binding]
	if !ok {
		g = &FetchGuard{}
		e.guards[binding] = g
	}
	return g
}

// Enrich returns the value→label enumeration for every foreign column,
// keyed by data index. Columns without bindings or without distinct keys in
// the page are absent from the result.
func (e *Enricher) Enrich(ctx context.Context, rctx *model.RequestContext, columns []model.ColumnDescriptor, rows []model.Row) map[string]map[string]string {
	var mu sync.Mutex
	result := make(map[string]map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for _, col := range columns {
		if !col.ForeignKey.Bound() {
			continue
		}
		keys, raw := distinctKeys(rows, col.DataIndex)
		if len(keys) == 0 {
			continue
		}

		col := col
		g.Go(func() error {
			labels := e.resolveColumn(gctx, rctx, col, keys, raw)
			if len(labels) == 0 {
				return nil
			}
			mu.Lock()
			result[col.DataIndex] = labels
			mu.Unlock()
			return nil
		})
	}

	// Goroutines never return errors; Wait is only a settle barrier.
	_ = g.Wait()
	return result
}

// resolveColumn serves one column's keys from the cache where possible and
// batches the remainder into a single upstream lookup.
func (e *Enricher) resolveColumn(ctx context.Context, rctx *model.RequestContext, col model.ColumnDescriptor, keys []string, raw map[string]any) map[string]string {
	fk := col.ForeignKey
	binding := FormatBindingKey(fk.Model, fk.KeyField, fk.LabelField)

	labels := make(map[string]string, len(keys))
	missing := keys

	if e.cache != nil {
		hits, err := e.cache.Get(ctx, binding, keys)
		if err != nil {
			slog.Warn("label cache read failed", "binding", binding, "error", err)
		} else {
			missing = missing[:0:0]
			for _, key := range keys {
				if label, ok := hits[key]; ok {
					labels[key] = label
				} else {
					missing = append(missing, key)
				}
			}
		}
	}

	if len(missing) > 0 {
		guard := e.guardFor(binding)
		if !guard.Begin() {
			// Another fetch for this binding is in flight. Drop the
			// lookup and serve whatever the cache gave us.
			return labels
		}
		defer guard.End()

		rawKeys := make([]any, len(missing))
		for i, key := range missing {
			rawKeys[i] = raw[key]
		}

		fetched, err := e.lookup.BatchFetchFields(ctx, rctx, fk.Model, fk.KeyField, rawKeys, fk.LabelField)
		if err != nil {
			slog.Warn("foreign label lookup failed",
				"model", fk.Model,
				"column", col.DataIndex,
				"keys", len(missing),
				"error", err,
			)
		} else {
			for key, label := range fetched {
				labels[key] = label
			}
			if e.cache != nil && len(fetched) > 0 {
				if err := e.cache.Put(ctx, binding, fetched); err != nil {
					slog.Warn("label cache write failed", "binding", binding, "error", err)
				}
			}
		}
	}

	return labels
}

// distinctKeys collects the distinct non-empty values at a data index across
// the page, keeping the first raw value seen for each stringified key.
func distinctKeys(rows []model.Row, dataIndex string) ([]string, map[string]any) {
	var keys []string
	raw := make(map[string]any)
	for _, row := range rows {
		v, ok := row[dataIndex]
		if !ok || v == nil {
			continue
		}
		key := valuetype.Stringify(v)
		if key == "" {
			continue
		}
		if _, seen := raw[key]; seen {
			continue
		}
		raw[key] = v
		keys = append(keys, key)
	}
	return keys, raw
}
