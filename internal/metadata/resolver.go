// Package metadata resolves backend resource schemas into renderable form:
// overlays applied, foreign-key bindings extracted, row operations derived
// from capability flags. Resolved schemas are cached with a TTL and
// concurrent fetches for the same resource are collapsed into one call.
package metadata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pitabwire/curator/model"
)

// MetaSource fetches the raw schema for a named resource.
type MetaSource interface {
	Meta(ctx context.Context, rctx *model.RequestContext, modelName string) (model.ResourceMeta, error)
}

// OverlaySource supplies the locally defined presentation overlay, if any.
type OverlaySource interface {
	Overlay(resource string) (model.ResourceOverlay, bool)
}

// Snapshot is a resolved resource schema. It is capability-independent;
// derive per-request operations with Operations.
type Snapshot struct {
	Meta       model.ResourceMeta
	Overlay    model.ResourceOverlay
	Generation uint64
	FetchedAt  time.Time

	// ForeignColumns lists the columns whose foreign-key binding needs
	// batched label resolution after rows load.
	ForeignColumns []model.ColumnDescriptor
}

type cacheEntry struct {
	snap    Snapshot
	expires time.Time
}

// Resolver turns resource names into Snapshots.
type Resolver struct {
	source   MetaSource
	overlays OverlaySource
	ttl      time.Duration
	maxSize  int

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	latest  map[string]uint64
}

// NewResolver creates a Resolver. A nil overlays source disables overlays.
func NewResolver(source MetaSource, overlays OverlaySource, ttl time.Duration, maxEntries int) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 500
	}
	return &Resolver{
		source:   source,
		overlays: overlays,
		ttl:      ttl,
		maxSize:  maxEntries,
		entries:  make(map[string]cacheEntry),
		latest:   make(map[string]uint64),
	}
}

// Resolve returns the resolved schema for a resource, fetching it from the
// upstream when the cache has no live entry. Overlapping calls for the same
// resource share one upstream fetch. A fetch that completes after a newer
// resolution began for the same resource is returned to its caller but never
// stored, so stale schemas cannot overwrite fresher ones.
func (r *Resolver) Resolve(ctx context.Context, rctx *model.RequestContext, resource string) (Snapshot, error) {
	if snap, ok := r.cached(resource); ok {
		return snap, nil
	}

	gen := r.nextGeneration(resource)

	v, err, _ := r.group.Do(resource, func() (any, error) {
		meta, err := r.source.Meta(ctx, rctx, resource)
		if err != nil {
			return Snapshot{}, err
		}
		return r.normalize(resource, meta), nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	snap := v.(Snapshot)
	snap.Generation = gen
	r.store(resource, snap, gen)
	return snap, nil
}

// Invalidate drops the cached schema for one resource.
func (r *Resolver) Invalidate(resource string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, resource)
	r.latest[resource]++
}

// InvalidateAll drops every cached schema.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.entries {
		delete(r.entries, name)
		r.latest[name]++
	}
}

func (r *Resolver) cached(resource string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[resource]
	if !ok || time.Now().After(e.expires) {
		return Snapshot{}, false
	}
	return e.snap, true
}

func (r *Resolver) nextGeneration(resource string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[resource]++
	return r.latest[resource]
}

func (r *Resolver) store(resource string, snap Snapshot, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen < r.latest[resource] {
		return
	}
	if len(r.entries) >= r.maxSize {
		// Evict the entry closest to expiry rather than tracking LRU order.
		var oldest string
		var oldestAt time.Time
		for name, e := range r.entries {
			if oldest == "" || e.expires.Before(oldestAt) {
				oldest = name
				oldestAt = e.expires
			}
		}
		if oldest != "" {
			delete(r.entries, oldest)
		}
	}
	r.entries[resource] = cacheEntry{snap: snap, expires: time.Now().Add(r.ttl)}
}

// normalize applies the overlay and extracts foreign-key bindings.
func (r *Resolver) normalize(resource string, meta model.ResourceMeta) Snapshot {
	if meta.Name == "" {
		meta.Name = resource
	}
	if meta.RowKey == "" {
		meta.RowKey = "id"
	}

	var overlay model.ResourceOverlay
	if r.overlays != nil {
		if o, ok := r.overlays.Overlay(resource); ok {
			overlay = o
			applyOverlay(&meta, o)
		}
	}

	columns := make([]model.ColumnDescriptor, len(meta.Columns))
	var foreign []model.ColumnDescriptor
	for i, col := range meta.Columns {
		columns[i] = extractForeignBinding(col)
		if columns[i].ForeignKey.Bound() {
			foreign = append(foreign, columns[i])
		}
	}
	meta.Columns = columns

	return Snapshot{
		Meta:           meta,
		Overlay:        overlay,
		FetchedAt:      time.Now(),
		ForeignColumns: foreign,
	}
}

func applyOverlay(meta *model.ResourceMeta, o model.ResourceOverlay) {
	if o.Title != "" {
		meta.Title = o.Title
	}
	if o.DisableExport {
		meta.Exportable = false
	}
	if len(o.HiddenColumns) == 0 {
		return
	}
	hidden := make(map[string]bool, len(o.HiddenColumns))
	for _, name := range o.HiddenColumns {
		hidden[name] = true
	}
	kept := meta.Columns[:0]
	for _, col := range meta.Columns {
		if !hidden[col.DataIndex] {
			kept = append(kept, col)
		}
	}
	meta.Columns = kept
}

// extractForeignBinding fills the foreign-key binding from type parameters
// when a foreign-typed column declares the binding inline rather than
// structurally.
func extractForeignBinding(col model.ColumnDescriptor) model.ColumnDescriptor {
	if col.ForeignKey.Bound() {
		return col
	}
	if col.ValueType != model.TypeForeign && col.ValueType != model.TypeDatabase {
		return col
	}
	if len(col.TypeParams) == 0 {
		return col
	}

	binding := model.ForeignKeyBinding{
		Model:      stringParam(col.TypeParams, "model"),
		KeyField:   stringParam(col.TypeParams, "keyField"),
		LabelField: stringParam(col.TypeParams, "labelField"),
	}
	if binding.Bound() {
		col.ForeignKey = &binding
	}
	return col
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
