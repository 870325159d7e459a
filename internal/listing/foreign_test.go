package listing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pitabwire/curator/model"
)

func ownerColumn() model.ColumnDescriptor {
	return model.ColumnDescriptor{
		DataIndex: "owner_id",
		ValueType: model.TypeForeign,
		ForeignKey: &model.ForeignKeyBinding{
			Model: "users", KeyField: "id", LabelField: "name",
		},
	}
}

func TestEnricher_cache_narrows_batch(t *testing.T) {
	cache := NewMemoryLabelCache(time.Minute, 100)
	binding := FormatBindingKey("users", "id", "name")
	cache.Put(context.Background(), binding, map[string]string{"7": "Alice"})

	lookup := &fakeLookup{result: map[string]string{"8": "Bob"}}
	e := NewEnricher(lookup, cache)

	rows := []model.Row{
		{"owner_id": 7.0},
		{"owner_id": 8.0},
	}
	enums := e.Enrich(context.Background(), nil, []model.ColumnDescriptor{ownerColumn()}, rows)

	if enums["owner_id"]["7"] != "Alice" || enums["owner_id"]["8"] != "Bob" {
		t.Errorf("enums = %v", enums)
	}
	lookup.mu.Lock()
	defer lookup.mu.Unlock()
	if len(lookup.calls) != 1 || len(lookup.calls[0].keys) != 1 {
		t.Errorf("calls = %+v, want one call for the single miss", lookup.calls)
	}
}

func TestEnricher_fully_cached_skips_lookup(t *testing.T) {
	cache := NewMemoryLabelCache(time.Minute, 100)
	binding := FormatBindingKey("users", "id", "name")
	cache.Put(context.Background(), binding, map[string]string{"7": "Alice"})

	lookup := &fakeLookup{}
	e := NewEnricher(lookup, cache)

	enums := e.Enrich(context.Background(), nil, []model.ColumnDescriptor{ownerColumn()}, []model.Row{{"owner_id": 7.0}})

	if enums["owner_id"]["7"] != "Alice" {
		t.Errorf("enums = %v", enums)
	}
	if lookup.callCount() != 0 {
		t.Errorf("lookup calls = %d, want 0", lookup.callCount())
	}
}

func TestEnricher_per_column_batches(t *testing.T) {
	lookup := &fakeLookup{result: map[string]string{"1": "x"}}
	e := NewEnricher(lookup, nil)

	editor := model.ColumnDescriptor{
		DataIndex: "editor_id",
		ValueType: model.TypeForeign,
		ForeignKey: &model.ForeignKeyBinding{
			Model: "users", KeyField: "id", LabelField: "name",
		},
	}
	rows := []model.Row{{"owner_id": 1.0, "editor_id": 1.0}}

	e.Enrich(context.Background(), nil, []model.ColumnDescriptor{ownerColumn(), editor}, rows)

	if lookup.callCount() != 2 {
		t.Errorf("lookup calls = %d, want one per bound column", lookup.callCount())
	}
}

type blockingLookup struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingLookup) BatchFetchFields(_ context.Context, _ *model.RequestContext, _, _ string, _ []any, _ string) (map[string]string, error) {
	b.calls.Add(1)
	b.entered <- struct{}{}
	<-b.release
	return map[string]string{"1": "Alice"}, nil
}

func TestEnricher_overlapping_lookup_dropped(t *testing.T) {
	lookup := &blockingLookup{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	e := NewEnricher(lookup, nil)

	cols := []model.ColumnDescriptor{ownerColumn()}
	rows := []model.Row{{"owner_id": 1.0}}

	first := make(chan map[string]map[string]string, 1)
	go func() {
		first <- e.Enrich(context.Background(), nil, cols, rows)
	}()

	<-lookup.entered

	// A second page for the same binding while the first lookup is still
	// in flight gets no enumeration and triggers no extra upstream call.
	enums := e.Enrich(context.Background(), nil, cols, rows)
	if len(enums) != 0 {
		t.Errorf("overlapping enums = %v, want none", enums)
	}
	if got := lookup.calls.Load(); got != 1 {
		t.Errorf("lookup calls = %d, want 1 while first is in flight", got)
	}

	close(lookup.release)
	select {
	case enums := <-first:
		if enums["owner_id"]["1"] != "Alice" {
			t.Errorf("first enums = %v", enums)
		}
	case <-time.After(time.Second):
		t.Fatal("first Enrich never returned")
	}

	// The guard resets once the first lookup settles.
	if e.Enrich(context.Background(), nil, cols, rows)["owner_id"]["1"] != "Alice" {
		t.Error("lookup after settle should resolve labels again")
	}
}

func TestEnricher_skips_nil_and_unbound(t *testing.T) {
	lookup := &fakeLookup{}
	e := NewEnricher(lookup, nil)

	plain := model.ColumnDescriptor{DataIndex: "title", ValueType: model.TypeText}
	rows := []model.Row{{"owner_id": nil, "title": "a"}}

	enums := e.Enrich(context.Background(), nil, []model.ColumnDescriptor{ownerColumn(), plain}, rows)

	if len(enums) != 0 {
		t.Errorf("enums = %v, want none", enums)
	}
	if lookup.callCount() != 0 {
		t.Errorf("lookup calls = %d, want 0", lookup.callCount())
	}
}
