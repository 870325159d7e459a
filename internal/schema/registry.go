package schema

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pitabwire/curator/model"
)

// snapshot is an immutable view of all loaded console definitions.
type snapshot struct {
	site     model.SiteDefinition
	menu     []model.MenuItemDefinition
	overlays map[string]model.ResourceOverlay
	checksum string
}

// Registry is a read-optimized, thread-safe store of all loaded console
// definitions. It uses atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given definitions.
func NewRegistry(defs []model.ConsoleDefinition) *Registry {
	r := &Registry{}
	r.Replace(defs)
	return r
}

// Replace atomically swaps the registry contents with a new snapshot built
// from the given definitions. Definitions are merged in source-file order:
// the first non-empty site wins, menus concatenate, and a later overlay for
// the same resource replaces an earlier one.
func (r *Registry) Replace(defs []model.ConsoleDefinition) {
	sorted := make([]model.ConsoleDefinition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SourceFile < sorted[j].SourceFile
	})

	s := &snapshot{
		overlays: make(map[string]model.ResourceOverlay),
	}

	var checksumParts []string

	for _, def := range sorted {
		checksumParts = append(checksumParts, def.Checksum)

		if s.site == (model.SiteDefinition{}) {
			s.site = def.Site
		}
		s.menu = append(s.menu, def.Menu...)
		for _, o := range def.Resources {
			s.overlays[o.Name] = o
		}
	}

	sort.Strings(checksumParts)
	combined := strings.Join(checksumParts, ":")
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(combined)))

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Site returns the merged site chrome.
func (r *Registry) Site() model.SiteDefinition {
	return r.current().site
}

// Menu returns the merged navigation menu.
func (r *Registry) Menu() []model.MenuItemDefinition {
	return r.current().menu
}

// Overlay returns the overlay for the named resource.
func (r *Registry) Overlay(resource string) (model.ResourceOverlay, bool) {
	o, ok := r.current().overlays[resource]
	return o, ok
}

// AllOverlays returns every resource overlay, sorted by resource name.
func (r *Registry) AllOverlays() []model.ResourceOverlay {
	s := r.current()
	overlays := make([]model.ResourceOverlay, 0, len(s.overlays))
	for _, o := range s.overlays {
		overlays = append(overlays, o)
	}
	sort.Slice(overlays, func(i, j int) bool {
		return overlays[i].Name < overlays[j].Name
	})
	return overlays
}

// Checksum returns the combined checksum of all loaded definitions.
func (r *Registry) Checksum() string {
	return r.current().checksum
}
