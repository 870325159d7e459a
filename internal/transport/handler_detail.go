package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/internal/preview"
)

func handleDetail(resolver *metadata.Resolver, viewer *preview.Viewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}
		snap, ok := resolveResource(w, r, resolver, rctx)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		detail, err := viewer.Detail(r.Context(), rctx, snap, id)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, detail)
	}
}
