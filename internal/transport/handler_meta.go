package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/model"
)

// requestIdentity pulls the request context and derived capabilities, writing
// a 401 when the auth middleware did not run. Every resource handler starts
// here.
func requestIdentity(w http.ResponseWriter, r *http.Request) (*model.RequestContext, model.Capabilities, bool) {
	rctx := model.RequestContextFrom(r.Context())
	if rctx == nil {
		WriteError(w, model.NewUnauthorizedError("missing request context"))
		return nil, model.Capabilities{}, false
	}
	return rctx, model.DeriveCapabilities(rctx.Role), true
}

// resolveResource resolves the schema snapshot for the {resource} URL param.
func resolveResource(w http.ResponseWriter, r *http.Request, resolver *metadata.Resolver, rctx *model.RequestContext) (metadata.Snapshot, bool) {
	resource := chi.URLParam(r, "resource")
	if resource == "" {
		WriteError(w, model.NewBadRequestError("resource name is required"))
		return metadata.Snapshot{}, false
	}
	snap, err := resolver.Resolve(r.Context(), rctx, resource)
	if err != nil {
		WriteError(w, err)
		return metadata.Snapshot{}, false
	}
	return snap, true
}

func handleMeta(resolver *metadata.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, caps, ok := requestIdentity(w, r)
		if !ok {
			return
		}
		snap, ok := resolveResource(w, r, resolver, rctx)
		if !ok {
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"meta":       snap.Meta,
			"operations": snap.Operations(caps),
		})
	}
}
