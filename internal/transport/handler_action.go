package transport

import (
	"encoding/json"
	"net/http"

	"github.com/pitabwire/curator/internal/action"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/model"
)

func handleDispatch(resolver *metadata.Resolver, dispatcher *action.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, caps, ok := requestIdentity(w, r)
		if !ok {
			return
		}
		snap, ok := resolveResource(w, r, resolver, rctx)
		if !ok {
			return
		}

		var req action.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		result, err := dispatcher.Dispatch(r.Context(), rctx, snap, caps, req)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}
