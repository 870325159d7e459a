package transport

import (
	"encoding/json"
	"net/http"

	"github.com/pitabwire/curator/internal/listing"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/model"
)

// listRequest is the staged query state sent by the table UI.
type listRequest struct {
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Keyword  string            `json:"keyword"`
	Sort     map[string]string `json:"sort"`
	Filters  map[string]any    `json:"filters"`
}

func (req listRequest) state() model.QueryState {
	return model.QueryState{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		Sort:     req.Sort,
		Filters:  req.Filters,
	}
}

func handleList(resolver *metadata.Resolver, engine *listing.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}
		snap, ok := resolveResource(w, r, resolver, rctx)
		if !ok {
			return
		}

		var req listRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		page, err := engine.Query(r.Context(), rctx, snap, req.state())
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, page)
	}
}

func handleExport(resolver *metadata.Resolver, engine *listing.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}
		snap, ok := resolveResource(w, r, resolver, rctx)
		if !ok {
			return
		}

		var req struct {
			listRequest
			SelectedIDs []any `json:"selectedIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		url, err := engine.Export(r.Context(), rctx, snap, req.state(), req.SelectedIDs)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, model.ExportResult{URL: url})
	}
}
