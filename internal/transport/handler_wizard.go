package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/curator/internal/wizard"
	"github.com/pitabwire/curator/model"
)

func handleDraftStart(engine *wizard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		var req struct {
			Resource string `json:"resource"`
			Title    string `json:"title"`
			RowKey   string `json:"rowKey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		draft, err := engine.Start(r.Context(), rctx, req.Resource, req.Title, req.RowKey)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, draft)
	}
}

func handleDraftGet(engine *wizard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		draft, err := engine.Get(r.Context(), rctx, chi.URLParam(r, "draftId"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, draft)
	}
}

func handleDraftAbandon(engine *wizard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		if err := engine.Abandon(r.Context(), rctx, chi.URLParam(r, "draftId")); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
	}
}

func handleDraftColumns(engine *wizard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		var req struct {
			Columns []model.ColumnDescriptor `json:"columns"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		draft, err := engine.SetColumns(r.Context(), rctx, chi.URLParam(r, "draftId"), req.Columns)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, draft)
	}
}

func handleDraftParams(engine *wizard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		var req struct {
			Params map[string]map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		draft, err := engine.SetParams(r.Context(), rctx, chi.URLParam(r, "draftId"), req.Params)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, draft)
	}
}

func handleDraftSubmit(engine *wizard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		var req struct {
			Confirmed bool `json:"confirmed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		meta, err := engine.Submit(r.Context(), rctx, chi.URLParam(r, "draftId"), req.Confirmed)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"meta": meta})
	}
}
