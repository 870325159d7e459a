package transport

import (
	"encoding/json"
	"net/http"

	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/model"
)

func handleForm(resolver *metadata.Resolver, ed *editor.Editor) http.HandlerFunc {
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
			Mode     editor.Mode `json:"mode"`
			ID       any         `json:"id"`
			Defaults model.Row   `json:"defaults"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		form, err := ed.Open(r.Context(), rctx, snap, req.Mode, req.ID, req.Defaults)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, form)
	}
}

func handleSubmit(resolver *metadata.Resolver, ed *editor.Editor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, caps, ok := requestIdentity(w, r)
		if !ok {
			return
		}
		snap, ok := resolveResource(w, r, resolver, rctx)
		if !ok {
			return
		}

		var req struct {
			Mode      editor.Mode    `json:"mode"`
			Identity  any            `json:"identity"`
			Values    map[string]any `json:"values"`
			Confirmed bool           `json:"confirmed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		result, err := ed.Submit(r.Context(), rctx, snap, caps, editor.Submission{
			Mode:      req.Mode,
			Identity:  req.Identity,
			Values:    req.Values,
			Confirmed: req.Confirmed,
		})
		if err != nil {
			WriteError(w, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		WriteJSON(w, status, result)
	}
}
