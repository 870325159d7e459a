package transport

import (
	"net/http"

	"github.com/pitabwire/curator/internal/session"
)

// handleSession returns the composed console session: current user, derived
// capabilities, site chrome, and the capability-filtered menu tree. The UI
// calls this once on entry and discards it on logout.
func handleSession(composer *session.Composer, ui session.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		profile, err := composer.Profile(r.Context(), rctx)
		if err != nil {
			WriteError(w, err)
			return
		}
		profile.Settings = ui
		WriteJSON(w, http.StatusOK, profile)
	}
}

func handleSite(composer *session.Composer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		profile, err := composer.Profile(r.Context(), rctx)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, profile.Site)
	}
}

func handleMenu(composer *session.Composer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		profile, err := composer.Profile(r.Context(), rctx)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"menu": profile.Menu})
	}
}

func handleCurrentUser(composer *session.Composer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx, _, ok := requestIdentity(w, r)
		if !ok {
			return
		}

		profile, err := composer.Profile(r.Context(), rctx)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"user":         profile.User,
			"capabilities": profile.Capabilities,
		})
	}
}
