package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/curator/internal/action"
	"github.com/pitabwire/curator/internal/config"
	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/listing"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/internal/observability"
	"github.com/pitabwire/curator/internal/preview"
	"github.com/pitabwire/curator/internal/session"
	"github.com/pitabwire/curator/internal/wizard"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Resolver   *metadata.Resolver
	Listing    *listing.Engine
	Editor     *editor.Editor
	Dispatcher *action.Dispatcher
	Viewer     *preview.Viewer
	Session    *session.Composer
	Wizard     *wizard.Engine
	Uploader   Uploader
	Readiness  observability.ReadinessChecks

	// Authenticate overrides the JWT middleware. Nil wires the configured
	// HMAC verifier; tests inject a stub here.
	Authenticate func(http.Handler) http.Handler
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes.
	r.Get("/health", observability.HandleHealth())
	r.Get("/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		path := deps.Config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, observability.Handler())
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = JWTAuthenticator(deps.Config.Identity, deps.Config.SigningSecret())
	}

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildRequestContext(deps.Config.Identity.ClaimPaths))
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))
		r.Use(MetricsRecording(deps.Metrics))

		r.Get("/session", handleSession(deps.Session, session.Settings{
			SearchDebounceMs: deps.Config.Listing.SearchDebounce.Milliseconds(),
		}))
		r.Get("/site", handleSite(deps.Session))
		r.Get("/menu", handleMenu(deps.Session))
		r.Get("/current-user", handleCurrentUser(deps.Session))

		r.Route("/resources/{resource}", func(r chi.Router) {
			r.Get("/meta", handleMeta(deps.Resolver))
			r.Post("/list", handleList(deps.Resolver, deps.Listing))
			r.Post("/export", handleExport(deps.Resolver, deps.Listing))
			r.Get("/detail/{id}", handleDetail(deps.Resolver, deps.Viewer))
			r.Post("/form", handleForm(deps.Resolver, deps.Editor))
			r.Post("/submit", handleSubmit(deps.Resolver, deps.Editor))
			r.Post("/dispatch", handleDispatch(deps.Resolver, deps.Dispatcher))
		})

		r.Post("/file", handleUpload(deps.Uploader, deps.Config.Server.MaxUploadBytes))

		if deps.Config.Wizard.Enabled && deps.Wizard != nil {
			r.Route("/wizard/drafts", func(r chi.Router) {
				r.Post("/", handleDraftStart(deps.Wizard))
				r.Get("/{draftId}", handleDraftGet(deps.Wizard))
				r.Delete("/{draftId}", handleDraftAbandon(deps.Wizard))
				r.Put("/{draftId}/columns", handleDraftColumns(deps.Wizard))
				r.Put("/{draftId}/params", handleDraftParams(deps.Wizard))
				r.Post("/{draftId}/submit", handleDraftSubmit(deps.Wizard))
			})
		}
	})

	return r
}
