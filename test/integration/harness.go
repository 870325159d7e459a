// Package integration provides a reusable test harness for end-to-end
// testing of the curator server. It starts the full HTTP stack against a
// mock upstream resource data service, with in-memory stores and locally
// signed admin tokens.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/curator/internal/action"
	"github.com/pitabwire/curator/internal/backend"
	"github.com/pitabwire/curator/internal/config"
	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/listing"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/internal/observability"
	"github.com/pitabwire/curator/internal/preview"
	"github.com/pitabwire/curator/internal/schema"
	"github.com/pitabwire/curator/internal/session"
	"github.com/pitabwire/curator/internal/transport"
	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/internal/wizard"
	"github.com/pitabwire/curator/model"
)

const (
	harnessSecret   = "integration-test-signing-secret"
	harnessIssuer   = "https://id.curator.test"
	harnessAudience = "curator-console"
)

// TestHarness encapsulates a fully wired curator instance with a mock
// upstream for end-to-end testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server

	Upstream   *MockUpstream
	Registry   *schema.Registry
	DraftStore *wizard.MemoryStore
	Wizard     *wizard.Engine

	cfg *config.Config
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	definitions    []model.ConsoleDefinition
	handlerTimeout time.Duration
	upstreamCfg    func(*config.UpstreamConfig)
	wizardDisabled bool
}

// WithDefinitions sets the console definitions to register.
func WithDefinitions(defs ...model.ConsoleDefinition) HarnessOption {
	return func(c *harnessConfig) {
		c.definitions = defs
	}
}

// WithHandlerTimeout sets the per-request handler timeout.
func WithHandlerTimeout(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.handlerTimeout = d
	}
}

// WithUpstreamConfig edits the upstream client configuration before wiring.
func WithUpstreamConfig(edit func(*config.UpstreamConfig)) HarnessOption {
	return func(c *harnessConfig) {
		c.upstreamCfg = edit
	}
}

// WithoutWizard disables the setup wizard routes.
func WithoutWizard() HarnessOption {
	return func(c *harnessConfig) {
		c.wizardDisabled = true
	}
}

// NewTestHarness creates and starts a full curator test instance. The server
// and the mock upstream are cleaned up when the test completes.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{
		handlerTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(hc)
	}
	if len(hc.definitions) == 0 {
		hc.definitions = []model.ConsoleDefinition{defaultConsoleDefinition()}
	}

	h := &TestHarness{
		t:        t,
		Upstream: NewMockUpstream(t),
	}

	cfg := config.Defaults()
	cfg.Server.HandlerTimeout = hc.handlerTimeout
	cfg.Server.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Identity.Issuer = harnessIssuer
	cfg.Identity.Audience = harnessAudience
	cfg.Identity.SigningKey = harnessSecret
	cfg.Upstream.BaseURL = h.Upstream.URL()
	cfg.Upstream.Timeout = 5 * time.Second
	cfg.Upstream.Retry.MaxAttempts = 2
	cfg.Upstream.Retry.BackoffInitial = 5 * time.Millisecond
	cfg.Upstream.Retry.BackoffMax = 20 * time.Millisecond
	cfg.Wizard.Enabled = !hc.wizardDisabled
	if hc.upstreamCfg != nil {
		hc.upstreamCfg(&cfg.Upstream)
	}
	h.cfg = cfg

	h.Registry = schema.NewRegistry(hc.definitions)

	client := backend.NewClient(cfg.Upstream)
	types := valuetype.NewRegistry()

	resolver := metadata.NewResolver(client, h.Registry, cfg.Metadata.Cache.TTL, cfg.Metadata.Cache.MaxEntries)
	enricher := listing.NewEnricher(client, listing.NewMemoryLabelCache(cfg.Lookup.Cache.TTL, cfg.Lookup.Cache.MaxEntries))
	engine := listing.NewEngine(client, enricher, cfg.Listing)
	ed := editor.NewEditor(client, client, types)
	dispatcher := action.NewDispatcher(client, ed)
	viewer := preview.NewViewer(client, enricher, types)
	composer := session.NewComposer(h.Registry, client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	h.DraftStore = wizard.NewMemoryStore()
	h.Wizard = wizard.NewEngine(h.DraftStore, types, client, time.Hour)

	readiness := observability.ReadinessChecks{
		DefinitionsLoaded: func() bool { return true },
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:     cfg,
		Logger:     zap.NewNop(),
		Resolver:   resolver,
		Listing:    engine,
		Editor:     ed,
		Dispatcher: dispatcher,
		Viewer:     viewer,
		Session:    composer,
		Wizard:     h.Wizard,
		Uploader:   client,
		Readiness:  readiness,
	})

	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)

	return h
}

func defaultConsoleDefinition() model.ConsoleDefinition {
	return model.ConsoleDefinition{
		Site: model.SiteDefinition{Title: "Curator Test Console"},
		Menu: []model.MenuItemDefinition{
			{Path: "/products", Name: "Products", Section: model.SectionBusiness},
			{Path: "/orders", Name: "Orders", Section: model.SectionBusiness},
			{Path: "/admins", Name: "Admins", Section: model.SectionUsers},
		},
	}
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// TestClaims holds the configurable claims for generated admin tokens.
type TestClaims struct {
	SubjectID string
	Name      string
	Email     string
	Role      model.Role
	Extra     map[string]any
}

// SuperClaims returns claims for a super admin.
func SuperClaims() TestClaims {
	return TestClaims{SubjectID: "super-1", Name: "Sam Super", Email: "sam@curator.test", Role: model.RoleSuper}
}

// ObserverClaims returns claims for a read-only admin.
func ObserverClaims() TestClaims {
	return TestClaims{SubjectID: "observer-1", Name: "Olly Observer", Email: "olly@curator.test", Role: model.RoleObserver}
}

// GenerateToken creates a valid signed token with the given claims.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	return h.signToken(claims, time.Now().Add(time.Hour))
}

// GenerateExpiredToken creates a token that expired in the past.
func (h *TestHarness) GenerateExpiredToken(claims TestClaims) string {
	return h.signToken(claims, time.Now().Add(-time.Hour))
}

func (h *TestHarness) signToken(claims TestClaims, expiry time.Time) string {
	h.t.Helper()

	mapClaims := jwt.MapClaims{
		"iss":    harnessIssuer,
		"aud":    harnessAudience,
		"iat":    jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		"exp":    jwt.NewNumericDate(expiry),
		"sub":    claims.SubjectID,
		"name":   claims.Name,
		"email":  claims.Email,
		"access": string(claims.Role),
	}
	for k, v := range claims.Extra {
		mapClaims[k] = v
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString([]byte(harnessSecret))
	if err != nil {
		h.t.Fatalf("sign token: %v", err)
	}
	return signed
}

// GET issues a GET request with the given bearer token.
func (h *TestHarness) GET(path, token string) *http.Response {
	return h.do(http.MethodGet, path, token, nil)
}

// POST issues a POST request with a JSON body.
func (h *TestHarness) POST(path, token string, body any) *http.Response {
	return h.do(http.MethodPost, path, token, body)
}

// PUT issues a PUT request with a JSON body.
func (h *TestHarness) PUT(path, token string, body any) *http.Response {
	return h.do(http.MethodPut, path, token, body)
}

// DELETE issues a DELETE request.
func (h *TestHarness) DELETE(path, token string) *http.Response {
	return h.do(http.MethodDelete, path, token, nil)
}

func (h *TestHarness) do(method, path, token string, body any) *http.Response {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		h.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.server.Client().Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	h.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ParseJSON decodes the response body into dst.
func (h *TestHarness) ParseJSON(resp *http.Response, dst any) {
	h.t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		h.t.Fatalf("decode response body: %v", err)
	}
}

// ErrorCode extracts the error envelope code from an error response.
func (h *TestHarness) ErrorCode(resp *http.Response) string {
	h.t.Helper()
	var body struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	h.ParseJSON(resp, &body)
	if body.Error == nil {
		h.t.Fatal("response carried no error envelope")
	}
	return body.Error.Code
}
