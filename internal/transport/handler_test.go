package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pitabwire/curator/internal/action"
	"github.com/pitabwire/curator/internal/config"
	"github.com/pitabwire/curator/internal/editor"
	"github.com/pitabwire/curator/internal/listing"
	"github.com/pitabwire/curator/internal/metadata"
	"github.com/pitabwire/curator/internal/preview"
	"github.com/pitabwire/curator/internal/schema"
	"github.com/pitabwire/curator/internal/session"
	"github.com/pitabwire/curator/internal/valuetype"
	"github.com/pitabwire/curator/internal/wizard"
	"github.com/pitabwire/curator/model"
)

// stubBackend is a canned resource data service. It satisfies every upstream
// interface the handler stack consumes and counts mutating calls so tests can
// assert that gated requests never reach it.
type stubBackend struct {
	meta       model.ResourceMeta
	metaErr    error
	listResult model.ListResult
	listErr    error
	detailRow  model.Row
	exportURL  string
	uploadURL  string
	user       model.CurrentUser

	creates   int
	updates   int
	deletes   int
	actions   int
	uploads   int
	published []model.ResourceMeta
}

func (s *stubBackend) Meta(_ context.Context, _ *model.RequestContext, _ string) (model.ResourceMeta, error) {
	if s.metaErr != nil {
		return model.ResourceMeta{}, s.metaErr
	}
	return s.meta, nil
}

func (s *stubBackend) List(_ context.Context, _ *model.RequestContext, _ string, _ model.Query) (model.ListResult, error) {
	if s.listErr != nil {
		return model.ListResult{}, s.listErr
	}
	return s.listResult, nil
}

func (s *stubBackend) Export(_ context.Context, _ *model.RequestContext, _ string, _ model.Query) (string, error) {
	return s.exportURL, nil
}

func (s *stubBackend) Detail(_ context.Context, _ *model.RequestContext, _ string, _ any) (model.Row, error) {
	if s.detailRow == nil {
		return nil, model.NewNotFoundError("row not found")
	}
	return s.detailRow, nil
}

func (s *stubBackend) Create(_ context.Context, _ *model.RequestContext, _ string, fields map[string]any) (json.RawMessage, error) {
	s.creates++
	return json.RawMessage(`{"id":99}`), nil
}

func (s *stubBackend) Update(_ context.Context, _ *model.RequestContext, _ string, _ any, _ map[string]any) (json.RawMessage, error) {
	s.updates++
	return json.RawMessage(`{"id":1}`), nil
}

func (s *stubBackend) Delete(_ context.Context, _ *model.RequestContext, _ string, _ any) error {
	s.deletes++
	return nil
}

func (s *stubBackend) BatchFetchFields(_ context.Context, _ *model.RequestContext, _, _ string, _ []any, _ string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *stubBackend) Action(_ context.Context, _ *model.RequestContext, _, _ string, _ any, _ map[string]any) (string, error) {
	s.actions++
	return "done", nil
}

func (s *stubBackend) Upload(_ context.Context, _ *model.RequestContext, _ string, _ io.Reader) (string, error) {
	s.uploads++
	return s.uploadURL, nil
}

func (s *stubBackend) Site(_ context.Context, _ *model.RequestContext) (model.SiteDefinition, error) {
	return model.SiteDefinition{}, nil
}

func (s *stubBackend) Menu(_ context.Context, _ *model.RequestContext) ([]model.MenuItemDefinition, error) {
	return nil, nil
}

func (s *stubBackend) CurrentUser(_ context.Context, _ *model.RequestContext) (model.CurrentUser, error) {
	return s.user, nil
}

func (s *stubBackend) Publish(_ context.Context, _ *model.RequestContext, meta model.ResourceMeta) error {
	s.published = append(s.published, meta)
	return nil
}

func productMeta() model.ResourceMeta {
	return model.ResourceMeta{
		Name:   "products",
		Title:  "Products",
		RowKey: "id",
		Columns: []model.ColumnDescriptor{
			{DataIndex: "id", ValueType: model.TypeDigit, HideInForm: true},
			{DataIndex: "title", ValueType: model.TypeText, Rules: []model.ValidationRule{{Required: true}}},
			{DataIndex: "status", ValueType: model.TypeSelect, ValueEnum: map[string]string{"1": "Active"}},
		},
		Creatable:  true,
		Updatable:  true,
		Deleteable: true,
		Copyable:   true,
		Exportable: true,
	}
}

// asRole stands in for the JWT middleware, injecting claims for the role.
func asRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithClaims(r.Context(), map[string]any{
				"sub":    "user-1",
				"name":   "Ada",
				"email":  "ada@example.com",
				"access": string(role),
			})
			ctx = WithRawToken(ctx, "raw-token")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(backend *stubBackend, role model.Role) http.Handler {
	cfg := handlerTestConfig()
	registry := schema.NewRegistry([]model.ConsoleDefinition{{
		Site: model.SiteDefinition{Title: "Test Console"},
		Menu: []model.MenuItemDefinition{
			{Path: "/products", Name: "Products", Section: model.SectionBusiness},
			{Path: "/users", Name: "Users", Section: model.SectionUsers},
		},
	}})

	types := valuetype.NewRegistry()
	resolver := metadata.NewResolver(backend, registry, time.Minute, 100)
	enricher := listing.NewEnricher(backend, nil)
	engine := listing.NewEngine(backend, enricher, cfg.Listing)
	ed := editor.NewEditor(backend, backend, types)
	dispatcher := action.NewDispatcher(backend, ed)
	viewer := preview.NewViewer(backend, enricher, types)
	composer := session.NewComposer(registry, backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wiz := wizard.NewEngine(wizard.NewMemoryStore(), types, backend, time.Hour)

	deps := Dependencies{
		Config:       cfg,
		Resolver:     resolver,
		Listing:      engine,
		Editor:       ed,
		Dispatcher:   dispatcher,
		Viewer:       viewer,
		Session:      composer,
		Wizard:       wiz,
		Uploader:     backend,
		Authenticate: asRole(role),
	}
	deps.Readiness.DefinitionsLoaded = func() bool { return true }
	return NewRouter(deps)
}

func handlerTestConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Server.HandlerTimeout = 5 * time.Second
	cfg.Observability.Metrics.Enabled = false
	return cfg
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	decodeBody(t, w, &body)
	return body.Error.Code
}

// --- Meta handler ---

func TestHandleMeta_superSeesAllOperations(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "GET", "/api/admin/resources/products/meta", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Meta       model.ResourceMeta   `json:"meta"`
		Operations []metadata.Operation `json:"operations"`
	}
	decodeBody(t, w, &body)

	if body.Meta.Name != "products" {
		t.Errorf("meta name = %q", body.Meta.Name)
	}
	names := make([]string, 0, len(body.Operations))
	for _, op := range body.Operations {
		names = append(names, op.Name)
	}
	want := []string{"detail", "create", "copy", "delete", "update"}
	if len(names) != len(want) {
		t.Fatalf("operations = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("operations[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestHandleMeta_observerSeesDetailOnly(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleObserver)

	w := doJSON(t, r, "GET", "/api/admin/resources/products/meta", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Operations []metadata.Operation `json:"operations"`
	}
	decodeBody(t, w, &body)
	if len(body.Operations) != 1 || body.Operations[0].Name != "detail" {
		t.Errorf("operations = %+v, want detail only", body.Operations)
	}
}

func TestHandleMeta_upstreamFailure(t *testing.T) {
	backend := &stubBackend{metaErr: model.NewMetaFetchError("products", io.ErrUnexpectedEOF)}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "GET", "/api/admin/resources/products/meta", nil)
	if w.Code != 502 {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if code := errorCode(t, w); code != model.ErrMetaFetch {
		t.Errorf("code = %q", code)
	}
}

// --- List handler ---

func TestHandleList_returnsPage(t *testing.T) {
	backend := &stubBackend{
		meta: productMeta(),
		listResult: model.ListResult{
			Rows:  []model.Row{{"id": 1, "title": "Widget"}},
			Total: 1,
		},
	}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/list", map[string]any{
		"page": 1, "pageSize": 20,
	})
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var page listing.PageResult
	decodeBody(t, w, &page)
	if page.Total != 1 || len(page.Rows) != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestHandleList_backendRejection(t *testing.T) {
	backend := &stubBackend{
		meta:    productMeta(),
		listErr: model.NewBackendRejectedError(7, "index offline"),
	}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/list", map[string]any{"page": 1})
	if w.Code != 422 {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if code := errorCode(t, w); code != model.ErrBackendRejected {
		t.Errorf("code = %q", code)
	}
}

func TestHandleList_invalidBody(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	req := httptest.NewRequest("POST", "/api/admin/resources/products/list", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleExport_returnsURL(t *testing.T) {
	backend := &stubBackend{meta: productMeta(), exportURL: "https://files.example.com/export.xlsx"}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/export", map[string]any{
		"page": 1, "selectedIds": []any{1, 2},
	})
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var result model.ExportResult
	decodeBody(t, w, &result)
	if result.URL != "https://files.example.com/export.xlsx" {
		t.Errorf("url = %q", result.URL)
	}
}

// --- Detail handler ---

func TestHandleDetail_returnsProjection(t *testing.T) {
	backend := &stubBackend{
		meta:      productMeta(),
		detailRow: model.Row{"id": 1, "title": "Widget", "status": "1"},
	}
	r := newTestRouter(backend, model.RoleObserver)

	w := doJSON(t, r, "GET", "/api/admin/resources/products/detail/1", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var detail preview.Detail
	decodeBody(t, w, &detail)
	if detail.Resource != "products" {
		t.Errorf("resource = %q", detail.Resource)
	}
	if len(detail.Items) == 0 {
		t.Error("expected rendered items")
	}
}

func TestHandleDetail_notFound(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "GET", "/api/admin/resources/products/detail/404", nil)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

// --- Editor handlers ---

func TestHandleForm_createMode(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/form", map[string]any{
		"mode": "create", "defaults": map[string]any{"status": "1"},
	})
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var form editor.Form
	decodeBody(t, w, &form)
	if form.Mode != editor.ModeCreate {
		t.Errorf("mode = %q", form.Mode)
	}
	// The hidden id column must not produce a form field.
	for _, f := range form.Fields {
		if f.Column.DataIndex == "id" {
			t.Error("id should be hidden in the form")
		}
	}
}

func TestHandleSubmit_createSucceeds(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/submit", map[string]any{
		"mode":      "create",
		"values":    map[string]any{"title": "Widget", "status": "1"},
		"confirmed": true,
	})
	if w.Code != 201 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if backend.creates != 1 {
		t.Errorf("creates = %d, want 1", backend.creates)
	}
}

func TestHandleSubmit_writeDeniedMakesNoCall(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleObserver)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/submit", map[string]any{
		"mode":      "create",
		"values":    map[string]any{"title": "Widget"},
		"confirmed": true,
	})
	if w.Code != 403 {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := errorCode(t, w); code != model.ErrWriteDenied {
		t.Errorf("code = %q", code)
	}
	if backend.creates != 0 {
		t.Errorf("creates = %d, want 0", backend.creates)
	}
}

func TestHandleSubmit_validationFailure(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/submit", map[string]any{
		"mode":      "create",
		"values":    map[string]any{"status": "1"},
		"confirmed": true,
	})
	if w.Code != 422 {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if backend.creates != 0 {
		t.Errorf("creates = %d, want 0", backend.creates)
	}
}

// --- Dispatch handler ---

func TestHandleDispatch_deleteReloads(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/dispatch", map[string]any{
		"name": "delete", "targets": []any{1}, "confirmed": true,
	})
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var result model.DispatchResult
	decodeBody(t, w, &result)
	if !result.Reload || !result.ClearSelection {
		t.Errorf("result = %+v, want reload and clear selection", result)
	}
	if backend.deletes != 1 {
		t.Errorf("deletes = %d, want 1", backend.deletes)
	}
}

func TestHandleDispatch_unconfirmedDeleteMakesNoCall(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/resources/products/dispatch", map[string]any{
		"name": "delete", "targets": []any{1}, "confirmed": false,
	})
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if backend.deletes != 0 {
		t.Errorf("deletes = %d, want 0", backend.deletes)
	}
}

// --- Upload handler ---

func multipartBody(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("file-bytes"))
	mw.Close()
	return buf, mw.FormDataContentType()
}

func TestHandleUpload_success(t *testing.T) {
	backend := &stubBackend{meta: productMeta(), uploadURL: "https://files.example.com/a.png"}
	r := newTestRouter(backend, model.RoleSuper)

	body, contentType := multipartBody(t, "avatar.png")
	req := httptest.NewRequest("POST", "/api/admin/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["url"] != "https://files.example.com/a.png" {
		t.Errorf("url = %q", resp["url"])
	}
	if backend.uploads != 1 {
		t.Errorf("uploads = %d, want 1", backend.uploads)
	}
}

func TestHandleUpload_disallowedExtension(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	body, contentType := multipartBody(t, "payload.exe")
	req := httptest.NewRequest("POST", "/api/admin/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if backend.uploads != 0 {
		t.Errorf("uploads = %d, want 0", backend.uploads)
	}
}

func TestHandleUpload_writeDenied(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleObserver)

	body, contentType := multipartBody(t, "avatar.png")
	req := httptest.NewRequest("POST", "/api/admin/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 403 {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if backend.uploads != 0 {
		t.Errorf("uploads = %d, want 0", backend.uploads)
	}
}

// --- Session handlers ---

func TestHandleSession_composedProfile(t *testing.T) {
	backend := &stubBackend{
		meta: productMeta(),
		user: model.CurrentUser{Name: "Upstream Ada", Access: model.RoleSuper, UserID: "u-1"},
	}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "GET", "/api/admin/session", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var profile session.Profile
	decodeBody(t, w, &profile)
	if profile.Site.Title != "Test Console" {
		t.Errorf("site title = %q, local definition should win", profile.Site.Title)
	}
	if profile.User.Name != "Upstream Ada" {
		t.Errorf("user = %+v, upstream user should be preferred", profile.User)
	}
	if !profile.Capabilities.CanWrite {
		t.Error("super should have write capability")
	}
	if profile.Settings.SearchDebounceMs != 300 {
		t.Errorf("settings.searchDebounceMs = %d, want the configured debounce", profile.Settings.SearchDebounceMs)
	}
}

func TestHandleMenu_filteredByRole(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleCustomerService)

	w := doJSON(t, r, "GET", "/api/admin/menu", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Menu []model.MenuItemDefinition `json:"menu"`
	}
	decodeBody(t, w, &body)
	for _, item := range body.Menu {
		if item.Path == "/products" {
			t.Error("customer service should not see the business section")
		}
	}
}

// --- Wizard handlers ---

func TestWizardFlow_overHTTP(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	// Start a draft.
	w := doJSON(t, r, "POST", "/api/admin/wizard/drafts/", map[string]any{
		"resource": "articles", "title": "Articles",
	})
	if w.Code != 201 {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var draft wizard.Draft
	decodeBody(t, w, &draft)
	if draft.ID == "" {
		t.Fatal("draft should have an id")
	}

	// Stage columns.
	w = doJSON(t, r, "PUT", "/api/admin/wizard/drafts/"+draft.ID+"/columns", map[string]any{
		"columns": []map[string]any{
			{"dataIndex": "id", "valueType": "digit"},
			{"dataIndex": "name", "valueType": "text"},
		},
	})
	if w.Code != 200 {
		t.Fatalf("columns status = %d: %s", w.Code, w.Body.String())
	}

	// Stage params (none needed for these types).
	w = doJSON(t, r, "PUT", "/api/admin/wizard/drafts/"+draft.ID+"/params", map[string]any{
		"params": map[string]any{},
	})
	if w.Code != 200 {
		t.Fatalf("params status = %d: %s", w.Code, w.Body.String())
	}

	// Submit with confirmation.
	w = doJSON(t, r, "POST", "/api/admin/wizard/drafts/"+draft.ID+"/submit", map[string]any{
		"confirmed": true,
	})
	if w.Code != 200 {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}
	if len(backend.published) != 1 {
		t.Fatalf("published = %d, want 1", len(backend.published))
	}
	if backend.published[0].Name != "articles" {
		t.Errorf("published resource = %q", backend.published[0].Name)
	}
}

func TestWizard_skippingStepOverHTTP(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleSuper)

	w := doJSON(t, r, "POST", "/api/admin/wizard/drafts/", map[string]any{"resource": "articles"})
	if w.Code != 201 {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var draft wizard.Draft
	decodeBody(t, w, &draft)

	// Params before columns is a skipped stage.
	w = doJSON(t, r, "PUT", "/api/admin/wizard/drafts/"+draft.ID+"/params", map[string]any{
		"params": map[string]any{},
	})
	if w.Code != 409 {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if code := errorCode(t, w); code != model.ErrInvalidStep {
		t.Errorf("code = %q", code)
	}
}

func TestWizard_writeGateOverHTTP(t *testing.T) {
	backend := &stubBackend{meta: productMeta()}
	r := newTestRouter(backend, model.RoleObserver)

	w := doJSON(t, r, "POST", "/api/admin/wizard/drafts/", map[string]any{"resource": "articles"})
	if w.Code != 403 {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
