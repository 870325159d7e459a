package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"
)

// MockUpstream is a configurable HTTP test server simulating the resource
// data service. It serves the JSON envelope protocol, holds per-model
// fixtures, and records every received request for later assertion.
type MockUpstream struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	metas    map[string]map[string]any
	rows     map[string][]map[string]any
	nextID   int
	site     map[string]any
	menu     []map[string]any
	admin    map[string]any
	fileURL  string
	recorded map[string][]*RecordedCall
	failures map[string][]*plannedFailure
}

// RecordedCall captures one request received by the mock upstream.
type RecordedCall struct {
	Method     string
	Path       string
	Query      map[string]string
	Headers    http.Header
	Body       map[string]any
	ReceivedAt time.Time
}

type plannedFailure struct {
	httpStatus int // nonzero: raw HTTP failure
	code       int // nonzero with httpStatus 0: envelope rejection
	message    string
	delay      time.Duration
}

// NewMockUpstream creates a mock upstream and starts its HTTP server.
func NewMockUpstream(t *testing.T) *MockUpstream {
	t.Helper()

	mu := &MockUpstream{
		t:        t,
		metas:    make(map[string]map[string]any),
		rows:     make(map[string][]map[string]any),
		nextID:   100,
		fileURL:  "https://files.upstream.test/stored/object",
		recorded: make(map[string][]*RecordedCall),
		failures: make(map[string][]*plannedFailure),
	}
	mu.server = httptest.NewServer(http.HandlerFunc(mu.handle))
	t.Cleanup(mu.server.Close)
	return mu
}

// URL returns the base URL of the mock server.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// SeedMeta installs a resource schema fixture. The meta map is served
// verbatim as the upstream schema payload.
func (m *MockUpstream) SeedMeta(modelName string, meta map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas[modelName] = meta
}

// SeedRows installs row fixtures for a model.
func (m *MockUpstream) SeedRows(modelName string, rows ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[modelName] = append(m.rows[modelName], rows...)
}

// SeedChrome installs site, menu, and current-user fixtures.
func (m *MockUpstream) SeedChrome(site map[string]any, menu []map[string]any, admin map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.site = site
	m.menu = menu
	m.admin = admin
}

// FailNext queues a raw HTTP failure for the named endpoint. Every queued
// failure consumes one request; each retry attempt burns one entry.
func (m *MockUpstream) FailNext(endpoint string, status int, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < times; i++ {
		m.failures[endpoint] = append(m.failures[endpoint], &plannedFailure{httpStatus: status})
	}
}

// RejectNext queues an envelope-level rejection for the named endpoint.
func (m *MockUpstream) RejectNext(endpoint string, code int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[endpoint] = append(m.failures[endpoint], &plannedFailure{code: code, message: message})
}

// DelayNext queues a slow response for the named endpoint.
func (m *MockUpstream) DelayNext(endpoint string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[endpoint] = append(m.failures[endpoint], &plannedFailure{delay: d})
}

// Recorded returns all calls received for the named endpoint, in order.
func (m *MockUpstream) Recorded(endpoint string) []*RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*RecordedCall, len(m.recorded[endpoint]))
	copy(out, m.recorded[endpoint])
	return out
}

// CallCount returns the number of calls received for the named endpoint.
func (m *MockUpstream) CallCount(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recorded[endpoint])
}

func (m *MockUpstream) handle(w http.ResponseWriter, r *http.Request) {
	endpoint := path.Base(r.URL.Path)

	call := &RecordedCall{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      make(map[string]string),
		Headers:    r.Header.Clone(),
		ReceivedAt: time.Now(),
	}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			call.Query[k] = vs[0]
		}
	}
	if r.Body != nil {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			call.Body = body
		}
	}

	m.mu.Lock()
	m.recorded[endpoint] = append(m.recorded[endpoint], call)
	var planned *plannedFailure
	if queue := m.failures[endpoint]; len(queue) > 0 {
		planned = queue[0]
		m.failures[endpoint] = queue[1:]
	}
	m.mu.Unlock()

	if planned != nil {
		if planned.delay > 0 {
			time.Sleep(planned.delay)
		}
		if planned.httpStatus != 0 {
			http.Error(w, "upstream failure", planned.httpStatus)
			return
		}
		if planned.code != 0 {
			m.reply(w, map[string]any{"code": planned.code, "message": planned.message})
			return
		}
	}

	switch endpoint {
	case "meta":
		m.handleMeta(w, call)
	case "list":
		m.handleList(w, call)
	case "detail":
		m.handleDetail(w, call)
	case "create":
		m.handleCreate(w, call)
	case "update":
		m.handleUpdate(w, call)
	case "delete":
		m.handleDelete(w, call)
	case "batch-fetch-fields":
		m.handleBatchFetchFields(w, call)
	case "action":
		m.reply(w, map[string]any{"code": 0, "message": "action completed"})
	case "export":
		m.reply(w, map[string]any{"code": 0, "data": map[string]any{"url": "https://files.upstream.test/export.xlsx"}})
	case "meta-create":
		m.handleMetaCreate(w, call)
	case "site":
		m.reply(w, map[string]any{"code": 0, "data": m.snapshotSite()})
	case "menu":
		m.reply(w, map[string]any{"code": 0, "data": m.snapshotMenu()})
	case "current-user":
		m.reply(w, map[string]any{"code": 0, "data": map[string]any{"admin": m.snapshotAdmin()}})
	case "file":
		m.reply(w, map[string]any{"code": 0, "data": map[string]any{"url": m.fileURL}})
	default:
		w.WriteHeader(http.StatusNotFound)
		m.reply(w, map[string]any{"code": 404, "message": fmt.Sprintf("no such endpoint %s", r.URL.Path)})
	}
}

func (m *MockUpstream) handleMeta(w http.ResponseWriter, call *RecordedCall) {
	m.mu.Lock()
	meta, ok := m.metas[call.Query["model"]]
	m.mu.Unlock()
	if !ok {
		m.reply(w, map[string]any{"code": 404, "message": "unknown model"})
		return
	}
	m.reply(w, map[string]any{"code": 0, "data": map[string]any{"meta": meta}})
}

func (m *MockUpstream) handleList(w http.ResponseWriter, call *RecordedCall) {
	modelName, _ := call.Body["model"].(string)
	m.mu.Lock()
	rows := append([]map[string]any(nil), m.rows[modelName]...)
	m.mu.Unlock()
	m.reply(w, map[string]any{"code": 0, "data": map[string]any{"list": rows, "total": len(rows)}})
}

func (m *MockUpstream) handleDetail(w http.ResponseWriter, call *RecordedCall) {
	modelName := call.Query["model"]
	id := call.Query["id"]

	m.mu.Lock()
	row := m.findRowLocked(modelName, id)
	m.mu.Unlock()

	m.reply(w, map[string]any{"code": 0, "data": map[string]any{"item": row}})
}

func (m *MockUpstream) handleCreate(w http.ResponseWriter, call *RecordedCall) {
	modelName, _ := call.Body["model"].(string)
	fields, _ := call.Body["fields"].(map[string]any)

	m.mu.Lock()
	m.nextID++
	row := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		row[k] = v
	}
	row[m.rowKeyLocked(modelName)] = m.nextID
	m.rows[modelName] = append(m.rows[modelName], row)
	m.mu.Unlock()

	m.reply(w, map[string]any{"code": 0, "data": row})
}

func (m *MockUpstream) handleUpdate(w http.ResponseWriter, call *RecordedCall) {
	modelName, _ := call.Body["model"].(string)
	fields, _ := call.Body["fields"].(map[string]any)
	id := fmt.Sprint(call.Body["id"])

	m.mu.Lock()
	row := m.findRowLocked(modelName, id)
	if row != nil {
		for k, v := range fields {
			row[k] = v
		}
	}
	m.mu.Unlock()

	if row == nil {
		m.reply(w, map[string]any{"code": 404, "message": "row not found"})
		return
	}
	m.reply(w, map[string]any{"code": 0, "data": row})
}

func (m *MockUpstream) handleDelete(w http.ResponseWriter, call *RecordedCall) {
	modelName, _ := call.Body["model"].(string)
	id := fmt.Sprint(call.Body["id"])

	m.mu.Lock()
	key := m.rowKeyLocked(modelName)
	kept := m.rows[modelName][:0]
	for _, row := range m.rows[modelName] {
		if fmt.Sprint(row[key]) != id {
			kept = append(kept, row)
		}
	}
	m.rows[modelName] = kept
	m.mu.Unlock()

	m.reply(w, map[string]any{"code": 0})
}

func (m *MockUpstream) handleBatchFetchFields(w http.ResponseWriter, call *RecordedCall) {
	modelName, _ := call.Body["model"].(string)
	keyField, _ := call.Body["keyField"].(string)
	labelField, _ := call.Body["labelField"].(string)
	keys, _ := call.Body["keys"].([]any)

	m.mu.Lock()
	fields := make(map[string]string, len(keys))
	for _, key := range keys {
		for _, row := range m.rows[modelName] {
			if fmt.Sprint(row[keyField]) == fmt.Sprint(key) {
				fields[fmt.Sprint(key)] = fmt.Sprint(row[labelField])
			}
		}
	}
	m.mu.Unlock()

	m.reply(w, map[string]any{"code": 0, "data": map[string]any{"fields": fields}})
}

func (m *MockUpstream) handleMetaCreate(w http.ResponseWriter, call *RecordedCall) {
	modelName, _ := call.Body["model"].(string)
	meta, _ := call.Body["meta"].(map[string]any)

	m.mu.Lock()
	m.metas[modelName] = meta
	m.mu.Unlock()

	m.reply(w, map[string]any{"code": 0})
}

func (m *MockUpstream) findRowLocked(modelName, id string) map[string]any {
	key := m.rowKeyLocked(modelName)
	for _, row := range m.rows[modelName] {
		if fmt.Sprint(row[key]) == id {
			return row
		}
	}
	return nil
}

func (m *MockUpstream) rowKeyLocked(modelName string) string {
	if meta, ok := m.metas[modelName]; ok {
		if rk, ok := meta["rowKey"].(string); ok && rk != "" {
			return rk
		}
	}
	return "id"
}

func (m *MockUpstream) snapshotSite() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.site
}

func (m *MockUpstream) snapshotMenu() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.menu
}

func (m *MockUpstream) snapshotAdmin() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.admin == nil {
		return map[string]any{}
	}
	return m.admin
}

func (m *MockUpstream) reply(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
