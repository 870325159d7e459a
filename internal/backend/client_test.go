package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pitabwire/curator/internal/config"
	"github.com/pitabwire/curator/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.UpstreamConfig{
		BaseURL:     srv.URL,
		Timeout:     5 * time.Second,
		ForwardAuth: true,
		Retry:       config.RetryConfig{MaxAttempts: 1},
	}
	return NewClient(cfg), srv
}

func liveRequestContext(t *testing.T) *model.RequestContext {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return &model.RequestContext{
		SubjectID:     "admin-1",
		Role:          model.RoleAdmin,
		Token:         signed,
		CorrelationID: "corr-1",
	}
}

func TestClient_Meta(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/resource/meta" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("model") != "products" {
			t.Errorf("model param = %q", r.URL.Query().Get("model"))
		}
		io.WriteString(w, `{"meta":{"name":"products","rowKey":"id","columns":[{"dataIndex":"id"},{"dataIndex":"title","valueType":"text"}]}}`)
	})

	meta, err := c.Meta(context.Background(), liveRequestContext(t), "products")
	if err != nil {
		t.Fatalf("Meta() error = %v", err)
	}
	if meta.RowKey != "id" {
		t.Errorf("RowKey = %q, want id", meta.RowKey)
	}
	if len(meta.Columns) != 2 {
		t.Errorf("Columns = %d, want 2", len(meta.Columns))
	}
}

func TestClient_Meta_failure_wraps_resource(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":12,"message":"unknown model"}`)
	})

	_, err := c.Meta(context.Background(), liveRequestContext(t), "ghosts")
	if err == nil {
		t.Fatal("Meta() should fail on nonzero code")
	}
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrMetaFetch {
		t.Errorf("error = %v, want %s envelope", err, model.ErrMetaFetch)
	}
}

func TestClient_List(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"code":0,"data":{"list":[{"id":1,"title":"a"},{"id":2,"title":"b"}],"total":17}}`)
	})

	q := model.Query{Page: 2, PageSize: 20, Keyword: "a"}
	res, err := c.List(context.Background(), liveRequestContext(t), "products", q)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 17 {
		t.Errorf("Total = %d, want 17", res.Total)
	}
	if len(res.Rows) != 2 {
		t.Errorf("Rows = %d, want 2", len(res.Rows))
	}
	if got["model"] != "products" {
		t.Errorf("request model = %v", got["model"])
	}
	query := got["query"].(map[string]any)
	if query["page"] != float64(2) || query["pageSize"] != float64(20) {
		t.Errorf("request query = %v", query)
	}
}

func TestClient_List_nonzero_code_is_error(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":5,"message":"index rebuilding"}`)
	})

	_, err := c.List(context.Background(), liveRequestContext(t), "products", model.Query{Page: 1})
	if err == nil {
		t.Fatal("List() should surface nonzero code instead of returning empty rows")
	}
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) {
		t.Fatalf("error = %T, want ErrorEnvelope", err)
	}
	if env.Code != model.ErrBackendRejected {
		t.Errorf("Code = %q, want %q", env.Code, model.ErrBackendRejected)
	}
	if env.Message != "index rebuilding" {
		t.Errorf("Message = %q", env.Message)
	}
}

func TestClient_Detail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "42" {
			t.Errorf("id param = %q", r.URL.Query().Get("id"))
		}
		io.WriteString(w, `{"data":{"item":{"id":42,"title":"widget"}}}`)
	})

	row, err := c.Detail(context.Background(), liveRequestContext(t), "products", 42)
	if err != nil {
		t.Fatalf("Detail() error = %v", err)
	}
	if row["title"] != "widget" {
		t.Errorf("row = %v", row)
	}
}

func TestClient_Update_splits_identity(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"data":{"id":42}}`)
	})

	_, err := c.Update(context.Background(), liveRequestContext(t), "products", 42, map[string]any{"title": "new"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got["id"] != float64(42) {
		t.Errorf("id = %v, want 42 at top level", got["id"])
	}
	fields := got["fields"].(map[string]any)
	if _, leaked := fields["id"]; leaked {
		t.Error("fields must not carry the identity")
	}
	if fields["title"] != "new" {
		t.Errorf("fields = %v", fields)
	}
}

func TestClient_Update_without_data_is_error(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"message":"title too long"}`)
	})

	_, err := c.Update(context.Background(), liveRequestContext(t), "products", 1, map[string]any{"title": "x"})
	if err == nil {
		t.Fatal("Update() should fail when upstream replies without data")
	}
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Message != "title too long" {
		t.Errorf("error = %v", err)
	}
}

func TestClient_Action_encodes_payload_string(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"code":0,"message":"done"}`)
	})

	msg, err := c.Action(context.Background(), liveRequestContext(t), "products", "publish", 7, map[string]any{"channel": "web"})
	if err != nil {
		t.Fatalf("Action() error = %v", err)
	}
	if msg != "done" {
		t.Errorf("message = %q", msg)
	}

	payload, ok := got["payload"].(string)
	if !ok {
		t.Fatalf("payload = %T, want JSON-encoded string", got["payload"])
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["id"] != float64(7) || decoded["channel"] != "web" {
		t.Errorf("decoded payload = %v", decoded)
	}
}

func TestClient_BatchFetchFields(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"code":0,"data":{"fields":{"1":"Alice","2":"Bob"}}}`)
	})

	fields, err := c.BatchFetchFields(context.Background(), liveRequestContext(t), "users", "id", []any{1, 2}, "name")
	if err != nil {
		t.Fatalf("BatchFetchFields() error = %v", err)
	}
	if fields["1"] != "Alice" || fields["2"] != "Bob" {
		t.Errorf("fields = %v", fields)
	}
	if got["keyField"] != "id" || got["labelField"] != "name" {
		t.Errorf("request = %v", got)
	}
}

func TestClient_Export(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":0,"data":{"url":"https://files.example.com/export.csv"}}`)
	})

	url, err := c.Export(context.Background(), liveRequestContext(t), "products", model.Query{Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if url != "https://files.example.com/export.csv" {
		t.Errorf("url = %q", url)
	}
}

func TestClient_auth_header_forwarding(t *testing.T) {
	var auth []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		io.WriteString(w, `{"code":0,"data":{}}`)
	})

	rctx := liveRequestContext(t)
	if _, err := c.Site(context.Background(), rctx); err != nil {
		t.Fatalf("Site() error = %v", err)
	}
	if auth[0] == "" {
		t.Error("live token should be forwarded as bearer header")
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	rctx.Token, _ = expired.SignedString([]byte("key"))
	if _, err := c.Site(context.Background(), rctx); err != nil {
		t.Fatalf("Site() error = %v", err)
	}
	if auth[1] != "" {
		t.Error("expired token must not be forwarded")
	}
}

func TestClient_server_error_becomes_unavailable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Detail(context.Background(), liveRequestContext(t), "products", 1)
	if err == nil {
		t.Fatal("Detail() should fail on 502")
	}
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrBackendUnavailable {
		t.Errorf("error = %v, want %s", err, model.ErrBackendUnavailable)
	}
}

func TestClient_retries_idempotent_requests(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"data":{"item":{"id":1}}}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.UpstreamConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:    3,
			BackoffInitial: time.Millisecond,
			BackoffMax:     2 * time.Millisecond,
			IdempotentOnly: true,
		},
	})

	row, err := c.Detail(context.Background(), nil, "products", 1)
	if err != nil {
		t.Fatalf("Detail() error = %v", err)
	}
	if row["id"] != float64(1) {
		t.Errorf("row = %v", row)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
}

func TestClient_does_not_retry_mutations(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.UpstreamConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:    3,
			BackoffInitial: time.Millisecond,
			IdempotentOnly: true,
		},
	})

	err := c.Delete(context.Background(), nil, "products", 1)
	if err == nil {
		t.Fatal("Delete() should fail")
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (no retry for POST)", hits)
	}
}

func TestClient_Upload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/file" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "avatar.png" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		io.WriteString(w, `{"code":0,"data":{"url":"https://files.example.com/avatar.png"}}`)
	})

	url, err := c.Upload(context.Background(), liveRequestContext(t), "avatar.png", bytes.NewReader([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://files.example.com/avatar.png" {
		t.Errorf("url = %q", url)
	}
}

func TestClient_Upload_failure_extracts_message(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":9,"msg":"file too large"}`)
	})

	_, err := c.Upload(context.Background(), liveRequestContext(t), "big.bin", bytes.NewReader([]byte("x")))
	if err == nil {
		t.Fatal("Upload() should fail on nonzero code")
	}
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrUploadFailed {
		t.Fatalf("error = %v, want %s", err, model.ErrUploadFailed)
	}
	if env.Message != "file too large" {
		t.Errorf("Message = %q", env.Message)
	}
}
