// Package backend is the HTTP client for the upstream resource data service.
// It speaks the fixed admin resource protocol: JSON envelopes where a numeric
// code of zero signals success and nonzero carries a human-readable message.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pitabwire/curator/internal/config"
	"github.com/pitabwire/curator/model"
)

// Client executes calls against the upstream resource data service on behalf
// of an authenticated console request.
type Client struct {
	baseURL     string
	fileBaseURL string
	cfg         config.UpstreamConfig
	http        *http.Client
}

// NewClient creates a Client from upstream configuration.
func NewClient(cfg config.UpstreamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 32
	}
	transport := &http.Transport{
		MaxIdleConns:        maxIdle,
		MaxConnsPerHost:     maxIdle,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	fileBase := cfg.FileBaseURL
	if fileBase == "" {
		fileBase = cfg.BaseURL
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		fileBaseURL: strings.TrimRight(fileBase, "/"),
		cfg:         cfg,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// envelope is the upstream response wrapper. A nil Code is treated as success:
// older endpoints omit it entirely and reply with data alone.
type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

func (e *envelope) ok() bool {
	if e.Success != nil && !*e.Success {
		return false
	}
	return e.Code == nil || *e.Code == 0
}

func (e *envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

func (e *envelope) rejection() error {
	code := -1
	if e.Code != nil {
		code = *e.Code
	}
	return model.NewBackendRejectedError(code, e.message())
}

// Meta fetches the resource schema for the named model.
func (c *Client) Meta(ctx context.Context, rctx *model.RequestContext, modelName string) (model.ResourceMeta, error) {
	var out struct {
		Meta model.ResourceMeta `json:"meta"`
	}
	env, err := c.get(ctx, rctx, "/api/admin/resource/meta", url.Values{"model": {modelName}})
	if err != nil {
		return model.ResourceMeta{}, model.NewMetaFetchError(modelName, err)
	}
	if !env.ok() {
		return model.ResourceMeta{}, model.NewMetaFetchError(modelName, env.rejection())
	}

	// Some deployments nest meta under data, others return it at top level.
	raw := env.Data
	if len(raw) == 0 {
		raw = env.body
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.ResourceMeta{}, model.NewMetaFetchError(modelName, err)
	}
	if out.Meta.Name == "" {
		out.Meta.Name = modelName
	}
	return out.Meta, nil
}

// List queries rows for the named model. A nonzero upstream code is surfaced
// as a backend rejection rather than degraded to an empty result.
func (c *Client) List(ctx context.Context, rctx *model.RequestContext, modelName string, q model.Query) (model.ListResult, error) {
	env, err := c.post(ctx, rctx, "/api/admin/resource/list", map[string]any{
		"model": modelName,
		"query": q,
	})
	if err != nil {
		return model.ListResult{}, err
	}
	if !env.ok() {
		return model.ListResult{}, env.rejection()
	}

	var out struct {
		List  []model.Row `json:"list"`
		Total int64       `json:"total"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return model.ListResult{}, fmt.Errorf("backend: decoding list response: %w", err)
		}
	}
	return model.ListResult{Rows: out.List, Total: out.Total}, nil
}

// Detail fetches a single row by identity.
func (c *Client) Detail(ctx context.Context, rctx *model.RequestContext, modelName string, id any) (model.Row, error) {
	env, err := c.get(ctx, rctx, "/api/admin/resource/detail", url.Values{
		"model": {modelName},
		"id":    {fmt.Sprint(id)},
	})
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, env.rejection()
	}

	var out struct {
		Item model.Row `json:"item"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("backend: decoding detail response: %w", err)
	}
	if out.Item == nil {
		return nil, model.NewNotFoundError(fmt.Sprintf("%s %v not found", modelName, id))
	}
	return out.Item, nil
}

// Create submits a new row and returns whatever the upstream echoes back.
func (c *Client) Create(ctx context.Context, rctx *model.RequestContext, modelName string, fields map[string]any) (json.RawMessage, error) {
	env, err := c.post(ctx, rctx, "/api/admin/resource/create", map[string]any{
		"model":  modelName,
		"fields": fields,
	})
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, env.rejection()
	}
	return env.Data, nil
}

// Update submits changed fields for an existing row. The identity travels
// separately from the field map.
func (c *Client) Update(ctx context.Context, rctx *model.RequestContext, modelName string, id any, fields map[string]any) (json.RawMessage, error) {
	env, err := c.post(ctx, rctx, "/api/admin/resource/update", map[string]any{
		"id":     id,
		"model":  modelName,
		"fields": fields,
	})
	if err != nil {
		return nil, err
	}
	if !env.ok() || len(env.Data) == 0 {
		return nil, env.rejection()
	}
	return env.Data, nil
}

// Delete removes a single row by identity.
func (c *Client) Delete(ctx context.Context, rctx *model.RequestContext, modelName string, id any) error {
	env, err := c.post(ctx, rctx, "/api/admin/resource/delete", map[string]any{
		"id":    id,
		"model": modelName,
	})
	if err != nil {
		return err
	}
	if !env.ok() {
		return env.rejection()
	}
	return nil
}

// BatchFetchFields resolves display labels for a set of foreign keys in one
// round trip. The result maps stringified key to label.
func (c *Client) BatchFetchFields(ctx context.Context, rctx *model.RequestContext, modelName, keyField string, keys []any, labelField string) (map[string]string, error) {
	env, err := c.post(ctx, rctx, "/api/admin/resource/batch-fetch-fields", map[string]any{
		"model":      modelName,
		"keys":       keys,
		"keyField":   keyField,
		"labelField": labelField,
	})
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, env.rejection()
	}

	var out struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("backend: decoding batch fields response: %w", err)
	}
	return out.Fields, nil
}

// Action triggers a named action. The identity and action parameters travel
// as a JSON-encoded payload string, matching the upstream contract.
func (c *Client) Action(ctx context.Context, rctx *model.RequestContext, modelName, action string, id any, params map[string]any) (string, error) {
	payload := make(map[string]any, len(params)+1)
	payload["id"] = id
	for k, v := range params {
		payload[k] = v
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("backend: encoding action payload: %w", err)
	}

	env, err := c.post(ctx, rctx, "/api/admin/resource/action", map[string]any{
		"model":   modelName,
		"action":  action,
		"payload": string(encoded),
	})
	if err != nil {
		return "", err
	}
	if !env.ok() {
		return "", env.rejection()
	}
	return env.message(), nil
}

// Export asks the upstream to materialize an export file for the query and
// returns its URL.
func (c *Client) Export(ctx context.Context, rctx *model.RequestContext, modelName string, q model.Query) (string, error) {
	env, err := c.post(ctx, rctx, "/api/admin/resource/export", map[string]any{
		"model": modelName,
		"query": q,
	})
	if err != nil {
		return "", err
	}
	if !env.ok() {
		return "", env.rejection()
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return "", fmt.Errorf("backend: decoding export response: %w", err)
	}
	if out.URL == "" {
		return "", model.NewBackendRejectedError(-1, "export produced no url")
	}
	return out.URL, nil
}

// Publish registers a wizard-composed resource schema with the upstream
// service, making the resource available to subsequent meta fetches.
func (c *Client) Publish(ctx context.Context, rctx *model.RequestContext, meta model.ResourceMeta) error {
	env, err := c.post(ctx, rctx, "/api/admin/resource/meta-create", map[string]any{
		"model": meta.Name,
		"meta":  meta,
	})
	if err != nil {
		return err
	}
	if !env.ok() {
		return env.rejection()
	}
	return nil
}

// Site fetches the console chrome from the upstream.
func (c *Client) Site(ctx context.Context, rctx *model.RequestContext) (model.SiteDefinition, error) {
	env, err := c.get(ctx, rctx, "/api/admin/site", nil)
	if err != nil {
		return model.SiteDefinition{}, err
	}
	if !env.ok() {
		return model.SiteDefinition{}, env.rejection()
	}

	var out model.SiteDefinition
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return model.SiteDefinition{}, fmt.Errorf("backend: decoding site response: %w", err)
	}
	return out, nil
}

// Menu fetches the navigation menu from the upstream.
func (c *Client) Menu(ctx context.Context, rctx *model.RequestContext) ([]model.MenuItemDefinition, error) {
	env, err := c.get(ctx, rctx, "/api/admin/menu", nil)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, env.rejection()
	}

	var out []model.MenuItemDefinition
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("backend: decoding menu response: %w", err)
	}
	return out, nil
}

// CurrentUser fetches the authenticated admin profile from the upstream.
func (c *Client) CurrentUser(ctx context.Context, rctx *model.RequestContext) (model.CurrentUser, error) {
	env, err := c.get(ctx, rctx, "/api/admin/current-user", nil)
	if err != nil {
		return model.CurrentUser{}, err
	}
	if !env.ok() {
		return model.CurrentUser{}, env.rejection()
	}

	var out struct {
		Admin model.CurrentUser `json:"admin"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return model.CurrentUser{}, fmt.Errorf("backend: decoding current-user response: %w", err)
	}
	return out.Admin, nil
}

// Upload streams a file to the upstream file endpoint as multipart form data
// and returns the stored file URL.
func (c *Client) Upload(ctx context.Context, rctx *model.RequestContext, filename string, file io.Reader) (string, error) {
	fieldKey := c.cfg.UploadFieldKey
	if fieldKey == "" {
		fieldKey = "file"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(fieldKey, filename)
	if err != nil {
		return "", model.NewUploadError(err.Error())
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", model.NewUploadError(err.Error())
	}
	if err := mw.Close(); err != nil {
		return "", model.NewUploadError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.fileBaseURL+"/api/file", &buf)
	if err != nil {
		return "", model.NewUploadError(err.Error())
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeaders(req.Header, rctx)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", model.NewUploadError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", model.NewUploadError(err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", model.NewUploadError(extractUploadMessage(body, resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", model.NewUploadError("malformed upload response")
	}
	if !env.ok() {
		return "", model.NewUploadError(extractUploadMessage(body, resp.StatusCode))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil || out.URL == "" {
		return "", model.NewUploadError("upload response carried no url")
	}
	return out.URL, nil
}

// extractUploadMessage pulls a best-effort human message out of a failed
// upload response body.
func extractUploadMessage(body []byte, status int) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if msg := env.message(); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("upload failed with status %d", status)
}

// --- request execution ---

// parsedEnvelope carries the decoded wrapper and the raw body for endpoints
// that reply outside the data field.
type parsedEnvelope struct {
	envelope
	body json.RawMessage
}

func (c *Client) get(ctx context.Context, rctx *model.RequestContext, path string, params url.Values) (*parsedEnvelope, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return c.execute(ctx, rctx, http.MethodGet, reqURL, nil)
}

func (c *Client) post(ctx context.Context, rctx *model.RequestContext, path string, payload map[string]any) (*parsedEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("backend: encoding request: %w", err)
	}
	return c.execute(ctx, rctx, http.MethodPost, c.baseURL+path, body)
}

// execute performs the request with retry and backoff. Only idempotent
// methods retry unless configured otherwise.
func (c *Client) execute(ctx context.Context, rctx *model.RequestContext, method, reqURL string, body []byte) (*parsedEnvelope, error) {
	retryCfg := c.cfg.Retry
	maxAttempts := retryCfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	canRetry := method == http.MethodGet || !retryCfg.IdempotentOnly

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDelay(retryCfg, attempt)):
			}
		}

		env, retryable, err := c.executeOnce(ctx, rctx, method, reqURL, body)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !canRetry || !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

// executeOnce performs a single HTTP exchange. The second return reports
// whether the failure is worth retrying.
func (c *Client) executeOnce(ctx context.Context, rctx *model.RequestContext, method, reqURL string, body []byte) (*parsedEnvelope, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, false, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeaders(req.Header, rctx)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, model.NewBackendTimeoutError()
		}
		if isConnectionError(err) {
			return nil, true, model.NewBackendUnavailableError()
		}
		return nil, true, fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, true, fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, model.NewBackendUnavailableError()
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, false, model.NewBackendRejectedError(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode >= 400 {
		return nil, false, model.NewBackendRejectedError(resp.StatusCode, extractUploadMessage(respBody, resp.StatusCode))
	}

	env := &parsedEnvelope{body: respBody}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env.envelope); err != nil {
			return nil, false, fmt.Errorf("backend: malformed response from %s: %w", reqURL, err)
		}
	}
	return env, false, nil
}

// setAuthHeaders attaches the bearer token and correlation headers. The token
// is forwarded only when it still decodes as usable.
func (c *Client) setAuthHeaders(h http.Header, rctx *model.RequestContext) {
	if rctx == nil {
		return
	}
	if c.cfg.ForwardAuth && rctx.Token != "" && TokenUsable(rctx.Token, time.Now()) {
		h.Set("Authorization", "Bearer "+sanitizeHeader(rctx.Token))
	}
	if rctx.CorrelationID != "" {
		h.Set("X-Correlation-Id", sanitizeHeader(rctx.CorrelationID))
	}
	if rctx.SubjectID != "" {
		h.Set("X-Request-Subject", sanitizeHeader(rctx.SubjectID))
	}
}

// sanitizeHeader strips newlines and carriage returns to prevent header injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func backoffDelay(cfg config.RetryConfig, attempt int) time.Duration {
	initial := cfg.BackoffInitial
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	max := cfg.BackoffMax
	if max <= 0 {
		max = 2 * time.Second
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
