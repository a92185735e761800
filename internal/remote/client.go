package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/snapvault/internal/apperr"
	"github.com/snapvault/internal/store"
	"github.com/snapvault/internal/version"
)

// ConflictReasonProviderActive is the canonical 409 reason the document
// service returns when an overwrite restore hits an active collaboration
// session.
const ConflictReasonProviderActive = "provider_active"

// Client talks to the authenticated document service. It satisfies
// version.Backend so callers never see which backend they run against.
type Client struct {
	baseURL    string
	token      func() string
	httpClient *http.Client
}

// NewClient creates a document service client. token is read per request so
// a refreshed session takes effect without rebuilding the client.
func NewClient(baseURL string, token func() string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// normalizeDocumentID strips the local-only id prefix so callers never manage
// id dialects themselves.
func normalizeDocumentID(id string) string {
	return strings.TrimPrefix(id, store.LocalIDPrefix)
}

type listResponse struct {
	Versions []version.Version `json:"versions"`
	Total    int               `json:"total"`
}

type conflictResponse struct {
	Error             string `json:"error"`
	Reason            string `json:"reason"`
	SuggestedAction   string `json:"suggested_action"`
	ActiveConnections int    `json:"active_connections"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// ListVersions lists version metadata for a document, newest first.
func (c *Client) ListVersions(ctx context.Context, documentID string, limit, offset int) ([]version.Version, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := fmt.Sprintf("/documents/%s/versions", url.PathEscape(normalizeDocumentID(documentID)))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// GetVersionContent fetches a single version with full content.
func (c *Client) GetVersionContent(ctx context.Context, documentID string, versionNumber int) (*version.Version, error) {
	path := fmt.Sprintf("/documents/%s/versions/%d", url.PathEscape(normalizeDocumentID(documentID)), versionNumber)

	var v version.Version
	if err := c.do(ctx, http.MethodGet, path, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVersion captures a new snapshot on the document service.
func (c *Client) CreateVersion(ctx context.Context, req version.CreateRequest) (*version.Version, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperr.New(apperr.Validation, "snapshot content is empty", nil)
	}

	path := fmt.Sprintf("/documents/%s/versions", url.PathEscape(normalizeDocumentID(req.DocumentID)))

	var v version.Version
	if err := c.do(ctx, http.MethodPost, path, req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Restore issues a restore. A 409 with reason provider_active comes back as
// an apperr.Conflict error; the orchestrator treats it as a first-class
// outcome, not a failure.
func (c *Client) Restore(ctx context.Context, documentID, versionID string, action version.RestoreAction, opts version.RestoreOptions) (*version.RestoreResult, error) {
	if !action.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown restore action %q", action)
	}

	path := fmt.Sprintf("/documents/%s/versions/%s/restore",
		url.PathEscape(normalizeDocumentID(documentID)), url.PathEscape(versionID))

	body := struct {
		Action   string `json:"action"`
		NewTitle string `json:"new_title,omitempty"`
		Force    bool   `json:"force,omitempty"`
	}{Action: string(action), NewTitle: opts.NewTitle, Force: opts.Force}

	var result version.RestoreResult
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs one request against the document service and decodes the
// response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.New(apperr.Network, "document service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.New(apperr.Network, "failed to decode document service response", err)
		}
		return nil
	}

	return c.decodeError(resp)
}

// decodeError maps a non-2xx response to a categorized error.
func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusConflict {
		var conflict conflictResponse
		if err := json.Unmarshal(data, &conflict); err == nil && conflict.Reason == ConflictReasonProviderActive {
			msg := "overwrite blocked: an active editing session exists"
			if conflict.ActiveConnections > 0 {
				msg = fmt.Sprintf("%s (%d active connections)", msg, conflict.ActiveConnections)
			}
			return apperr.New(apperr.Conflict, msg, nil)
		}
		return apperr.New(apperr.Conflict, "restore conflicts with the current document state", nil)
	}

	var errResp errorResponse
	_ = json.Unmarshal(data, &errResp)
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Detail
	}
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return apperr.New(statusCategory(resp.StatusCode), msg, nil)
}

func statusCategory(status int) apperr.Category {
	switch status {
	case http.StatusNotFound:
		return apperr.NotFound
	case http.StatusForbidden:
		return apperr.Forbidden
	case http.StatusUnauthorized:
		return apperr.Unauthorized
	case http.StatusTooManyRequests:
		return apperr.RateLimited
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return apperr.Validation
	default:
		return apperr.Network
	}
}
