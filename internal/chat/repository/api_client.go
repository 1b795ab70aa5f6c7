package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"impact_chat/pkg/config"
	errprocess "impact_chat/pkg/err"

	"github.com/goccy/go-json"
)

// APIClient shared HTTP plumbing for the REST repositories
type APIClient struct {
	BaseURL    string
	Mode       config.APIMode
	HTTPClient *http.Client
}

// NewAPIClient create APIClient
func NewAPIClient(cfg config.ServerConfig) *APIClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	mode := cfg.APIMode
	if mode == "" {
		mode = config.APIModeChat
	}
	return &APIClient{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Mode:       mode,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// request one REST call
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	token       string
	contentType string
	body        io.Reader
}

// do performs the request and decodes a 2xx JSON reply into out.
// Non-2xx replies become CommandErrors carrying the server detail.
func (c *APIClient) do(ctx context.Context, r request, out any) error {
	u := c.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return errprocess.CommandFailed(r.op, err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errprocess.CommandFailed(r.op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errprocess.CommandFailed(r.op, err)
	}

	if resp.StatusCode >= 400 {
		return errprocess.Command(r.op, resp.StatusCode, errorDetail(respBody, resp.Status))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errprocess.CommandFailed(r.op, fmt.Errorf("decode reply: %w", err))
	}
	return nil
}

// errorDetail read {"detail": "..."}; validation errors carry a list instead
func errorDetail(body []byte, status string) string {
	var errResp struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || len(errResp.Detail) == 0 {
		if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 {
			return s
		}
		return status
	}

	var detail string
	if err := json.Unmarshal(errResp.Detail, &detail); err == nil {
		return detail
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(errResp.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			msgs = append(msgs, it.Msg)
		}
		return strings.Join(msgs, "; ")
	}
	return string(errResp.Detail)
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
