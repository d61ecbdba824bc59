package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"skillspark/internal/middleware"
	"skillspark/internal/model"

	"github.com/google/uuid"
)

// StatusError はバックエンドAPIが返したエラーを表します。
// 呼び出し側は Status を見て 404 / 429 などの分岐ができます。
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// IsStatus は err が指定ステータスの StatusError かどうかを判定します。
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// envelope はバックエンドAPIの共通レスポンス形式です。
type envelope struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   *model.ErrorDetail `json:"error"`
}

// Client はバックエンドAPIへのHTTPクライアントです。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New はクライアントを初期化します。timeout が 0 の場合はタイムアウトなし。
func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend: base_url required")
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: tr,
			Timeout:   timeout,
		},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) (*Client, error) {
	c, err := New(baseURL, 0)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// do はリクエストを送信し、共通エンベロープを剥がして data 部分を返します。
// リトライはこの層では行いません (呼び出し側の責務)。
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	logger := middleware.GetLogger(ctx)

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("Calling backend API", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response body: %w", err)
	}

	var env envelope
	// 非2xxでもエラーメッセージを含むエンベロープの可能性があるため先にパースを試みる
	parseErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if parseErr == nil && env.Error != nil && env.Error.Message != "" {
			message = env.Error.Message
		}
		logger.Warn("Backend API returned error status",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, &StatusError{Status: resp.StatusCode, Message: message}
	}

	if parseErr != nil {
		return nil, fmt.Errorf("backend: decode response: %w", parseErr)
	}
	if !env.Success {
		message := "Operation failed"
		if env.Error != nil && env.Error.Message != "" {
			message = env.Error.Message
		}
		return nil, &StatusError{Status: resp.StatusCode, Message: message}
	}

	return env.Data, nil
}
