package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

type Client struct {
	httpClient *http.Client
	retries    int
	userAgent  string
}

func New(timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		userAgent:  "gudquote/1.0",
	}
}

// WithRetries returns a copy of c that shares its transport but retries n times.
func (c *Client) WithRetries(n int) *Client {
	if n < 0 {
		n = 0
	}
	cp := *c
	cp.retries = n
	return &cp
}

// DoJSON sends req and decodes a 2xx JSON body into out. Non-2xx responses become
// CodeHTTP errors, transport failures CodeNetworkUnavailable. Rate limiting and 5xx
// responses are retried when the client was built with retries.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	buf, header, err := c.Do(ctx, req)
	if err != nil {
		return header, err
	}
	if out == nil {
		return header, nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return header, clierr.New(clierr.CodeMalformedResponse, "pricing service returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return header, clierr.Wrap(clierr.CodeMalformedResponse, "decode pricing service JSON", err)
	}
	return header, nil
}

// Do is DoJSON without decoding; the raw 2xx body is returned.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, clierr.Wrap(clierr.CodeNetworkUnavailable, "request cancelled", ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}

		cloneReq := req.Clone(ctx)
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, nil, clierr.Wrap(clierr.CodeInternal, "clone request body", err)
			}
			cloneReq.Body = body
		}

		resp, err := c.httpClient.Do(cloneReq)
		if err != nil {
			lastErr = mapNetError(err)
			if attempt < c.retries && ctx.Err() == nil {
				continue
			}
			return nil, nil, lastErr
		}

		buf, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.Header, clierr.Wrap(clierr.CodeNetworkUnavailable, "read pricing service response", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return buf, resp.Header, nil
		}

		lastErr = statusError(resp.StatusCode, buf)
		if retryable(resp.StatusCode) && attempt < c.retries {
			continue
		}
		return nil, resp.Header, lastErr
	}

	if lastErr != nil {
		return nil, nil, lastErr
	}
	return nil, nil, clierr.New(clierr.CodeNetworkUnavailable, "request failed")
}

func DoBodyJSON(ctx context.Context, c *Client, method, url string, body []byte, headers map[string]string, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.DoJSON(ctx, req, out)
}

// statusError prefers a message embedded in the response body over the generic one.
func statusError(status int, body []byte) error {
	message := clierr.StatusMessage(status)
	if m := bodyMessage(body); m != "" {
		message = m
	}
	return clierr.HTTP(status, message)
}

func bodyMessage(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return strings.TrimSpace(nested.Message)
		}
	}
	return strings.TrimSpace(payload.Message)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func mapNetError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return clierr.Wrap(clierr.CodeNetworkUnavailable, "pricing service timeout", err)
	}
	return clierr.Wrap(clierr.CodeNetworkUnavailable, "network error contacting pricing service", err)
}

func backoff(attempt int) time.Duration {
	base := 120 * time.Millisecond
	d := base * time.Duration(1<<uint(attempt-1))
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	jitter := time.Duration(rand.Intn(75)) * time.Millisecond
	return d + jitter
}
