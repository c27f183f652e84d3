package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, truncate(e.Body, 220))
}

func Is5xx(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode >= 500 && statusErr.StatusCode <= 599
}

// GetJSON issues a GET for base with query appended and decodes a JSON body
// into T. Non-2xx responses become a *StatusError.
func GetJSON[T any](ctx context.Context, base string, query url.Values, timeout time.Duration) (T, error) {
	var zero T

	target, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return zero, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		merged := target.Query()
		for key, values := range query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}
		target.RawQuery = merged.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "weekview")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return zero, fmt.Errorf("read response: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var decoded T
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return zero, fmt.Errorf("decode json response: %w", err)
	}
	return decoded, nil
}

func truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "…"
}
