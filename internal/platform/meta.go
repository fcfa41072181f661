package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// metaGraphError is the error envelope shared by the Facebook, Instagram and
// Threads Graph APIs.
type metaGraphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	TraceID   string `json:"fbtrace_id"`
	HTTPCode  int    `json:"-"`
	Transient bool   `json:"is_transient"`
}

func (e *metaGraphError) Error() string {
	return fmt.Sprintf("graph API error %d: %s", e.Code, e.Message)
}

// Retryable: throttling and transient server faults can be retried; anything
// resembling a permission or policy rejection is final.
func (e *metaGraphError) Retryable() bool {
	if e.Transient || e.HTTPCode >= 500 {
		return true
	}
	switch e.Code {
	case 1, 2, 4, 17, 32, 613: // unknown, service, app/user/page rate limits
		return true
	default:
		return false
	}
}

type metaGraphResult struct {
	ID string `json:"id"`
}

func metaGraphPost(ctx context.Context, client *http.Client, endpoint string, params url.Values) (*metaGraphResult, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		metaGraphResult
		Error *metaGraphError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error parsing graph response: %w", err)
	}

	if envelope.Error != nil {
		envelope.Error.HTTPCode = resp.StatusCode
		return nil, envelope.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &metaGraphError{Message: fmt.Sprintf("unexpected status code %d", resp.StatusCode), HTTPCode: resp.StatusCode}
	}

	return &envelope.metaGraphResult, nil
}
