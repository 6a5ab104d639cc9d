package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RequestIDHeader carries the evaluation run id to every service.
const RequestIDHeader = "X-Request-ID"

type HTTP struct {
	c     *http.Client
	runID string
}

func NewHTTP(timeout time.Duration, runID string) *HTTP {
	return &HTTP{c: &http.Client{Timeout: timeout}, runID: runID}
}

// postJSON sends in as JSON to url and decodes the JSON response into out.
// op names the call in errors.
func (h *HTTP) postJSON(ctx context.Context, op, url string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.runID != "" {
		req.Header.Set(RequestIDHeader, h.runID)
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s", op, resp.Status, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", op, err)
	}
	return nil
}
