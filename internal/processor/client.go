// Package processor hands uploaded files to a document processor and, when
// none is configured, extracts text in-process instead.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shelf-works/shelf/internal/service"
)

const dispatchTimeout = 30 * time.Second

// WebhookDispatcher sends extraction requests to an external processing
// service. The processor reports back asynchronously through the
// callback endpoint named in each request.
type WebhookDispatcher struct {
	baseURL     string
	token       string
	callbackURL string
	httpClient  *http.Client
}

func NewWebhookDispatcher(baseURL, token, callbackURL string) *WebhookDispatcher {
	return &WebhookDispatcher{
		baseURL:     baseURL,
		token:       token,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: dispatchTimeout},
	}
}

type dispatchRequest struct {
	FileID      string `json:"file_id"`
	FileURL     string `json:"file_url"`
	FilePath    string `json:"file_path"`
	FileType    string `json:"file_type"`
	CallbackURL string `json:"callback_url"`
}

// Dispatch submits one extraction job. A 2xx response means the processor
// accepted the job, not that extraction succeeded.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, job service.ProcessingJob) error {
	payload, err := json.Marshal(dispatchRequest{
		FileID:      job.FileID,
		FileURL:     job.FileURL,
		FilePath:    job.FilePath,
		FileType:    string(job.FileType),
		CallbackURL: d.callbackURL,
	})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("processor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("processor rejected job for file %s: status %d: %s", job.FileID, resp.StatusCode, string(body))
	}
	return nil
}
