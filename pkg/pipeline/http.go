package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stallworks/go-stallcam/internal/httpc"
)

// finalizeTimeout bounds one pipeline run. Image derivation is slow, so
// this is far above the shared client default.
const finalizeTimeout = 2 * time.Minute

// HTTPPipeline calls a remote listing pipeline over HTTP. The service
// accepts a JSON Request at POST {baseURL}/v1/finalize and responds with
// a JSON body carrying success, record ID, artifact URL and error detail.
type HTTPPipeline struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Pipeline = (*HTTPPipeline)(nil)

// NewHTTPPipeline creates a pipeline client for the given base URL.
func NewHTTPPipeline(baseURL, apiKey string) *HTTPPipeline {
	return &HTTPPipeline{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  httpc.NewClient(finalizeTimeout),
	}
}

type finalizeResponse struct {
	Success     bool   `json:"success"`
	RecordID    string `json:"record_id,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Finalize posts the request and decodes the outcome.
func (p *HTTPPipeline) Finalize(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/finalize", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("pipeline: status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var out finalizeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("pipeline: decode response: %w", err)
	}
	if !out.Success {
		if out.Error == "" {
			out.Error = "pipeline reported failure"
		}
		return Result{}, fmt.Errorf("pipeline: %s", out.Error)
	}
	return Result{RecordID: out.RecordID, ArtifactURL: out.ArtifactURL}, nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		data = data[:n]
	}
	return string(data)
}
