package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockPipeline records requests and returns canned results. Useful for
// tests and for running the device agent without a pipeline service.
type MockPipeline struct {
	// Delay simulates pipeline latency before each result.
	Delay time.Duration

	// Err, when set, is returned from every Finalize call.
	Err error

	mu       sync.Mutex
	requests []Request
}

var _ Pipeline = (*MockPipeline)(nil)

func (m *MockPipeline) Finalize(ctx context.Context, req Request) (Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return Result{}, m.Err
	}
	return Result{
		RecordID:    uuid.New().String(),
		ArtifactURL: "https://artifacts.example.com/" + req.SubjectRef + ".jpg",
	}, nil
}

// Requests returns a copy of all requests received so far.
func (m *MockPipeline) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
