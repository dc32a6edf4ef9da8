package vision

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-snaplabel/pkg/labels"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	ClassifyFunc func(ctx context.Context, image []byte) (*labels.Outcome, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Classify invocation.
type MockCall struct {
	ImageSize int
	Time      time.Time
}

// NewMock creates a mock that returns the given labels.
func NewMock(ls ...labels.Label) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, image []byte) (*labels.Outcome, error) {
			return labels.NewOutcome(ls), nil
		},
	}
}

// MockError returns a mock that always fails with err.
func MockError(err error) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, image []byte) (*labels.Outcome, error) {
			return nil, err
		},
	}
}

// Classify calls ClassifyFunc and records the call.
func (m *Mock) Classify(ctx context.Context, image []byte) (*labels.Outcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{ImageSize: len(image), Time: time.Now()})
	fn := m.ClassifyFunc
	m.mu.Unlock()

	if fn == nil {
		return labels.NewOutcome(nil), nil
	}
	return fn(ctx, image)
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns how many times Classify was called.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
