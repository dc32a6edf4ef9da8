package vision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-snaplabel/pkg/labels"
)

func TestClassifyAsyncSuccess(t *testing.T) {
	m := NewMock(
		labels.Label{Name: "Cat", Confidence: 0.97},
		labels.Label{Name: "Pet", Confidence: 0.85},
	)

	res := recvResult(t, ClassifyAsync(context.Background(), m, []byte("img")))

	if res.Failed() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	text := res.Text()
	if !strings.Contains(text, "1. Cat  Confidence: 97.0%") || !strings.Contains(text, "2. Pet  Confidence: 85.0%") {
		t.Errorf("unexpected text %q", text)
	}
	if m.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", m.CallCount())
	}
	if m.Calls()[0].ImageSize != 3 {
		t.Errorf("ImageSize = %d, want 3", m.Calls()[0].ImageSize)
	}
}

func TestClassifyAsyncError(t *testing.T) {
	res := recvResult(t, ClassifyAsync(context.Background(), MockError(errors.New("timeout")), []byte("img")))

	if !res.Failed() || res.Outcome != nil {
		t.Fatalf("expected error only, got %+v", res)
	}
	text := res.Text()
	if !strings.Contains(text, "timeout") {
		t.Errorf("text should mention timeout: %q", text)
	}
	for _, h := range labels.Hints {
		if !strings.Contains(text, h) {
			t.Errorf("missing hint %q", h)
		}
	}
}

func TestClassifyAsyncNilOutcome(t *testing.T) {
	m := &Mock{ClassifyFunc: func(ctx context.Context, image []byte) (*labels.Outcome, error) {
		return nil, nil
	}}

	res := recvResult(t, ClassifyAsync(context.Background(), m, []byte("img")))
	if res.Failed() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Text() != labels.NoLabelsMessage {
		t.Errorf("Text() = %q, want %q", res.Text(), labels.NoLabelsMessage)
	}
}

func TestClassifyAsyncRecoversPanic(t *testing.T) {
	m := &Mock{ClassifyFunc: func(ctx context.Context, image []byte) (*labels.Outcome, error) {
		panic("boom")
	}}

	res := recvResult(t, ClassifyAsync(context.Background(), m, []byte("img")))
	if !res.Failed() || !strings.Contains(res.Err.Error(), "boom") {
		t.Errorf("expected panic to surface as error, got %+v", res)
	}
}

func TestClassifyAsyncClosesChannel(t *testing.T) {
	ch := ClassifyAsync(context.Background(), NewMock(), []byte("img"))
	recvResult(t, ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after one result")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

// Exactly one of outcome or error text, for every kind of classifier answer.
func TestResultTextExclusive(t *testing.T) {
	classifiers := []Classifier{
		NewMock(),
		NewMock(labels.Label{Name: "A", Confidence: 0.1}),
		NewMock(
			labels.Label{Name: "A", Confidence: 0.4},
			labels.Label{Name: "B", Confidence: 0.3},
			labels.Label{Name: "C", Confidence: 0.2},
			labels.Label{Name: "D", Confidence: 0.1},
		),
		MockError(errors.New("network down")),
	}

	for i, c := range classifiers {
		res := recvResult(t, ClassifyAsync(context.Background(), c, []byte("img")))
		if (res.Err == nil) == (res.Outcome == nil) {
			t.Errorf("case %d: want exactly one of Outcome/Err, got %+v", i, res)
		}
		if res.Text() == "" {
			t.Errorf("case %d: empty text", i)
		}
		if res.Outcome != nil && len(res.Outcome.Displayed()) > labels.DisplayLimit {
			t.Errorf("case %d: more than %d displayed labels", i, labels.DisplayLimit)
		}
	}
}

func recvResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}
