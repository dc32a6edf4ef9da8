// Package vision classifies images with the Google Cloud Vision label
// detection API.
//
// A Classifier turns raw image bytes into a labels.Outcome. Every call is a
// single network round trip with no retry; callers that must not block run
// it through ClassifyAsync and receive the Result on a channel.
//
// Example usage:
//
//	client, _ := vision.NewClient(ctx,
//	    vision.WithAPIKey(os.Getenv("VISION_API_KEY")),
//	)
//
//	res := <-vision.ClassifyAsync(ctx, client, jpegBytes)
//	fmt.Println(res.Text())
package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-snaplabel/pkg/labels"
)

// Feature request constants sent with every annotate call.
const (
	FeatureLabelDetection = "LABEL_DETECTION"
	MaxResults            = 10
)

// Classifier assigns content labels to an image.
type Classifier interface {
	// Classify uploads image (JPEG bytes) and returns the labels in the
	// order the service ranked them. It blocks until the call resolves.
	Classify(ctx context.Context, image []byte) (*labels.Outcome, error)
}

// Result is the terminal state of one classification: exactly one of
// Outcome or Err is set.
type Result struct {
	Outcome *labels.Outcome
	Err     error
	Latency time.Duration
}

// Failed reports whether the classification failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Text renders the result for display.
func (r Result) Text() string {
	if r.Err != nil {
		return labels.RenderError(r.Err)
	}
	return labels.Render(r.Outcome)
}

// ClassifyAsync runs c.Classify on its own goroutine and delivers exactly one
// Result on the returned channel, which is then closed. A panicking
// classifier is reported as an error rather than crashing the process.
func ClassifyAsync(ctx context.Context, c Classifier, image []byte) <-chan Result {
	ch := make(chan Result, 1)

	go func() {
		start := time.Now()
		var res Result

		defer func() {
			if r := recover(); r != nil {
				res = Result{Err: fmt.Errorf("vision: classifier panic: %v", r)}
			}
			res.Latency = time.Since(start)
			ch <- res
			close(ch)
		}()

		out, err := c.Classify(ctx, image)
		switch {
		case err != nil:
			res = Result{Err: err}
		case out == nil:
			res = Result{Outcome: labels.NewOutcome(nil)}
		default:
			res = Result{Outcome: out}
		}
	}()

	return ch
}
