package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"github.com/teslashibe/go-snaplabel/pkg/labels"
)

const providerGoogle = "google"

// Client classifies images with Cloud Vision v1 label detection.
type Client struct {
	svc    *visionapi.Service
	apiKey string
	config *Config
	logger *slog.Logger
}

// NewClient creates a new Vision client. It performs no network I/O except
// what a credentials file requires later for token refresh.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if cfg.APIKey == "" {
		var err error
		if hc, err = oauthClient(cfg); err != nil {
			return nil, err
		}
	}

	svc, err := visionapi.NewService(ctx,
		option.WithHTTPClient(hc),
		option.WithEndpoint(cfg.Endpoint),
	)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Client{
		svc:    svc,
		apiKey: cfg.APIKey,
		config: cfg,
		logger: cfg.Logger.With("component", "vision.client"),
	}, nil
}

// oauthClient wraps the configured HTTP client with a service account token
// source.
func oauthClient(cfg *Config) (*http.Client, error) {
	data := cfg.CredentialsJSON
	if len(data) == 0 {
		var err error
		if data, err = os.ReadFile(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("vision: read credentials: %w", err)
		}
	}

	// Token refreshes go through the same transport as API calls.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, cfg.HTTPClient)
	creds, err := google.CredentialsFromJSON(tokenCtx, data, visionapi.CloudVisionScope)
	if err != nil {
		return nil, fmt.Errorf("vision: parse credentials: %w", err)
	}
	return oauth2.NewClient(tokenCtx, creds.TokenSource), nil
}

// Classify runs label detection on image.
func (c *Client) Classify(ctx context.Context, image []byte) (*labels.Outcome, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	start := time.Now()

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image: &visionapi.Image{
				Content: base64.StdEncoding.EncodeToString(image),
			},
			Features: []*visionapi.Feature{{
				Type:       FeatureLabelDetection,
				MaxResults: MaxResults,
			}},
		}},
	}

	var callOpts []googleapi.CallOption
	if c.apiKey != "" {
		callOpts = append(callOpts, googleapi.QueryParameter("key", c.apiKey))
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do(callOpts...)
	if err != nil {
		err = c.wrapError(err)
		c.logger.Warn("annotate failed",
			"error", err,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, WrapError(providerGoogle, ErrMalformedResponse)
	}

	r := resp.Responses[0]
	if r.Error != nil && (r.Error.Code != 0 || r.Error.Message != "") {
		return nil, &APIError{
			Code:     r.Error.Code,
			Message:  r.Error.Message,
			Provider: providerGoogle,
		}
	}

	out := make([]labels.Label, 0, len(r.LabelAnnotations))
	for _, a := range r.LabelAnnotations {
		if a == nil {
			continue
		}
		out = append(out, labels.Label{
			Name:       a.Description,
			Confidence: a.Score,
		})
	}

	c.logger.Debug("annotate complete",
		"labels", len(out),
		"bytes", len(image),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return labels.NewOutcome(out), nil
}

// wrapError maps client library errors onto this package's error types.
func (c *Client) wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &APIError{
			StatusCode: gerr.Code,
			Message:    msg,
			Provider:   providerGoogle,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return WrapError(providerGoogle, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	return WrapError(providerGoogle, err)
}

// Verify Client implements Classifier at compile time.
var _ Classifier = (*Client)(nil)
