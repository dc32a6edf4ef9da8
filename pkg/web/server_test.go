package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-snaplabel/pkg/app"
	"github.com/teslashibe/go-snaplabel/pkg/capture"
)

// fakeController returns err from every capture request.
type fakeController struct {
	err     error
	display app.Display
	calls   atomic.Int32
}

func (f *fakeController) RequestCapture(ctx context.Context) error {
	f.calls.Add(1)
	return f.err
}

func (f *fakeController) Snapshot() app.Display {
	return f.display
}

func TestHealth(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestIndex(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "/ws/display") {
		t.Error("index should connect to the display websocket")
	}
}

func TestDisplay(t *testing.T) {
	ctrl := &fakeController{display: app.Display{
		RequestID: "req-1",
		State:     app.StateCompleted,
		Text:      "No labels detected in the image.",
	}}
	s := NewServer(ctrl, nil, nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/display", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	var got app.Display
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestID != "req-1" || got.State != app.StateCompleted || got.Text != ctrl.display.Text {
		t.Errorf("display = %+v, want %+v", got, ctrl.display)
	}
}

func TestCapture(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"accepted", nil, 202, `"accepted":true`},
		{"cancelled", capture.ErrCaptureCancelled, 200, `"cancelled":true`},
		{"busy", app.ErrBusy, 409, "in progress"},
		{"stopped", app.ErrStopped, 503, "stopped"},
		{"camera unavailable", capture.ErrCameraUnavailable, 500, "camera unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{err: tt.err}
			s := NewServer(ctrl, nil, nil)

			resp, err := s.App().Test(httptest.NewRequest("POST", "/api/capture", nil))
			if err != nil {
				t.Fatalf("Request error: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tt.status)
			}

			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.body) {
				t.Errorf("body = %s, want it to contain %s", body, tt.body)
			}
			if ctrl.calls.Load() != 1 {
				t.Errorf("RequestCapture calls = %d, want 1", ctrl.calls.Load())
			}
		})
	}
}

func TestImage(t *testing.T) {
	var current *capture.Image
	s := NewServer(&fakeController{}, func() *capture.Image { return current }, nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/image", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Errorf("Status = %d, want 204 without a capture", resp.StatusCode)
	}

	current = &capture.Image{Data: []byte("jpegdata"), Format: "jpeg"}
	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/image", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "jpegdata" {
		t.Errorf("body = %q", body)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/display", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("Status = %d, want 426", resp.StatusCode)
	}
}

func TestDisplayWebSocket(t *testing.T) {
	ctrl := &fakeController{display: app.Display{State: app.StateIdle}}
	s := NewServer(ctrl, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, ":18090") }()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/display", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	first := readDisplay(t, ws)
	if first.State != app.StateIdle {
		t.Errorf("first State = %q, want idle", first.State)
	}

	// wait for registration before broadcasting
	deadline := time.Now().Add(time.Second)
	for s.Hub().ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	s.Show(app.Display{RequestID: "req-2", State: app.StateInFlight, Text: "Classifying image...\nPlease wait."})

	got := readDisplay(t, ws)
	if got.RequestID != "req-2" || got.State != app.StateInFlight {
		t.Errorf("update = %+v, want req-2 in_flight", got)
	}
}

func TestRunReturnsListenError(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil)

	err := s.Run(context.Background(), "not-an-address")
	if err == nil {
		t.Fatal("Run() should fail for an invalid address")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want a listen error", err)
	}
}

// blockingController holds every capture until its context ends.
type blockingController struct {
	started chan struct{}
	ended   chan struct{}
}

func newBlockingController() *blockingController {
	return &blockingController{
		started: make(chan struct{}, 1),
		ended:   make(chan struct{}, 1),
	}
}

func (b *blockingController) RequestCapture(ctx context.Context) error {
	b.started <- struct{}{}
	<-ctx.Done()
	b.ended <- struct{}{}
	return fmt.Errorf("%w: %v", capture.ErrCaptureCancelled, ctx.Err())
}

func (b *blockingController) Snapshot() app.Display {
	return app.Display{State: app.StateIdle}
}

func startServer(t *testing.T, s *Server, addr string) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func TestCancelCapture(t *testing.T) {
	ctrl := newBlockingController()
	s := NewServer(ctrl, nil, nil)
	startServer(t, s, ":18094")

	type result struct {
		status int
		body   string
		err    error
	}
	captured := make(chan result, 1)
	go func() {
		resp, err := http.Post("http://localhost:18094/api/capture", "application/json", nil)
		if err != nil {
			captured <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		captured <- result{status: resp.StatusCode, body: string(body)}
	}()

	select {
	case <-ctrl.started:
	case <-time.After(2 * time.Second):
		t.Fatal("capture never started")
	}

	resp, err := http.Post("http://localhost:18094/api/capture/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("cancel request error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `"cancelled":true`) {
		t.Errorf("cancel body = %s, want cancelled true", body)
	}

	select {
	case r := <-captured:
		if r.err != nil {
			t.Fatalf("capture request error: %v", r.err)
		}
		if r.status != 200 || !strings.Contains(r.body, `"cancelled":true`) {
			t.Errorf("capture response = %d %s, want 200 cancelled", r.status, r.body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture request did not finish after cancel")
	}
}

func TestCancelCaptureWithoutPending(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil)

	resp, err := s.App().Test(httptest.NewRequest("POST", "/api/capture/cancel", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"cancelled":false`) {
		t.Errorf("body = %s, want cancelled false", body)
	}
}

func TestShutdownCancelsCapture(t *testing.T) {
	ctrl := newBlockingController()
	s := NewServer(ctrl, nil, nil)
	stop := startServer(t, s, ":18095")

	go func() {
		resp, err := http.Post("http://localhost:18095/api/capture", "application/json", nil)
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-ctrl.started:
	case <-time.After(2 * time.Second):
		t.Fatal("capture never started")
	}

	stop()

	select {
	case <-ctrl.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("server shutdown should cancel the pending capture")
	}
}

func TestDisplayWebSocketReconnect(t *testing.T) {
	s := NewServer(&fakeController{display: app.Display{State: app.StateIdle}}, nil, nil)
	startServer(t, s, ":18091")

	first, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/display", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	readDisplay(t, first)
	waitForClients(t, s, 1)

	// disconnect, then broadcast while the old client is torn down
	first.Close()
	waitForClients(t, s, 0)
	s.Show(app.Display{RequestID: "gone", State: app.StateCompleted})

	second, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/display", nil)
	if err != nil {
		t.Fatalf("WebSocket redial error: %v", err)
	}
	defer second.Close()

	if d := readDisplay(t, second); d.State != app.StateIdle {
		t.Errorf("first State = %q, want idle", d.State)
	}
	waitForClients(t, s, 1)

	s.Show(app.Display{RequestID: "req-3", State: app.StateInFlight})
	if d := readDisplay(t, second); d.RequestID != "req-3" {
		t.Errorf("update = %+v, want req-3", d)
	}
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want %d", s.Hub().ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readDisplay(t *testing.T, ws *websocket.Conn) app.Display {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	var d app.Display
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return d
}
