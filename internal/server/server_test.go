package server

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/ocr"
	"github.com/nao1215/studyhelper/internal/pipeline"
	"github.com/nao1215/studyhelper/internal/report"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// textRecognizer returns fixed text for every photo.
type textRecognizer struct {
	text string
	err  error
}

func (r textRecognizer) Recognize(_ context.Context, _ []byte, _ ocr.ProgressFunc) (ocr.Result, error) {
	return ocr.Result{Text: r.text}, r.err
}

func (r textRecognizer) Name() string { return "text" }

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func doUpload(t *testing.T, handler http.Handler, field string, image []byte) *httptest.ResponseRecorder {
	t.Helper()

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newUploadRequest(t, field, image))
	return resp
}

func newUploadRequest(t *testing.T, field string, image []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "photo.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ocr", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// gatedRecognizer blocks its first reading until release is closed.
type gatedRecognizer struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGatedRecognizer() *gatedRecognizer {
	return &gatedRecognizer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedRecognizer) Recognize(_ context.Context, image []byte, _ ocr.ProgressFunc) (ocr.Result, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return ocr.Result{Text: string(image)}, nil
}

func (g *gatedRecognizer) Name() string { return "gated" }

func TestHealth(t *testing.T) {
	t.Parallel()

	resp := doJSON(t, New().Handler(), http.MethodGet, "/health", "")

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", resp.Body.String())
	}
	if resp.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestSolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   model.ErrorKind
		wantAnswer string
		wantView   model.ViewMode
		wantSteps  int
	}{
		{
			name:       "linear equation with full view",
			body:       `{"equation":"2x+7=25","view":"full"}`,
			wantStatus: http.StatusOK,
			wantAnswer: "x = 9",
			wantView:   model.ViewFull,
			wantSteps:  3,
		},
		{
			name:       "default view is steps",
			body:       `{"equation":"x^2-5x+6=0"}`,
			wantStatus: http.StatusOK,
			wantAnswer: "x = 2, x = 3",
			wantView:   model.ViewSteps,
			wantSteps:  3,
		},
		{
			name:       "variable is honoured",
			body:       `{"equation":"3y+1=10","variable":"y","view":"full"}`,
			wantStatus: http.StatusOK,
			wantAnswer: "y = 3",
			wantView:   model.ViewFull,
			wantSteps:  3,
		},
		{
			name:       "domain error is a successful response",
			body:       `{"equation":"2x+7","view":"full"}`,
			wantStatus: http.StatusOK,
			wantKind:   model.KindMissingEquals,
			wantView:   model.ViewFull,
		},
		{
			name:       "empty equation",
			body:       `{"equation":""}`,
			wantStatus: http.StatusOK,
			wantKind:   model.KindEmptyInput,
			wantView:   model.ViewSteps,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := doJSON(t, New().Handler(), http.MethodPost, "/api/solve", tt.body)

			if resp.Code != tt.wantStatus {
				t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
			}
			var got report.Response
			if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got.ErrorKind != tt.wantKind {
				t.Errorf("error_kind: got %q, want %q", got.ErrorKind, tt.wantKind)
			}
			if got.Answer != tt.wantAnswer {
				t.Errorf("answer: got %q, want %q", got.Answer, tt.wantAnswer)
			}
			if got.View != tt.wantView {
				t.Errorf("view: got %q, want %q", got.View, tt.wantView)
			}
			if len(got.Steps) != tt.wantSteps {
				t.Errorf("steps: got %v", got.Steps)
			}
			if tt.wantKind != "" && !strings.Contains(got.Hint, string(tt.wantKind)) {
				t.Errorf("hint should name the kind, got %q", got.Hint)
			}
		})
	}
}

func TestSolveRejectsBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"equation":`},
		{name: "unknown view", body: `{"equation":"x=1","view":"everything"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := doJSON(t, New().Handler(), http.MethodPost, "/api/solve", tt.body)

			if resp.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.Code)
			}
			var got ErrorResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got.Error == "" || got.RequestID == "" {
				t.Errorf("expected error and request id, got %+v", got)
			}
		})
	}
}

func TestSolveRejectsLargeBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		equation string
		want     int
	}{
		{name: "within limit", equation: "2x=8", want: http.StatusOK},
		{name: "over limit", equation: strings.Repeat("x+", 64) + "1=2", want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := New(WithMaxSolveBodySize(64))
			resp := doJSON(t, srv.Handler(), http.MethodPost, "/api/solve", `{"equation":"`+tt.equation+`"}`)

			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, resp.Code, resp.Body.String())
			}
			if tt.want == http.StatusRequestEntityTooLarge && !strings.Contains(resp.Body.String(), "too large") {
				t.Errorf("expected size error, got %s", resp.Body.String())
			}
		})
	}
}

func TestSolveSavesHistory(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	srv := New(WithPipelineFactory(func() *pipeline.Pipeline {
		return pipeline.DefaultPipeline(nil, pipeline.WithPipelineStore(store))
	}))

	resp := doJSON(t, srv.Handler(), http.MethodPost, "/api/solve", `{"equation":"2x=8"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if store.count != 1 {
		t.Errorf("expected one saved solve, got %d", store.count)
	}
}

type recordingStore struct {
	count int
}

func (r *recordingStore) SaveSolve(context.Context, model.State) (int64, error) {
	r.count++
	return int64(r.count), nil
}

func TestOCR(t *testing.T) {
	t.Parallel()

	t.Run("returns the normalized candidate", func(t *testing.T) {
		t.Parallel()

		reader := ocr.NewReader(textRecognizer{text: "Problem 3\n２x＋７ ＝ ２５\n"})
		resp := doUpload(t, New(WithReader(reader)).Handler(), "image", []byte("photo"))

		if resp.Code != http.StatusOK {
			t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
		}
		var got OCRResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Candidate != "2*x+7=25" {
			t.Errorf("unexpected candidate %q", got.Candidate)
		}
		if got.Digest != ocr.Digest([]byte("photo")) {
			t.Errorf("unexpected digest %q", got.Digest)
		}
	})

	t.Run("ocr failure is unprocessable", func(t *testing.T) {
		t.Parallel()

		reader := ocr.NewReader(textRecognizer{err: errors.New("engine crashed")})
		resp := doUpload(t, New(WithReader(reader)).Handler(), "image", []byte("photo"))

		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.Code)
		}
		var got ErrorResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.ErrorKind != model.KindOCRFailure {
			t.Errorf("unexpected kind %q", got.ErrorKind)
		}
	})

	t.Run("no equation found is unprocessable", func(t *testing.T) {
		t.Parallel()

		reader := ocr.NewReader(textRecognizer{text: "   \n\n"})
		resp := doUpload(t, New(WithReader(reader)).Handler(), "image", []byte("photo"))

		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.Code)
		}
		if !strings.Contains(resp.Body.String(), string(model.KindOCRNoEquationFound)) {
			t.Errorf("expected error kind in body, got %s", resp.Body.String())
		}
	})

	t.Run("missing image field", func(t *testing.T) {
		t.Parallel()

		reader := ocr.NewReader(textRecognizer{text: "x=1"})
		resp := doUpload(t, New(WithReader(reader)).Handler(), "photo", []byte("photo"))

		if resp.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("image too large", func(t *testing.T) {
		t.Parallel()

		reader := ocr.NewReader(textRecognizer{text: "x=1"})
		srv := New(WithReader(reader), WithMaxUploadSize(4))
		resp := doUpload(t, srv.Handler(), "image", []byte("too large"))

		if resp.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected 413, got %d", resp.Code)
		}
	})

	t.Run("newer photo in the same session supersedes", func(t *testing.T) {
		t.Parallel()

		recognizer := newGatedRecognizer()
		srv := New(WithReader(ocr.NewReader(recognizer)))
		handler := srv.Handler()

		first := httptest.NewRecorder()
		firstReq := newUploadRequest(t, "image", []byte("x=1"))
		firstReq.Header.Set(OCRSessionHeader, "student-1")
		done := make(chan struct{})
		go func() {
			defer close(done)
			handler.ServeHTTP(first, firstReq)
		}()
		<-recognizer.entered

		second := httptest.NewRecorder()
		req := newUploadRequest(t, "image", []byte("x=2"))
		req.Header.Set(OCRSessionHeader, "student-1")
		handler.ServeHTTP(second, req)
		close(recognizer.release)
		<-done

		if second.Code != http.StatusOK || !strings.Contains(second.Body.String(), `"candidate":"x=2"`) {
			t.Errorf("newer photo: unexpected response %d %s", second.Code, second.Body.String())
		}
		if first.Code != http.StatusConflict {
			t.Errorf("older photo: expected 409, got %d %s", first.Code, first.Body.String())
		}

		srv.sessionsMu.Lock()
		remaining := len(srv.sessions)
		srv.sessionsMu.Unlock()
		if remaining != 0 {
			t.Errorf("expected finished sessions to be dropped, %d left", remaining)
		}
	})

	t.Run("separate sessions do not interfere", func(t *testing.T) {
		t.Parallel()

		srv := New(WithReader(ocr.NewReader(textRecognizer{text: "x=3"})))
		for _, id := range []string{"a", "b"} {
			req := newUploadRequest(t, "image", []byte("photo-"+id))
			req.Header.Set(OCRSessionHeader, id)
			resp := httptest.NewRecorder()
			srv.Handler().ServeHTTP(resp, req)

			if resp.Code != http.StatusOK {
				t.Errorf("session %s: unexpected status %d", id, resp.Code)
			}
		}
	})

	t.Run("disabled without a reader", func(t *testing.T) {
		t.Parallel()

		resp := doUpload(t, New().Handler(), "image", []byte("photo"))

		if resp.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", resp.Code)
		}
	})
}

func TestServe(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New().Serve(ctx, listener)
	}()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + listener.Addr().String() + "/health")
	if err != nil {
		cancel()
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewHTTPServer(t *testing.T) {
	t.Parallel()

	handler := New().Handler()
	srv := NewHTTPServer("127.0.0.1:8080", handler, false)

	if srv.Addr != "127.0.0.1:8080" {
		t.Errorf("unexpected addr %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 {
		t.Error("expected a read header timeout")
	}
	if srv.Handler != handler {
		t.Error("expected plain handler")
	}

	srv = NewHTTPServer("127.0.0.1:8080", handler, true)
	if srv.Handler == handler {
		t.Error("expected h2c wrapped handler")
	}
}
