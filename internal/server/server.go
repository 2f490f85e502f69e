package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/ocr"
	"github.com/nao1215/studyhelper/internal/pipeline"
)

const (
	// shutdownTimeout bounds how long Run waits for in-flight requests.
	shutdownTimeout = 10 * time.Second

	// DefaultMaxSolveBodySize limits the JSON body of a solve request.
	DefaultMaxSolveBodySize = 64 << 10
)

// Server serves the HTTP API.
type Server struct {
	// newPipeline creates the pipeline for one solve request.
	newPipeline func() *pipeline.Pipeline

	// reader reads photos. The OCR route answers 503 when it is nil.
	reader *ocr.Reader

	// defaultView is used when a request names no view.
	defaultView model.ViewMode

	// defaultVariable is used when a request names no variable.
	defaultVariable string

	// maxUploadSize limits multipart uploads.
	maxUploadSize int64

	// maxSolveBodySize limits the body of POST /api/solve.
	maxSolveBodySize int64

	// h2c serves HTTP/2 without TLS alongside HTTP/1.1.
	h2c bool

	// sessions holds the OCR session of each client that sends
	// X-OCR-Session. A session is dropped once it has no newer job.
	sessionsMu sync.Mutex
	sessions   map[string]*ocr.Session

	logger *slog.Logger
	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithPipelineFactory sets the function creating a pipeline per request.
func WithPipelineFactory(factory func() *pipeline.Pipeline) Option {
	return func(s *Server) {
		if factory != nil {
			s.newPipeline = factory
		}
	}
}

// WithReader enables the OCR route.
func WithReader(reader *ocr.Reader) Option {
	return func(s *Server) {
		s.reader = reader
	}
}

// WithDefaultView sets the view used when a request names none.
func WithDefaultView(view model.ViewMode) Option {
	return func(s *Server) {
		s.defaultView = view
	}
}

// WithDefaultVariable sets the variable used when a request names none.
func WithDefaultVariable(variable string) Option {
	return func(s *Server) {
		if variable != "" {
			s.defaultVariable = variable
		}
	}
}

// WithMaxUploadSize limits the size of uploaded photos.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithMaxSolveBodySize limits the size of solve request bodies.
func WithMaxSolveBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSolveBodySize = n
		}
	}
}

// WithH2C enables HTTP/2 over cleartext for clients behind a proxy.
func WithH2C(enabled bool) Option {
	return func(s *Server) {
		s.h2c = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server with its routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		newPipeline:     func() *pipeline.Pipeline { return pipeline.DefaultPipeline(nil) },
		defaultView:     model.ViewSteps,
		defaultVariable: model.DefaultVariable,
		maxUploadSize:   ocr.DefaultMaxImageSize,

		maxSolveBodySize: DefaultMaxSolveBodySize,
		sessions:         make(map[string]*ocr.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	router := gin.New()
	router.MaxMultipartMemory = s.maxUploadSize
	router.Use(
		RequestID(),
		RequestLogger(s.logger),
		gin.Recovery(),
	)
	s.registerRoutes(router)
	s.router = router

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewHTTPServer creates an http.Server for addr. With enableH2C the handler
// also accepts HTTP/2 without TLS.
func NewHTTPServer(addr string, handler http.Handler, enableH2C bool) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if enableH2C {
		server.Handler = h2c.NewHandler(handler, &http2.Server{})
	}

	return server
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := NewHTTPServer(listener.Addr().String(), s.router, s.h2c)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Serve(listener)
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String(), "h2c", s.h2c)

	var err error
	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error("http server shutdown failed", "error", shutdownErr)
			_ = srv.Close() //nolint:errcheck // already failing
		}
		err = <-serverErr
	case err = <-serverErr:
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
