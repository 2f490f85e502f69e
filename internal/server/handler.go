package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/ocr"
	"github.com/nao1215/studyhelper/internal/report"
)

// SolveRequest is the body of POST /api/solve.
type SolveRequest struct {
	Equation string `json:"equation"`
	View     string `json:"view"`
	Variable string `json:"variable"`
}

// OCRResponse is the body returned by POST /api/ocr.
type OCRResponse struct {
	// Candidate is the normalized equation, ready to be solved.
	Candidate string `json:"candidate"`
	Line      string `json:"line"`
	Digest    string `json:"digest"`
	Cached    bool   `json:"cached"`
	Rotated   bool   `json:"rotated"`
}

// OCRSessionHeader names the client's OCR session. A photo uploaded with
// the same session supersedes any reading still in progress for it.
const OCRSessionHeader = "X-OCR-Session"

// ErrorResponse is the body of every 4xx and 5xx response.
type ErrorResponse struct {
	Error     string          `json:"error"`
	ErrorKind model.ErrorKind `json:"error_kind,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

var (
	errOCRDisabled   = errors.New("ocr is not configured")
	errMissingImage  = errors.New("multipart field \"image\" is required")
	errImageTooLarge = errors.New("image is too large")
	errBodyTooLarge  = errors.New("request body is too large")
	errSuperseded    = errors.New("reading superseded by a newer photo")
)

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	api.POST("/solve", s.handleSolve)
	api.POST("/ocr", s.handleOCR)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSolve(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxSolveBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit))
			return
		}
		writeError(c, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	var req SolveRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		writeError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	view := s.defaultView
	if req.View != "" {
		v, err := model.ParseViewMode(req.View)
		if err != nil {
			writeError(c, http.StatusBadRequest, err)
			return
		}
		view = v
	}

	variable := req.Variable
	if variable == "" {
		variable = s.defaultVariable
	}

	state, err := s.newPipeline().Execute(c.Request.Context(), model.NewState(req.Equation, view, variable))
	if err != nil {
		_ = c.Error(err) //nolint:errcheck // recorded for the request logger
		writeError(c, statusForInfraError(err), err)
		return
	}

	c.JSON(http.StatusOK, report.NewResponse(state))
}

func (s *Server) handleOCR(c *gin.Context) {
	if s.reader == nil {
		writeError(c, http.StatusServiceUnavailable, errOCRDisabled)
		return
	}

	image, err := s.readUpload(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(c, status, err)
		return
	}

	candidate, err := s.read(c.Request.Context(), c.GetHeader(OCRSessionHeader), image)
	if errors.Is(err, errSuperseded) {
		writeError(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		var domainErr *model.Error
		if errors.As(err, &domainErr) {
			writeError(c, http.StatusUnprocessableEntity, err)
			return
		}
		_ = c.Error(err) //nolint:errcheck // recorded for the request logger
		writeError(c, statusForInfraError(err), err)
		return
	}

	c.JSON(http.StatusOK, OCRResponse{
		Candidate: candidate.Equation,
		Line:      candidate.Line,
		Digest:    candidate.Digest,
		Cached:    candidate.Cached,
		Rotated:   candidate.Metadata.Rotated(),
	})
}

// read reads image directly, or through the client's session when
// sessionID is set.
func (s *Server) read(ctx context.Context, sessionID string, image []byte) (ocr.Candidate, error) {
	if sessionID == "" {
		return s.reader.Read(ctx, image, nil)
	}

	s.sessionsMu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		session = ocr.NewSession(s.reader)
		s.sessions[sessionID] = session
	}
	job, outcomes := session.Start(ctx, image, nil)
	s.sessionsMu.Unlock()

	outcome := <-outcomes

	s.sessionsMu.Lock()
	if session.IsCurrent(job) && s.sessions[sessionID] == session {
		delete(s.sessions, sessionID)
	}
	s.sessionsMu.Unlock()

	if outcome.Superseded {
		s.logger.Debug("ocr reading superseded", "session", sessionID, "job", job)
		return ocr.Candidate{}, errSuperseded
	}
	return outcome.Candidate, outcome.Err
}

// readUpload reads the "image" field of a multipart request.
func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, errMissingImage
	}
	if header.Size > s.maxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes", errImageTooLarge, header.Size)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxUploadSize {
		return nil, errImageTooLarge
	}
	return data, nil
}

func writeError(c *gin.Context, status int, err error) {
	resp := ErrorResponse{
		Error:     err.Error(),
		RequestID: GetRequestID(c),
	}
	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		resp.ErrorKind = domainErr.Kind
		resp.Error = domainErr.Hint()
	}
	c.AbortWithStatusJSON(status, resp)
}

func statusForInfraError(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
