package ocr

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/studyhelper/internal/equation"
	"github.com/nao1215/studyhelper/internal/model"
)

// DefaultMaxImageSize is the largest image the Reader accepts (10MB).
const DefaultMaxImageSize = 10 * 1024 * 1024

// Cache stores recognized text by image digest.
type Cache interface {
	// LookupOCR returns the cached text for digest, if any.
	LookupOCR(ctx context.Context, digest string) (text string, ok bool, err error)

	// StoreOCR caches the recognized text for digest.
	StoreOCR(ctx context.Context, digest, text string) error
}

// Candidate is the equation read from a photo.
type Candidate struct {
	// Line is the extracted line as recognized.
	Line string `json:"line"`

	// Equation is Line after normalization. It is what goes into the input
	// field; it has not been solved.
	Equation string `json:"equation"`

	// Text is the complete recognized text.
	Text string `json:"text"`

	// Digest is the hex SHA3-256 digest of the image.
	Digest string `json:"digest"`

	// Cached reports whether the text came from the cache.
	Cached bool `json:"cached"`

	// Metadata is the image's EXIF information.
	Metadata ImageMetadata `json:"metadata"`
}

// Reader turns photos into candidate equations.
type Reader struct {
	recognizer   Recognizer
	cache        Cache
	maxImageSize int
	logger       *slog.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithCache enables caching recognitions by image digest.
func WithCache(cache Cache) ReaderOption {
	return func(r *Reader) {
		r.cache = cache
	}
}

// WithMaxImageSize sets the largest accepted image in bytes.
func WithMaxImageSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxImageSize = n
		}
	}
}

// WithReaderLogger sets a custom logger.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader creates a Reader backed by recognizer.
func NewReader(recognizer Recognizer, opts ...ReaderOption) *Reader {
	r := &Reader{
		recognizer:   recognizer,
		maxImageSize: DefaultMaxImageSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Digest returns the hex SHA3-256 digest of image.
func Digest(image []byte) string {
	sum := sha3.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Read recognizes the text in image and returns the candidate equation.
//
// Failures are *model.Error values of kind ocr_failure or
// ocr_no_equation_found, except for context cancellation which is returned
// as is.
func (r *Reader) Read(ctx context.Context, image []byte, progress ProgressFunc) (Candidate, error) {
	if len(image) == 0 {
		return Candidate{}, model.NewError(model.KindOCRFailure, "image is empty")
	}
	if len(image) > r.maxImageSize {
		return Candidate{}, model.NewError(model.KindOCRFailure,
			fmt.Sprintf("image is larger than %d bytes", r.maxImageSize))
	}

	candidate := Candidate{
		Digest:   Digest(image),
		Metadata: InspectImage(image),
	}
	if candidate.Metadata.Rotated() {
		r.logger.Warn("photo is stored rotated, recognition may fail",
			"orientation", candidate.Metadata.Orientation,
			"digest", candidate.Digest,
		)
	}
	if candidate.Metadata.Software != "" {
		r.logger.Debug("photo metadata",
			"software", candidate.Metadata.Software,
			"camera", candidate.Metadata.Camera,
		)
	}

	text, cached := r.lookup(ctx, candidate.Digest)
	if cached {
		progress.report("cached", 1)
	} else {
		result, err := r.recognizer.Recognize(ctx, image, progress)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return candidate, err
			}
			r.logger.Debug("recognition failed",
				"backend", r.recognizer.Name(),
				"error", err,
			)
			return candidate, model.WrapError(model.KindOCRFailure, err)
		}
		text = result.Text
		r.store(ctx, candidate.Digest, text)
	}
	candidate.Text = text
	candidate.Cached = cached

	line, err := ExtractEquation(text)
	if err != nil {
		return candidate, err
	}
	candidate.Line = line
	candidate.Equation = equation.Normalize(line)
	if candidate.Equation == "" {
		return candidate, model.NewError(model.KindOCRNoEquationFound, "")
	}

	return candidate, nil
}

// lookup consults the cache. Cache failures are logged and treated as misses.
func (r *Reader) lookup(ctx context.Context, digest string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	text, ok, err := r.cache.LookupOCR(ctx, digest)
	if err != nil {
		r.logger.Warn("ocr cache lookup failed", "digest", digest, "error", err)
		return "", false
	}
	return text, ok
}

func (r *Reader) store(ctx context.Context, digest, text string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.StoreOCR(ctx, digest, text); err != nil {
		r.logger.Warn("ocr cache store failed", "digest", digest, "error", err)
	}
}
