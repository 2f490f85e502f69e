package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// ErrMissingAPIKey is returned when the Gemini backend has no API key.
var ErrMissingAPIKey = errors.New("gemini API key is not set: export GEMINI_API_KEY or add it to .env")

// DefaultGeminiModel is the vision model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiPrompt asks for a plain transcription that ExtractEquation can read.
const geminiPrompt = "Transcribe the handwritten or printed math in this image as plain text. " +
	"Write one equation per line using ASCII: ^ for powers, * for multiplication, / for division. " +
	"Do not solve anything and do not add explanations."

// GeminiRecognizer reads images with a Gemini vision model.
type GeminiRecognizer struct {
	apiKey  string
	model   string
	timeout time.Duration

	mu     sync.Mutex
	client *genai.Client
}

// GeminiOption configures a GeminiRecognizer.
type GeminiOption func(*GeminiRecognizer)

// WithGeminiModel sets the model name.
func WithGeminiModel(model string) GeminiOption {
	return func(g *GeminiRecognizer) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGeminiTimeout sets the HTTP timeout for each request.
func WithGeminiTimeout(timeout time.Duration) GeminiOption {
	return func(g *GeminiRecognizer) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// NewGeminiRecognizer creates a recognizer authenticating with apiKey.
// The client is created on first use.
func NewGeminiRecognizer(apiKey string, opts ...GeminiOption) *GeminiRecognizer {
	g := &GeminiRecognizer{
		apiKey:  apiKey,
		model:   DefaultGeminiModel,
		timeout: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Name returns the backend name.
func (g *GeminiRecognizer) Name() string {
	return "gemini"
}

// Recognize sends image to the model and returns the transcription.
func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Result, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return Result{}, err
	}

	progress.report("uploading image", 0)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geminiPrompt),
			genai.NewPartFromBytes(image, http.DetectContentType(image)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	response, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Result{}, fmt.Errorf("generate content: %w", err)
	}

	progress.report("done", 1)

	return Result{Text: responseText(response)}, nil
}

func (g *GeminiRecognizer) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(g.timeout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	g.client = client
	return client, nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}
	content := response.Candidates[0].Content
	if content == nil {
		return ""
	}

	texts := make([]string, 0, len(content.Parts))
	for _, part := range content.Parts {
		if part == nil || part.Text == "" || part.Thought {
			continue
		}
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "\n")
}

// Ensure GeminiRecognizer implements Recognizer.
var _ Recognizer = (*GeminiRecognizer)(nil)
