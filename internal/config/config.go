package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/studyhelper/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "studyhelper"

	// DefaultView shows the hint and the steps but keeps the answer hidden
	// until the student asks for it.
	DefaultView = model.ViewSteps

	// DefaultVariable is the symbol solved for.
	DefaultVariable = model.DefaultVariable

	// DefaultBatchSize is the number of equations solved concurrently.
	DefaultBatchSize = 10

	// DefaultOCRBackend runs locally and needs no API key.
	DefaultOCRBackend = "tesseract"

	// DefaultOCRLanguage is the tesseract language code.
	DefaultOCRLanguage = "eng"

	// DefaultGeminiModel is the vision model for the gemini backend.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultOCRTimeout bounds a single recognition.
	DefaultOCRTimeout = 60 * time.Second

	// DefaultMaxImageSize limits uploaded photos (10MB).
	DefaultMaxImageSize = 10 * 1024 * 1024

	// DefaultServerAddr is the listen address of the HTTP server.
	DefaultServerAddr = ":8080"

	// DefaultHistoryLimit is the number of solves listed by history.
	DefaultHistoryLimit = 20
)

// OCR backend names.
const (
	OCRBackendTesseract = "tesseract"
	OCRBackendGemini    = "gemini"
)

// Config holds all configuration options for studyhelper.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed to commands explicitly.
type Config struct {
	// View selects which parts of a result are shown.
	View model.ViewMode

	// Variable is the symbol solved for.
	Variable string

	// AutoVariable switches to the only letter in an equation when
	// Variable does not appear in it.
	AutoVariable bool

	// Equations are the equations given as arguments.
	Equations []string

	// ListFile is a file with one equation per line.
	ListFile string

	// BatchSize is the number of equations solved concurrently.
	BatchSize int

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is written in the selected format in addition to the
	// terminal output. Directories are created when missing.
	ReportFile string

	// Verbose enables debug logging and verbose text output.
	Verbose bool

	// LogFile, when set, receives JSON logs with rotation.
	LogFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .studyhelper is searched in the current and home directories.
	ConfigFilePath string

	// SaveToDB stores every solve in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/studyhelper on Linux).
	DBDir string

	// HistoryLimit is the number of solves listed by history. 0 lists all.
	HistoryLimit int

	// OCRBackend is "tesseract" or "gemini".
	OCRBackend string

	// TesseractPath is the tesseract executable.
	TesseractPath string

	// OCRLanguage is the tesseract language code.
	OCRLanguage string

	// GeminiModel is the vision model for the gemini backend.
	GeminiModel string

	// GeminiAPIKey authenticates the gemini backend. It is read from the
	// environment or .env, never from the config file.
	GeminiAPIKey string

	// OCRTimeout bounds a single recognition.
	OCRTimeout time.Duration

	// MaxImageSize is the largest accepted photo in bytes.
	MaxImageSize int

	// ServerAddr is the listen address of the HTTP server.
	ServerAddr string

	// ServerH2C serves HTTP/2 over cleartext.
	ServerH2C bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		View:          DefaultView,
		Variable:      DefaultVariable,
		AutoVariable:  true,
		BatchSize:     DefaultBatchSize,
		DBDir:         XDGDataDir(),
		HistoryLimit:  DefaultHistoryLimit,
		OCRBackend:    DefaultOCRBackend,
		TesseractPath: "tesseract",
		OCRLanguage:   DefaultOCRLanguage,
		GeminiModel:   DefaultGeminiModel,
		OCRTimeout:    DefaultOCRTimeout,
		MaxImageSize:  DefaultMaxImageSize,
		ServerAddr:    DefaultServerAddr,
	}
}

// XDGDataDir returns the XDG data directory for studyhelper.
// On Linux: ~/.local/share/studyhelper
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for studyhelper.
// On Linux: ~/.config/studyhelper
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if _, err := model.ParseViewMode(string(c.View)); err != nil {
		return ErrInvalidView
	}

	if !isVariable(c.Variable) {
		return ErrInvalidVariable
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.HistoryLimit < 0 {
		return ErrInvalidHistoryLimit
	}

	if c.OCRBackend != OCRBackendTesseract && c.OCRBackend != OCRBackendGemini {
		return ErrUnknownOCRBackend
	}

	if c.OCRTimeout <= 0 {
		return ErrInvalidOCRTimeout
	}

	if c.MaxImageSize <= 0 {
		return ErrInvalidMaxImageSize
	}

	return nil
}

// ValidateSolve checks the options of the solve command.
func (c *Config) ValidateSolve() error {
	if len(c.Equations) == 0 && c.ListFile == "" {
		return ErrNoEquation
	}
	return c.Validate()
}

// ValidateOCR checks the options of commands that read photos.
func (c *Config) ValidateOCR() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.OCRBackend == OCRBackendGemini && c.GeminiAPIKey == "" {
		return ErrMissingGeminiKey
	}
	return nil
}

func isVariable(s string) bool {
	if len(s) != 1 {
		return false
	}
	ch := s[0]
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
