package config

import (
	"fmt"
	"time"

	"github.com/nao1215/studyhelper/internal/model"
)

// File represents the structure of the .studyhelper configuration file.
type File struct {
	// Defaults are the solve defaults.
	Defaults DefaultsSection `yaml:"defaults,omitempty"`

	// OCR configures photo recognition.
	OCR OCRSection `yaml:"ocr,omitempty"`

	// Server configures the HTTP server.
	Server ServerSection `yaml:"server,omitempty"`

	// History configures the solve history database.
	History HistorySection `yaml:"history,omitempty"`
}

// DefaultsSection holds solve defaults.
type DefaultsSection struct {
	// View is one of none, hint, steps, full.
	View string `yaml:"view,omitempty"`

	// Variable is the symbol solved for.
	Variable string `yaml:"variable,omitempty"`

	// AutoVariable enables automatic variable detection. Nil keeps the default.
	AutoVariable *bool `yaml:"autoVariable,omitempty"`

	// BatchSize is the number of equations solved concurrently.
	BatchSize int `yaml:"batchSize,omitempty"`
}

// OCRSection configures photo recognition.
type OCRSection struct {
	// Backend is tesseract or gemini.
	Backend string `yaml:"backend,omitempty"`

	// TesseractPath is the tesseract executable.
	TesseractPath string `yaml:"tesseractPath,omitempty"`

	// Language is the tesseract language code.
	Language string `yaml:"language,omitempty"`

	// GeminiModel is the vision model for the gemini backend.
	GeminiModel string `yaml:"geminiModel,omitempty"`

	// Timeout is a duration such as "30s".
	Timeout string `yaml:"timeout,omitempty"`
}

// ServerSection configures the HTTP server.
type ServerSection struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr,omitempty"`

	// H2C accepts HTTP/2 without TLS.
	H2C bool `yaml:"h2c,omitempty"`
}

// HistorySection configures the history database.
type HistorySection struct {
	// Enabled saves every solve.
	Enabled bool `yaml:"enabled,omitempty"`

	// Dir is the database directory.
	Dir string `yaml:"dir,omitempty"`

	// Limit is the number of solves listed by history.
	Limit int `yaml:"limit,omitempty"`
}

// ApplyTo copies the values set in the file into c. A value is skipped when
// the corresponding command line flag was set, so that flags take
// precedence over the file. changed reports whether a flag was set; it may
// be nil.
func (f *File) ApplyTo(c *Config, changed func(flag string) bool) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	apply := func(flag string, set bool, fn func()) {
		if set && !changed(flag) {
			fn()
		}
	}

	if f.Defaults.View != "" && !changed("view") {
		view, err := model.ParseViewMode(f.Defaults.View)
		if err != nil {
			return fmt.Errorf("config file defaults.view: %w", err)
		}
		c.View = view
	}
	apply("var", f.Defaults.Variable != "", func() { c.Variable = f.Defaults.Variable })
	apply("auto-var", f.Defaults.AutoVariable != nil, func() { c.AutoVariable = *f.Defaults.AutoVariable })
	apply("batch", f.Defaults.BatchSize != 0, func() { c.BatchSize = f.Defaults.BatchSize })

	apply("backend", f.OCR.Backend != "", func() { c.OCRBackend = f.OCR.Backend })
	apply("tesseract", f.OCR.TesseractPath != "", func() { c.TesseractPath = f.OCR.TesseractPath })
	apply("lang", f.OCR.Language != "", func() { c.OCRLanguage = f.OCR.Language })
	apply("model", f.OCR.GeminiModel != "", func() { c.GeminiModel = f.OCR.GeminiModel })
	if f.OCR.Timeout != "" && !changed("ocr-timeout") {
		timeout, err := time.ParseDuration(f.OCR.Timeout)
		if err != nil {
			return fmt.Errorf("config file ocr.timeout: %w", err)
		}
		c.OCRTimeout = timeout
	}

	apply("addr", f.Server.Addr != "", func() { c.ServerAddr = f.Server.Addr })
	apply("h2c", f.Server.H2C, func() { c.ServerH2C = true })

	apply("save", f.History.Enabled, func() { c.SaveToDB = true })
	apply("db-dir", f.History.Dir != "", func() { c.DBDir = f.History.Dir })
	apply("limit", f.History.Limit != 0, func() { c.HistoryLimit = f.History.Limit })

	return nil
}
