package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/studyhelper/internal/config"
	"github.com/nao1215/studyhelper/internal/database"
	applog "github.com/nao1215/studyhelper/internal/log"
	"github.com/nao1215/studyhelper/internal/ocr"
	"github.com/nao1215/studyhelper/internal/pipeline"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getPersistentString retrieves a string flag from the command or its parent.
func getPersistentString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return value
}

// applyConfigFile reads the global flags, the configuration file and the
// .env file into cfg. Values from the file only replace flags the user did
// not set.
func applyConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFile = getPersistentString(cmd, "log-file")
	cfg.ConfigFilePath = getPersistentString(cmd, "config")

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.ApplyTo(cfg, cmd.Flags().Changed); err != nil {
			return err
		}
	} else if explicitConfigPath {
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	cfg.GeminiAPIKey = config.APIKeyFromEnv()

	return nil
}

// setupLogger creates the logger for a command and makes it the default.
// The returned function closes the log file.
func setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, func(), error) {
	logger, closer, err := applog.NewLogger(applog.Options{
		Writer:   cmd.ErrOrStderr(),
		Verbose:  cfg.Verbose,
		NoColor:  os.Getenv("NO_COLOR") != "",
		FilePath: cfg.LogFile,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	return logger, func() {
		_ = closer.Close() //nolint:errcheck // nothing to report to
	}, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// openHistory opens the history database in cfg.DBDir.
func openHistory(cfg *config.Config, create bool) (*database.HistoryDB, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create

	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newPipelineFactory returns a function creating the solve pipeline for cfg.
// A nil store disables saving.
func newPipelineFactory(cfg *config.Config, store pipeline.HistoryStore, logger *slog.Logger) func() *pipeline.Pipeline {
	return func() *pipeline.Pipeline {
		pipelineOpts := []pipeline.Option{pipeline.WithLogger(logger)}
		configOpts := []pipeline.DefaultPipelineOption{
			pipeline.WithPipelineAutoVariable(cfg.AutoVariable),
		}
		if store != nil {
			// A failed history write is logged; the answer is still returned.
			pipelineOpts = append(pipelineOpts, pipeline.WithContinueOnError(true))
			configOpts = append(configOpts, pipeline.WithPipelineStore(store))
		}
		return pipeline.DefaultPipeline(pipelineOpts, configOpts...)
	}
}

// newRecognizer creates the OCR backend named in cfg.
func newRecognizer(cfg *config.Config) (ocr.Recognizer, error) {
	switch cfg.OCRBackend {
	case config.OCRBackendTesseract:
		return ocr.NewTesseractRecognizer(
			ocr.WithTesseractPath(cfg.TesseractPath),
			ocr.WithTesseractLanguage(cfg.OCRLanguage),
		), nil
	case config.OCRBackendGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, config.ErrMissingGeminiKey
		}
		return ocr.NewGeminiRecognizer(cfg.GeminiAPIKey,
			ocr.WithGeminiModel(cfg.GeminiModel),
			ocr.WithGeminiTimeout(cfg.OCRTimeout),
		), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownOCRBackend, cfg.OCRBackend)
	}
}

// addOCRFlags registers the flags selecting and configuring the OCR backend.
func addOCRFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", config.DefaultOCRBackend,
		"OCR backend (tesseract, gemini)")
	cmd.Flags().String("tesseract", "tesseract",
		"Path to the tesseract binary")
	cmd.Flags().String("lang", config.DefaultOCRLanguage,
		"Tesseract language")
	cmd.Flags().String("model", config.DefaultGeminiModel,
		"Gemini model (requires GEMINI_API_KEY)")
	cmd.Flags().Duration("ocr-timeout", config.DefaultOCRTimeout,
		"Timeout for reading one photo")
}

// readOCRFlags copies the OCR flags into cfg.
func readOCRFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	if cfg.OCRBackend, err = cmd.Flags().GetString("backend"); err != nil {
		return err
	}
	if cfg.TesseractPath, err = cmd.Flags().GetString("tesseract"); err != nil {
		return err
	}
	if cfg.OCRLanguage, err = cmd.Flags().GetString("lang"); err != nil {
		return err
	}
	if cfg.GeminiModel, err = cmd.Flags().GetString("model"); err != nil {
		return err
	}
	if cfg.OCRTimeout, err = cmd.Flags().GetDuration("ocr-timeout"); err != nil {
		return err
	}
	return nil
}

// addHistoryFlags registers the flags locating the history database.
func addHistoryFlags(cmd *cobra.Command, withSave bool) {
	if withSave {
		cmd.Flags().BoolP("save", "s", false,
			"Save solves (and cache OCR results) in the history database")
	}
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
}

// readHistoryFlags copies the history flags into cfg.
func readHistoryFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Lookup("save") != nil {
		save, err := cmd.Flags().GetBool("save")
		if err != nil {
			return err
		}
		cfg.SaveToDB = save
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	return nil
}

// createOutputFile creates path and its parent directories.
func createOutputFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// writeLine writes s and a newline to w.
func writeLine(w io.Writer, s string) {
	_, _ = fmt.Fprintln(w, s) //nolint:errcheck // console output
}
