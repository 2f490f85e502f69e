package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/nao1215/studyhelper/internal/config"
	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/ocr"
)

// NewOCRCmd creates the ocr command.
func NewOCRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr IMAGE",
		Short: "Read an equation from a photo",
		Long: `OCR reads the text in a photo and prints the first line that looks like an
equation, normalized so it can be passed to 'studyhelper solve'.

The equation is not solved. Check it first: recognition makes mistakes.

Two backends are available:
  tesseract  the tesseract command, installed separately (default)
  gemini     Google's Gemini vision model; needs GEMINI_API_KEY
             (environment or .env file)

Examples:
  # Read with tesseract
  studyhelper ocr worksheet.jpg

  # Read with Gemini and solve the result
  studyhelper solve "$(studyhelper ocr --backend gemini worksheet.jpg)"

  # Cache recognized text so the same photo is read only once
  studyhelper ocr --save worksheet.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: runOCRCmd,
	}

	addOCRFlags(cmd)
	cmd.Flags().BoolP("json", "j", false,
		"Output the full candidate as JSON")
	addHistoryFlags(cmd, true)

	return cmd
}

// runOCRCmd executes the ocr command.
func runOCRCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildOCRConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.ValidateOCR(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	candidate, err := readCandidate(ctx, cmd.ErrOrStderr(), cfg, image, logger)
	if err != nil {
		var domainErr *model.Error
		if errors.As(err, &domainErr) {
			return errors.New(domainErr.Hint())
		}
		return err
	}

	return outputCandidate(cmd.OutOrStdout(), cfg, candidate)
}

// buildOCRConfig creates a Config from the ocr flags.
func buildOCRConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := readOCRFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	if err := readHistoryFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readCandidate reads image in a background session, printing progress to
// progressOut.
func readCandidate(ctx context.Context, progressOut io.Writer, cfg *config.Config, image []byte, logger *slog.Logger) (ocr.Candidate, error) {
	recognizer, err := newRecognizer(cfg)
	if err != nil {
		return ocr.Candidate{}, err
	}

	readerOpts := []ocr.ReaderOption{
		ocr.WithReaderLogger(logger),
		ocr.WithMaxImageSize(cfg.MaxImageSize),
	}

	// The history database doubles as the OCR cache.
	if cfg.SaveToDB {
		db, err := openHistory(cfg, true)
		if err != nil {
			return ocr.Candidate{}, err
		}
		defer db.Close()
		readerOpts = append(readerOpts, ocr.WithCache(db))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.OCRTimeout)
	defer cancel()

	session := ocr.NewSession(ocr.NewReader(recognizer, readerOpts...))
	defer session.Wait()

	_, outcomes := session.Start(ctx, image, func(p ocr.Progress) {
		_, _ = fmt.Fprintf(progressOut, "%s... %3.0f%%\n", p.Status, p.Progress*100) //nolint:errcheck // progress output
	})
	outcome := <-outcomes

	if errors.Is(outcome.Err, context.DeadlineExceeded) {
		return outcome.Candidate, fmt.Errorf("ocr timed out after %s", cfg.OCRTimeout)
	}
	return outcome.Candidate, outcome.Err
}

// outputCandidate prints the candidate equation, or the whole candidate as
// JSON.
func outputCandidate(out io.Writer, cfg *config.Config, candidate ocr.Candidate) error {
	if cfg.JSONReport {
		data, err := json.MarshalIndent(candidate, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal candidate: %w", err)
		}
		writeLine(out, string(data))
		return nil
	}

	writeLine(out, candidate.Equation)
	if cfg.Verbose {
		writeLine(out, "recognized: "+candidate.Line)
		writeLine(out, "digest: "+candidate.Digest)
	}
	return nil
}
