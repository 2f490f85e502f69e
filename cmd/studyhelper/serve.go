package main

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nao1215/studyhelper/internal/config"
	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/ocr"
	"github.com/nao1215/studyhelper/internal/pipeline"
	"github.com/nao1215/studyhelper/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the solver over HTTP",
		Long: `Serve starts an HTTP server exposing the solver and the photo reader.

Endpoints:
  GET  /health     liveness probe
  POST /api/solve  {"equation": "2x+7=25", "view": "full", "variable": "x"}
  POST /api/ocr    multipart form with an "image" field

Examples:
  # Listen on the default address (:8080)
  studyhelper serve

  # Listen on localhost only, saving every solve
  studyhelper serve --addr 127.0.0.1:9000 --save`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultServerAddr,
		"Address to listen on")
	cmd.Flags().Bool("h2c", false,
		"Accept HTTP/2 without TLS (for use behind a reverse proxy)")
	cmd.Flags().String("view", string(config.DefaultView),
		"View used when a request names none")
	cmd.Flags().String("var", config.DefaultVariable,
		"Variable used when a request names none")
	addOCRFlags(cmd)
	addHistoryFlags(cmd, true)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithDefaultView(cfg.View),
		server.WithDefaultVariable(cfg.Variable),
		server.WithMaxUploadSize(int64(cfg.MaxImageSize)),
	}

	var store pipeline.HistoryStore
	readerOpts := []ocr.ReaderOption{
		ocr.WithReaderLogger(logger),
		ocr.WithMaxImageSize(cfg.MaxImageSize),
	}
	if cfg.SaveToDB {
		db, err := openHistory(cfg, true)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
		readerOpts = append(readerOpts, ocr.WithCache(db))
	}
	opts = append(opts, server.WithPipelineFactory(newPipelineFactory(cfg, store, logger)))

	recognizer, err := newRecognizer(cfg)
	switch {
	case errors.Is(err, config.ErrMissingGeminiKey):
		logger.Warn("OCR disabled: GEMINI_API_KEY is not set")
	case err != nil:
		return err
	default:
		opts = append(opts, server.WithReader(ocr.NewReader(recognizer, readerOpts...)))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", cfg.ServerAddr)
	opts = append(opts, server.WithH2C(cfg.ServerH2C))
	return server.New(opts...).Run(ctx, cfg.ServerAddr)
}

// buildServeConfig creates a Config from the serve flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ServerAddr, err = cmd.Flags().GetString("addr")
	if err != nil {
		return nil, err
	}

	cfg.ServerH2C, err = cmd.Flags().GetBool("h2c")
	if err != nil {
		return nil, err
	}

	view, err := cmd.Flags().GetString("view")
	if err != nil {
		return nil, err
	}
	cfg.View = model.ViewMode(view)

	cfg.Variable, err = cmd.Flags().GetString("var")
	if err != nil {
		return nil, err
	}

	if err := readOCRFlags(cmd, cfg); err != nil {
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
