package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/studyhelper/internal/config"
	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/pipeline"
	"github.com/nao1215/studyhelper/internal/report"
)

// NewSolveCmd creates the solve command.
func NewSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve [equation...]",
		Short: "Solve equations step by step",
		Long: `Solve shows how to solve one or more equations.

Linear equations (ax + b = c) are solved by isolating the variable, one
step at a time. Other equations are solved by the computer-algebra engine.
Problems with the input, such as a missing '=' sign, are shown as a hint.

The view mode decides what is shown:
  none   nothing but a placeholder
  hint   a short tip
  steps  the tip and the steps (default)
  full   the tip, the steps and the answer

Examples:
  # Solve a linear equation
  studyhelper solve "2x+7=25" --view full

  # Solve for another variable
  studyhelper solve "3y+1=10" --var y

  # Solve every line of a worksheet, 4 at a time
  studyhelper solve --list worksheet.txt --batch 4

  # Write a Markdown worksheet and keep the text output on screen
  studyhelper solve --list worksheet.txt --markdown -o answers.md

  # Remember solves for 'studyhelper history'
  studyhelper solve --save "x^2-5x+6=0"`,
		Args: cobra.ArbitraryArgs,
		RunE: runSolveCmd,
	}

	// Input flags
	cmd.Flags().StringP("list", "l", "",
		"Read equations from a file, one per line ('#' starts a comment)")

	// Solve behavior flags
	cmd.Flags().String("view", string(config.DefaultView),
		"What to show: none, hint, steps, full")
	cmd.Flags().String("var", config.DefaultVariable,
		"Variable to solve for")
	cmd.Flags().Bool("auto-var", true,
		"Use the only letter in the equation when --var does not occur")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of equations solved concurrently")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file (creates directories if needed)")

	addHistoryFlags(cmd, true)

	return cmd
}

// runSolveCmd executes the solve command.
func runSolveCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildSolveConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateSolve(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	return runSolve(ctx, cmd.OutOrStdout(), cfg, logger)
}

// buildSolveConfig creates a Config from the solve flags.
func buildSolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ListFile, err = cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}

	view, err := cmd.Flags().GetString("view")
	if err != nil {
		return nil, err
	}
	cfg.View = model.ViewMode(strings.ToLower(strings.TrimSpace(view)))

	cfg.Variable, err = cmd.Flags().GetString("var")
	if err != nil {
		return nil, err
	}

	cfg.AutoVariable, err = cmd.Flags().GetBool("auto-var")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	if err := readHistoryFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	// Get positional arguments (equations)
	cfg.Equations = args

	return cfg, nil
}

// runSolve solves every equation and writes the report.
func runSolve(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	equations, err := collectEquations(cfg)
	if err != nil {
		return err
	}
	if len(equations) == 0 {
		return config.ErrNoEquation
	}

	logger.Info("starting solve",
		"equations", len(equations),
		"view", cfg.View,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var store pipeline.HistoryStore
	if cfg.SaveToDB {
		db, err := openHistory(cfg, true)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
		logger.Info("database opened", "path", db.Path())
	}

	factory := newPipelineFactory(cfg, store, logger)

	states := make([]model.State, len(equations))
	for i, eq := range equations {
		states[i] = model.NewState(eq, cfg.View, cfg.Variable)
	}

	var results []model.State
	if len(states) == 1 {
		final, err := factory().Execute(ctx, states[0])
		if err != nil {
			return fmt.Errorf("solve failed: %w", err)
		}
		results = []model.State{final}
	} else {
		bp := pipeline.NewBatchProcessor(factory,
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)
		results, err = bp.ProcessBatch(ctx, states)
		if err != nil {
			return fmt.Errorf("batch solve failed: %w", err)
		}
	}

	return outputReport(out, cfg, results)
}

// collectEquations returns the equations from the arguments followed by
// those in the list file.
func collectEquations(cfg *config.Config) ([]string, error) {
	equations := make([]string, 0, len(cfg.Equations))
	equations = append(equations, cfg.Equations...)

	if cfg.ListFile == "" {
		return equations, nil
	}

	listed, err := readEquationList(cfg.ListFile)
	if err != nil {
		return nil, err
	}
	return append(equations, listed...), nil
}

// readEquationList reads one equation per line. Blank lines and lines
// starting with '#' are skipped.
func readEquationList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided list path
	if err != nil {
		return nil, fmt.Errorf("failed to open equation list: %w", err)
	}
	defer f.Close()

	var equations []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		equations = append(equations, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read equation list: %w", err)
	}
	return equations, nil
}

// outputReport writes the results in the requested format. With --output
// the report goes to the file and the plain text summary to out.
func outputReport(out io.Writer, cfg *config.Config, states []model.State) error {
	var writer report.Writer

	if cfg.ReportFile != "" {
		f, err := createOutputFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()

		writer = report.NewMultiWriter(
			report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)),
			newReportWriter(f, cfg),
		)
	} else {
		writer = newReportWriter(out, cfg)
	}

	var err error
	if len(states) == 1 {
		_, err = writer.Write(states[0])
	} else {
		_, err = writer.WriteBatch(states)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// newReportWriter returns the writer for the configured format.
func newReportWriter(w io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
