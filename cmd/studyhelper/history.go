package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/nao1215/studyhelper/internal/config"
	"github.com/nao1215/studyhelper/internal/database"
	"github.com/nao1215/studyhelper/internal/model"
	"github.com/nao1215/studyhelper/internal/report"
)

// errSolveNotFound is returned by 'history --id' for an unknown ID.
var errSolveNotFound = errors.New("saved solve not found")

// NewHistoryCmd creates the history command.
// This command lists solves stored with 'solve --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved solves",
		Long: `History lists the solves saved with 'studyhelper solve --save', newest first.

Examples:
  # Show the last 20 solves
  studyhelper history

  # Show every saved solve as JSON
  studyhelper history --limit 0 --json

  # Turn the last 10 solves into a Markdown worksheet
  studyhelper history -n 10 --markdown > review.md

  # Count solves by class and error kind
  studyhelper history --summary

  # Show solve 12 again with its answer revealed
  studyhelper history --id 12 --view full`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Number of solves to show (0 shows all)")
	cmd.Flags().BoolP("summary", "S", false,
		"Show counts instead of the list")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().Int64("id", 0,
		"Show a single saved solve by ID")
	cmd.Flags().String("view", "",
		"View used with --id: none, hint, steps, full (default: the saved view)")
	addHistoryFlags(cmd, false)

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.HistoryLimit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	summary, err := cmd.Flags().GetBool("summary")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	viewName, err := cmd.Flags().GetString("view")
	if err != nil {
		return err
	}
	var view model.ViewMode
	if viewName != "" {
		if view, err = model.ParseViewMode(viewName); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
	}
	if err := readHistoryFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyConfigFile(cmd, cfg); err != nil {
		return err
	}

	// Validate before opening the database so a bad flag never locks it.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	db, err := openHistory(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if id > 0 {
		return showSolve(ctx, out, cfg, db, id, view)
	}

	if summary {
		s, err := db.Summarize(ctx)
		if err != nil {
			return fmt.Errorf("failed to summarize history: %w", err)
		}
		return outputSummary(out, cfg, s)
	}

	records, err := db.ListSolves(ctx, cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return outputHistory(out, cfg, records)
}

// showSolve prints one saved solve through the report writers. A non-empty
// view replaces the view the solve was saved with.
func showSolve(ctx context.Context, out io.Writer, cfg *config.Config, db *database.HistoryDB, id int64, view model.ViewMode) error {
	record, err := db.GetSolve(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: %d", errSolveNotFound, id)
	}

	state := record.State()
	if view != "" {
		state = state.WithView(view)
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	_, err = w.Write(state)
	return err
}

// outputHistory prints records in the requested format.
func outputHistory(out io.Writer, cfg *config.Config, records []database.SolveRecord) error {
	switch {
	case cfg.JSONReport:
		if records == nil {
			records = []database.SolveRecord{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		writeLine(out, string(data))
		return nil

	case cfg.MarkdownReport:
		states := make([]model.State, len(records))
		for i, r := range records {
			states[i] = r.State()
		}
		_, err := report.NewMarkdownWriter(out).WriteBatch(states)
		return err
	}

	if len(records) == 0 {
		writeLine(out, "No solve history found")
		return nil
	}

	fmt.Fprintf(out, "Solve history (%d):\n\n", len(records))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %-24s  %s\n", "ID", "Date", "Class", "Equation", "Result")
	for _, r := range records {
		result := r.Answer
		if r.ErrorKind != "" {
			result = "[" + string(r.ErrorKind) + "]"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-9s  %-24s  %s\n",
			r.ID,
			r.SolvedAt.Local().Format("2006-01-02 15:04:05"),
			r.Class,
			r.Input,
			result,
		)
	}
	return nil
}

// outputSummary prints the history counts.
func outputSummary(out io.Writer, cfg *config.Config, s database.Summary) error {
	if cfg.JSONReport {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		writeLine(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Total solves: %d\n", s.Total)
	printCounts(out, "By class", s.ByClass)
	printCounts(out, "By error kind", s.ByErrorKind)
	return nil
}

// printCounts prints a titled list of counts in key order.
func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	fmt.Fprintf(out, "\n%s:\n", title)
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(out, "  %-24s  %d\n", k, counts[k])
	}
}
