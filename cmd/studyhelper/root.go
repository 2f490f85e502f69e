package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for studyhelper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studyhelper",
		Short: "Step-by-step equation solver for students",
		Long: `studyhelper solves algebra equations and shows how.

Linear equations such as 2x+7=25 are solved the way you would on paper,
one step at a time. Quadratics and other equations are solved by the
built-in computer-algebra engine. The view mode decides how much is shown:
only a hint, the steps, or the full solution with the answer.

Equations can also be read from a photo of a worksheet (studyhelper ocr).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .studyhelper in current or home directory)")
	cmd.PersistentFlags().String("log-file", "",
		"Also write logs to this file (rotated automatically)")

	// Add subcommands
	cmd.AddCommand(NewSolveCmd())
	cmd.AddCommand(NewOCRCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
