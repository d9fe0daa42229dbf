// dstrans — dataset translator: translates text columns of ML datasets
// with a locally hosted model or a remote translation service.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/minios-linux/dstrans/i18n"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// progressBar renders a colored bar followed by the percentage.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s %3d%%", color, bar, colorReset, percent)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	runFilePath string
	verbose     bool
)

// newLogger returns the diagnostics logger: a development logger with
// --verbose, a no-op logger otherwise.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		logWarning(i18n.T("Cannot create logger: %v"), err)
		return zap.NewNop()
	}
	return logger
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dstrans",
		Short: "Translate text columns of datasets with LLMs",
		Long: `dstrans — dataset translator.

Translates declared columns of a JSONL/JSON dataset into another language
and writes each result next to its source as "<column>_translated". Columns
are plain strings, lists of strings, or objects holding a list of strings.

Commands:
  translate   Translate dataset columns
  inspect     Show dataset columns and suggested column kinds
  auth        Manage inference server and registry credentials
  version     Show version information

Backends:
  local   vllm, ollama or custom-openai server hosting the model
  api     remote translation service (AWS Lambda)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVarP(&runFilePath, "config", "c", "", "Run file (default: ./dstrans.yaml if present)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging")

	root.AddCommand(
		newTranslateCmd(),
		newInspectCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dstrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}
