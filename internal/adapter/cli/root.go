package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// App defines the dependencies required to run the commands.
type App interface {
	// Serve runs the HTTP API until ctx is cancelled.
	Serve(ctx context.Context) error
	// VerifyPaths verifies local files and returns the per-file verdicts.
	VerifyPaths(ctx context.Context, paths []string) ([]domain.FileVerificationResult, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	App     App
	Args    Arguments
	Version string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "scholarship",
		Short: "奖学金申请材料真实性验证服务",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(serveCommand(deps.App))
	root.AddCommand(verifyCommand(deps.App))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func serveCommand(app App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动验证服务 HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Serve(cmd.Context())
		},
	}
}

func verifyCommand(app App) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <file> [file...]",
		Short: "验证本地文件并输出结果",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := app.VerifyPaths(cmd.Context(), args)
			if err != nil {
				return err
			}

			if jsonOutput || !stdoutIsTerminal() {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(results)
			}

			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "以 JSON 格式输出结果")
	return cmd
}

// stdoutIsTerminal reports whether stdout is attached to a TTY; piped output
// defaults to JSON so it stays machine-readable.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func printResults(w io.Writer, results []domain.FileVerificationResult) {
	for _, result := range results {
		_, _ = fmt.Fprintf(w, "%s %s\n", severityMark(result.Severity), result.Filename)
		if result.Conclusion != "" {
			_, _ = fmt.Fprintf(w, "  结论: %s\n", result.Conclusion)
		}
		for _, outcome := range result.Outcomes {
			_, _ = fmt.Fprintf(w, "  [%s] %s: %s\n", outcome.Tool, outcome.Status, outcome.Message)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func severityMark(severity domain.Severity) string {
	switch severity {
	case domain.SeveritySuccess:
		return "✓"
	case domain.SeverityWarning:
		return "!"
	default:
		return "✗"
	}
}
