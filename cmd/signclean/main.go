// Package main provides the CLI entry point for the parking signage cleaner.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WilliamM-L/trouve-mon-spot/internal/cli"
	"github.com/WilliamM-L/trouve-mon-spot/internal/config"
	"github.com/WilliamM-L/trouve-mon-spot/internal/errhandling"
	"github.com/WilliamM-L/trouve-mon-spot/internal/factory"
	"github.com/WilliamM-L/trouve-mon-spot/internal/logger"
	"github.com/WilliamM-L/trouve-mon-spot/internal/metric"
	"github.com/WilliamM-L/trouve-mon-spot/internal/runtime"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
	ExitNotFound        = 4
	ExitWriteError      = 5
)

var (
	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// options holds the flag values of one invocation.
type options struct {
	verbose   bool
	quiet     bool
	logFormat string
	logFile   string

	inputPath   string
	outputPath  string
	scope       string
	metricsFile string
	dryRun      bool
}

// exitError carries the process exit code of a failed command. The message
// has already been printed when it reaches execute.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	logger.CloseLogFile()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Flag and argument errors from cobra itself.
	fmt.Fprintf(stderr, "✗ %v\n", err)
	return ExitValidationError
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "signclean",
		Short: "signclean - Parking signage GeoJSON cleaner",
		Long: `signclean cleans a municipal parking-signage GeoJSON extract.

It loads a FeatureCollection, drops features whose text matches an
exclusion pattern, keeps only the allowlisted properties of the remaining
features, and writes the result atomically.

Examples:
  # Clean the default extract with the default job
  signclean run

  # Run a job file and override its output
  signclean run job.yaml --output clean_data/out.geojson.json

  # Validate a job file
  signclean validate job.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return configureLogging(opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "json", "Console log format (json or human)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")

	root.AddCommand(newRunCmd(opts, stdout, stderr))
	root.AddCommand(newValidateCmd(opts, stdout, stderr))
	root.AddCommand(newVersionCmd(stdout))
	return root
}

func configureLogging(opts *options, stderr io.Writer) error {
	format, err := logger.ParseFormat(opts.logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "✗ %v\n", err)
		return exitWith(ExitValidationError, err)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	} else if opts.quiet {
		level = slog.LevelError
	}

	if opts.logFile != "" {
		if err := logger.SetLogFile(opts.logFile, level, format); err != nil {
			fmt.Fprintf(stderr, "✗ %v\n", err)
			return exitWith(ExitWriteError, err)
		}
		return nil
	}
	logger.SetLevelAndFormat(level, format)
	return nil
}

func newRunCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [job-file]",
		Short: "Clean a signage extract",
		Long: `Clean a signage extract.

Without a job file the built-in defaults are used: the designated-field
scope on DESCRIPTION_RPA, reading data/signalisation_stationnement.geojson.json
and writing clean_data/signalisation_stationnement_cleaned.geojson.json.
Flags override the job file.

Flags:
  --dry-run   Load and filter without writing the output

Exit codes:
  0 - Run completed
  1 - Invalid job or flags
  2 - Malformed job file or input collection
  3 - Runtime error (including interruption)
  4 - Input not found or unreadable
  5 - Output could not be written

Examples:
  signclean run
  signclean run --scope all_properties
  signclean run job.yaml --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobPath := ""
			if len(args) == 1 {
				jobPath = args[0]
			}
			return runJob(cmd.Context(), opts, jobPath, stdout, stderr)
		},
	}

	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", "Input GeoJSON file")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output GeoJSON file")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "Exclusion scope (all_properties or designated_field)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Load and filter without writing the output")
	return cmd
}

func runJob(ctx context.Context, opts *options, jobPath string, stdout, stderr io.Writer) error {
	job, result, err := config.LoadJob(jobPath)
	if err != nil {
		return reportJobErrors(result, err, opts, stderr)
	}

	job, err = config.ApplyOverrides(job, config.Overrides{
		InputPath:      opts.inputPath,
		OutputPath:     opts.outputPath,
		ExclusionScope: opts.scope,
		MetricsFile:    opts.metricsFile,
	})
	if err != nil {
		fmt.Fprintf(stderr, "✗ Invalid job: %v\n", err)
		return exitWith(ExitValidationError, err)
	}

	if opts.verbose {
		cli.PrintJobSummary(stdout, job)
	}

	mods, err := factory.CreateModules(job, opts.dryRun)
	if err != nil {
		fmt.Fprintf(stderr, "✗ Failed to create modules: %v\n", err)
		return exitWith(ExitValidationError, err)
	}

	metrics := metric.New()
	executor := runtime.NewExecutorWithModules(mods.Input, mods.Filters, mods.Output, opts.dryRun).
		WithMetrics(metrics).
		WithProgress(cli.NewConsoleProgress(stdout, opts.quiet))

	execResult, err := executor.ExecuteWithContext(ctx, job)

	if job.MetricsFile != "" {
		if werr := metrics.WriteTextfile(job.MetricsFile); werr != nil {
			logger.Warn("failed to write metrics textfile",
				slog.String("path", job.MetricsFile),
				slog.String("error", werr.Error()),
			)
		}
	}

	cli.PrintExecutionResult(stdout, stderr, execResult, err, cli.OutputOptions{
		Verbose: opts.verbose,
		Quiet:   opts.quiet,
		DryRun:  opts.dryRun,
	})
	if err != nil {
		return exitWith(exitCodeFor(err), err)
	}
	return nil
}

// reportJobErrors prints the errors of a job file that failed to load and
// returns the matching exit error.
func reportJobErrors(result *config.Result, err error, opts *options, stderr io.Writer) error {
	if result != nil && len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(stderr, result.ParseErrors, opts.verbose)
		if result.ParseErrors[0].Type == config.ErrorTypeIO {
			return exitWith(ExitNotFound, err)
		}
		return exitWith(ExitParseError, err)
	}
	if result != nil && len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(stderr, result.ValidationErrors, opts.verbose, opts.quiet)
		return exitWith(ExitValidationError, err)
	}
	fmt.Fprintf(stderr, "✗ Invalid job: %v\n", err)
	return exitWith(ExitValidationError, err)
}

// exitCodeFor maps a run error to its exit code by error category.
func exitCodeFor(err error) int {
	switch errhandling.GetErrorCategory(err) {
	case errhandling.CategoryNotFound:
		return ExitNotFound
	case errhandling.CategoryParse:
		return ExitParseError
	case errhandling.CategoryWrite:
		return ExitWriteError
	case errhandling.CategoryValidation:
		return ExitValidationError
	default:
		return ExitRuntimeError
	}
}

func newValidateCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <job-file>",
		Short: "Validate a job file",
		Long: `Validate a job file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Job file is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)
  4 - Job file not found

Examples:
  signclean validate job.yaml
  signclean validate --verbose job.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			if !opts.quiet {
				fmt.Fprintf(stdout, "Validating job file: %s\n", path)
			}

			job, result, err := config.LoadJob(path)
			if err != nil {
				return reportJobErrors(result, err, opts, stderr)
			}

			if !opts.quiet {
				fmt.Fprintf(stdout, "✓ Job file is valid (format: %s)\n", result.Format)
				if opts.verbose {
					cli.PrintJobSummary(stdout, job)
				}
			}
			return nil
		},
	}
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "Version: %s\n", version)
			fmt.Fprintf(stdout, "Commit: %s\n", commit)
			fmt.Fprintf(stdout, "Build Date: %s\n", buildDate)
		},
	}
}
