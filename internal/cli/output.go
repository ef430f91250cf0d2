// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"
	"io"

	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
}

// ConsoleProgress prints run milestones to a console writer as they happen.
// A quiet ConsoleProgress prints nothing.
type ConsoleProgress struct {
	w     io.Writer
	quiet bool
}

// NewConsoleProgress creates a ConsoleProgress writing to w.
func NewConsoleProgress(w io.Writer, quiet bool) *ConsoleProgress {
	return &ConsoleProgress{w: w, quiet: quiet}
}

func (p *ConsoleProgress) printf(format string, args ...any) {
	if !p.quiet {
		fmt.Fprintf(p.w, format, args...)
	}
}

// Loading reports the input path being read.
func (p *ConsoleProgress) Loading(path string) { p.printf("Loading %s...\n", path) }

// Loaded reports the number of features read.
func (p *ConsoleProgress) Loaded(count int) { p.printf("Original feature count: %d\n", count) }

// Filtered reports how many features were excluded and how many remain.
func (p *ConsoleProgress) Filtered(removed, remaining int) {
	p.printf("Removed %d features matching exclusion patterns\n", removed)
	p.printf("Remaining features: %d\n", remaining)
}

// Writing reports the output path being written.
func (p *ConsoleProgress) Writing(path string) { p.printf("Writing to %s...\n", path) }

// Done reports a completed run.
func (p *ConsoleProgress) Done(int) { p.printf("Done!\n") }

// PrintExecutionResult displays the outcome of a run. Failures go to errw,
// the success summary to w.
func PrintExecutionResult(w, errw io.Writer, result *connector.ExecutionResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(errw, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(errw, "✗ Run failed")
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(errw, "  Stage: %s\n", result.Error.Module)
			}
			if result.Error.ErrorCategory != "" {
				fmt.Fprintf(errw, "  Category: %s\n", result.Error.ErrorCategory)
			}
			fmt.Fprintf(errw, "  Error: %s\n", result.Error.Message)
		}
		if opts.Verbose && result.RunID != "" {
			fmt.Fprintf(errw, "  Run ID: %s\n", result.RunID)
		}
		return
	}

	if opts.Quiet {
		return
	}
	if opts.DryRun {
		fmt.Fprintf(w, "ℹ Dry run: %d features would be written, nothing was saved\n", result.Remaining())
	}
	if opts.Verbose {
		fmt.Fprintf(w, "  Run ID: %s\n", result.RunID)
		fmt.Fprintf(w, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
}

// PrintJobSummary prints the resolved job before a run or after validation.
func PrintJobSummary(w io.Writer, job *connector.Job) {
	if job == nil {
		return
	}
	fmt.Fprintf(w, "  Job: %s\n", job.Name)
	fmt.Fprintf(w, "  Input: %s\n", job.InputPath)
	fmt.Fprintf(w, "  Output: %s\n", job.OutputPath)
	fmt.Fprintf(w, "  Exclusion scope: %s", job.ExclusionScope)
	if job.ExclusionScope == connector.ScopeDesignatedField {
		fmt.Fprintf(w, " (%s)", job.DesignatedField)
	}
	fmt.Fprintf(w, ", %d patterns\n", len(job.ExclusionPatterns))
	if job.MetricsFile != "" {
		fmt.Fprintf(w, "  Metrics: %s\n", job.MetricsFile)
	}
}
