// Package runtime provides the job execution engine.
// It orchestrates the execution of Input, Filter, and Output modules.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/WilliamM-L/trouve-mon-spot/internal/errhandling"
	"github.com/WilliamM-L/trouve-mon-spot/internal/logger"
	"github.com/WilliamM-L/trouve-mon-spot/internal/metric"
	"github.com/WilliamM-L/trouve-mon-spot/internal/modules/filter"
	"github.com/WilliamM-L/trouve-mon-spot/internal/modules/input"
	"github.com/WilliamM-L/trouve-mon-spot/internal/modules/output"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/connector"
	"github.com/WilliamM-L/trouve-mon-spot/pkg/geojson"
)

// Error codes for job execution errors
const (
	ErrCodeInputFailed  = "INPUT_FAILED"
	ErrCodeFilterFailed = "FILTER_FAILED"
	ErrCodeOutputFailed = "OUTPUT_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Common errors
var (
	// ErrNilJob is returned when the job configuration is nil
	ErrNilJob = errors.New("job configuration is nil")

	// ErrNilInputModule is returned when input module is nil
	ErrNilInputModule = errors.New("input module is nil")

	// ErrNilOutputModule is returned when output module is nil outside dry-run
	ErrNilOutputModule = errors.New("output module is nil")
)

// Progress receives the milestones of a run as they happen.
type Progress interface {
	Loading(path string)
	Loaded(count int)
	Filtered(removed, remaining int)
	Writing(path string)
	Done(written int)
}

type nopProgress struct{}

func (nopProgress) Loading(string) {}
func (nopProgress) Loaded(int) {}
func (nopProgress) Filtered(int, int) {}
func (nopProgress) Writing(string) {}
func (nopProgress) Done(int) {}

// Executor runs a job: Input → Filters → Output.
//
// The Executor only interacts with modules through their public interfaces,
// so it never depends on a concrete module type.
type Executor struct {
	inputModule   input.Module
	filterModules []filter.Module
	outputModule  output.Module
	dryRun        bool

	metrics  *metric.Metrics
	progress Progress
	newRunID func() string
}

// NewExecutorWithModules creates an executor with all modules configured.
//
// Parameters:
//   - inputModule: loads the feature collection
//   - filterModules: applied in order; may be empty
//   - outputModule: writes the result; may be nil when dryRun is true
//   - dryRun: if true, the output stage is skipped
func NewExecutorWithModules(
	inputModule input.Module,
	filterModules []filter.Module,
	outputModule output.Module,
	dryRun bool,
) *Executor {
	return &Executor{
		inputModule:   inputModule,
		filterModules: filterModules,
		outputModule:  outputModule,
		dryRun:        dryRun,
		progress:      nopProgress{},
		newRunID:      uuid.NewString,
	}
}

// WithMetrics records stage durations and run counters into m.
func (e *Executor) WithMetrics(m *metric.Metrics) *Executor {
	e.metrics = m
	return e
}

// WithProgress reports run milestones to p.
func (e *Executor) WithProgress(p Progress) *Executor {
	if p == nil {
		p = nopProgress{}
	}
	e.progress = p
	return e
}

// stageTimings holds timing measurements for each execution stage
type stageTimings struct {
	input  time.Duration
	filter time.Duration
	output time.Duration
}

// Execute runs the job with a background context.
// For cancellation support, use ExecuteWithContext instead.
func (e *Executor) Execute(job *connector.Job) (*connector.ExecutionResult, error) {
	return e.ExecuteWithContext(context.Background(), job)
}

// ExecuteWithContext runs the job with the given context.
//
// Execution flow:
//  1. Validate the job and modules
//  2. Fetch every feature from the input module
//  3. Run the filter modules in sequence
//  4. Write the result with the output module (unless dry-run)
//  5. Return an ExecutionResult with status and counts
//
// The input module is closed as soon as the fetch completes and the output
// module when execution returns. A failure in any stage aborts the run; no
// later stage runs, so a failed load never creates an output file.
func (e *Executor) ExecuteWithContext(ctx context.Context, job *connector.Job) (*connector.ExecutionResult, error) {
	startedAt := time.Now()
	result := &connector.ExecutionResult{
		RunID:     e.newRunID(),
		StartedAt: startedAt,
		Status:    StatusError,
		DryRun:    e.dryRun,
	}
	var timings stageTimings

	if err := e.validateExecution(job, result); err != nil {
		e.recordRun(result)
		return result, err
	}
	result.JobName = job.Name

	execCtx := logger.ExecutionContext{
		RunID:   result.RunID,
		JobName: job.Name,
		DryRun:  e.dryRun,
	}
	logger.LogExecutionStart(execCtx)

	if e.outputModule != nil {
		defer e.closeModule(execCtx, "output", e.outputModule)
	}

	e.progress.Loading(job.InputPath)
	features, err := e.executeInput(ctx, execCtx, result, &timings)
	e.closeModule(execCtx, "input", e.inputModule)
	if err != nil {
		return e.fail(execCtx, result, err)
	}
	result.FeaturesRead = len(features)
	e.progress.Loaded(len(features))

	filtered, err := e.executeFilters(ctx, execCtx, features, result, &timings)
	if err != nil {
		return e.fail(execCtx, result, err)
	}
	result.FeaturesRemoved = len(features) - len(filtered)
	e.progress.Filtered(result.FeaturesRemoved, len(filtered))

	if e.dryRun {
		logger.Info("dry-run mode: skipping output",
			slog.String("run_id", result.RunID),
			slog.Int("features_would_write", len(filtered)),
		)
	} else {
		e.progress.Writing(job.OutputPath)
		if err := e.executeOutput(ctx, execCtx, filtered, result, &timings); err != nil {
			return e.fail(execCtx, result, err)
		}
	}

	e.finalizeSuccess(execCtx, result, timings)
	e.progress.Done(result.FeaturesWritten)
	return result, nil
}

// validateExecution checks the job and modules before execution.
func (e *Executor) validateExecution(job *connector.Job, result *connector.ExecutionResult) error {
	var err error
	module := ""
	switch {
	case job == nil:
		err = ErrNilJob
	case e.inputModule == nil:
		err, module = ErrNilInputModule, "input"
	case e.outputModule == nil && !e.dryRun:
		err, module = ErrNilOutputModule, "output"
	default:
		return nil
	}

	logger.Error("job execution failed: "+err.Error(), slog.String("run_id", result.RunID))
	result.CompletedAt = time.Now()
	result.Error = buildExecutionError(ErrCodeInvalidInput, module, err)
	return err
}

// buildExecutionError creates an ExecutionError with the classified category.
func buildExecutionError(code, module string, err error) *connector.ExecutionError {
	cl := errhandling.ClassifyError(err)
	return &connector.ExecutionError{
		Code:          code,
		Message:       err.Error(),
		Module:        module,
		ErrorCategory: string(cl.Category),
		Path:          cl.Path,
	}
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(execCtx logger.ExecutionContext, stage string, m interface{ Close() error }) {
	if err := m.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("run_id", execCtx.RunID),
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Executor) executeInput(ctx context.Context, execCtx logger.ExecutionContext, result *connector.ExecutionResult, timings *stageTimings) ([]geojson.Feature, error) {
	stageCtx := execCtx
	stageCtx.Stage = metric.StageInput
	logger.LogStageStart(stageCtx)

	start := time.Now()
	features, err := e.inputModule.Fetch(ctx)
	timings.input = time.Since(start)
	e.observeStage(metric.StageInput, timings.input)

	if err != nil {
		result.Error = buildExecutionError(ErrCodeInputFailed, "input", err)
		logger.LogStageEnd(stageCtx, 0, timings.input, stageError(result.Error))
		return nil, fmt.Errorf("executing input module: %w", err)
	}

	logger.LogStageEnd(stageCtx, len(features), timings.input, nil)
	return features, nil
}

func (e *Executor) executeFilters(ctx context.Context, execCtx logger.ExecutionContext, features []geojson.Feature, result *connector.ExecutionResult, timings *stageTimings) ([]geojson.Feature, error) {
	stageCtx := execCtx
	stageCtx.Stage = metric.StageFilter
	logger.LogStageStart(stageCtx)

	start := time.Now()
	current := features
	for i, m := range e.filterModules {
		if m == nil {
			logger.Warn("nil filter module encountered; skipping",
				slog.String("run_id", execCtx.RunID),
				slog.Int("filter_index", i),
			)
			continue
		}

		before := len(current)
		next, err := m.Process(ctx, current)
		if err != nil {
			timings.filter = time.Since(start)
			e.observeStage(metric.StageFilter, timings.filter)
			result.Error = buildExecutionError(ErrCodeFilterFailed, "filter", err)
			result.Error.Message = fmt.Sprintf("filter module %d failed: %v", i, err)
			result.Error.Details = map[string]interface{}{"filterIndex": i}
			logger.LogStageEnd(stageCtx, before, timings.filter, stageError(result.Error))
			return nil, fmt.Errorf("executing filter module %d: %w", i, err)
		}
		current = next

		logger.Debug("filter module completed",
			slog.String("run_id", execCtx.RunID),
			slog.Int("filter_index", i),
			slog.String("module_type", fmt.Sprintf("%T", m)),
			slog.Int("input_features", before),
			slog.Int("output_features", len(current)),
		)
	}
	timings.filter = time.Since(start)
	e.observeStage(metric.StageFilter, timings.filter)

	logger.LogStageEnd(stageCtx, len(current), timings.filter, nil)
	return current, nil
}

func (e *Executor) executeOutput(ctx context.Context, execCtx logger.ExecutionContext, features []geojson.Feature, result *connector.ExecutionResult, timings *stageTimings) error {
	stageCtx := execCtx
	stageCtx.Stage = metric.StageOutput
	logger.LogStageStart(stageCtx)

	start := time.Now()
	written, err := e.outputModule.Send(ctx, features)
	timings.output = time.Since(start)
	e.observeStage(metric.StageOutput, timings.output)

	if err != nil {
		result.Error = buildExecutionError(ErrCodeOutputFailed, "output", err)
		logger.LogStageEnd(stageCtx, len(features), timings.output, stageError(result.Error))
		return fmt.Errorf("executing output module: %w", err)
	}

	result.FeaturesWritten = written
	logger.LogStageEnd(stageCtx, written, timings.output, nil)
	return nil
}

// fail completes a failed run. result.Error has been set by the stage.
func (e *Executor) fail(execCtx logger.ExecutionContext, result *connector.ExecutionResult, err error) (*connector.ExecutionResult, error) {
	result.Status = StatusError
	result.CompletedAt = time.Now()
	logger.LogExecutionEnd(execCtx, StatusError, result.FeaturesWritten, result.CompletedAt.Sub(result.StartedAt))
	e.recordRun(result)
	return result, err
}

func (e *Executor) finalizeSuccess(execCtx logger.ExecutionContext, result *connector.ExecutionResult, timings stageTimings) {
	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil

	total := result.CompletedAt.Sub(result.StartedAt)
	logger.LogExecutionEnd(execCtx, StatusSuccess, result.FeaturesWritten, total)
	logger.LogMetrics(execCtx, logger.ExecutionMetrics{
		TotalDuration:   total,
		InputDuration:   timings.input,
		FilterDuration:  timings.filter,
		OutputDuration:  timings.output,
		FeaturesRead:    result.FeaturesRead,
		FeaturesRemoved: result.FeaturesRemoved,
		FeaturesWritten: result.FeaturesWritten,
	})
	e.recordRun(result)
}

func (e *Executor) observeStage(stage string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.ObserveStage(stage, d)
	}
}

func (e *Executor) recordRun(result *connector.ExecutionResult) {
	if e.metrics != nil {
		e.metrics.RecordRun(result.FeaturesRead, result.FeaturesRemoved, result.FeaturesWritten,
			result.Status == StatusSuccess, result.CompletedAt)
	}
}

func stageError(ex *connector.ExecutionError) *logger.ExecutionError {
	return &logger.ExecutionError{
		Code:     ex.Code,
		Category: ex.ErrorCategory,
		Message:  ex.Message,
	}
}
