// Package engine executes validated workflows: it walks steps in declared
// order, materialises guard conditions and inputs through the resolver,
// dispatches capability invocations with per-attempt timeouts and retries,
// fans parallel groups out and in, and folds declared outputs back into the
// runtime context.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/stepflow/capability"
	"github.com/viant/stepflow/internal/clock"
	"github.com/viant/stepflow/internal/idgen"
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/policy"
	"github.com/viant/stepflow/progress"
	"github.com/viant/stepflow/runtime/resolver"
	"github.com/viant/stepflow/tracing"
	"github.com/viant/toolbox"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTimeout bounds a single attempt of a step without its own timeout.
	DefaultTimeout = 5 * time.Minute
	// DefaultMaxParallel bounds concurrent children of a parallel group.
	DefaultMaxParallel = 4
)

// Compensator undoes the side effects of already-executed steps when a step
// with the rollback policy fails. Compensation itself is an external
// collaborator's job.
type Compensator interface {
	Compensate(ctx context.Context, workflow *model.Workflow, failed *model.Step, runCtx map[string]interface{}) error
}

// Service executes workflows against a capability registry.
type Service struct {
	registry       *capability.Registry
	resolver       *resolver.Service
	compensator    Compensator
	logger         *zap.Logger
	maxParallel    int
	defaultTimeout time.Duration
}

// New creates an engine.
func New(registry *capability.Registry, options ...Option) *Service {
	s := &Service{
		registry:       registry,
		resolver:       resolver.New(),
		logger:         zap.NewNop(),
		maxParallel:    DefaultMaxParallel,
		defaultTimeout: DefaultTimeout,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Execute runs the workflow against a context seeded from its declared
// variables overlaid with the caller's initial values (caller wins). The
// result is returned also on failed runs, with a non-nil error mirroring
// result.Error.
func (s *Service) Execute(ctx context.Context, workflow *model.Workflow, initial map[string]interface{}) (*model.WorkflowResult, error) {
	started := clock.Now()
	result := &model.WorkflowResult{Workflow: workflow.Name}
	runCtx := seedContext(workflow, initial, started)
	state := RunStateNotStarted

	ctx, span := tracing.StartSpan(ctx, "workflow.execute", "INTERNAL")
	span.WithAttributes(map[string]string{"workflow.name": workflow.Name})
	var runErr error
	defer func() {
		tracing.EndSpan(span, runErr)
	}()

	if _, ok := progress.FromContext(ctx); !ok {
		ctx, _ = progress.WithNewTracker(ctx, idgen.New(), workflow.Name, nil)
	}
	total := countSteps(workflow.Steps)
	progress.UpdateCtx(ctx, progress.Delta{Total: total, Pending: total})

	state = RunStateRunning
	s.logger.Debug("workflow started",
		zap.String("workflow", workflow.Name),
		zap.String("state", string(state)))

	for _, prerequisite := range workflow.Prerequisites {
		ok, err := s.evalCondition(prerequisite.Condition, runCtx)
		if ok && err == nil {
			continue
		}
		message := prerequisite.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("prerequisite not met: %s", prerequisite.Condition)
		}
		if err != nil {
			message = fmt.Sprintf("%s: %v", message, err)
		}
		state = RunStateFailed
		s.logger.Warn("workflow aborted",
			zap.String("workflow", workflow.Name),
			zap.String("reason", message))
		result.Error = message
		result.Duration = clock.Now().Sub(started)
		result.Context = runCtx
		runErr = errors.New(message)
		return result, runErr
	}

	anyFailed := false
	for _, step := range workflow.Steps {
		stepResults, halt := s.runStep(ctx, workflow, step, runCtx)
		for _, stepResult := range stepResults {
			result.Steps = append(result.Steps, stepResult)
			result.TotalCost += stepResult.Cost
			if !stepResult.Success {
				anyFailed = true
				if result.Error == "" {
					result.Error = fmt.Sprintf("step %q failed: %s", stepResult.Step, stepResult.Error)
				}
			}
		}
		if halt {
			break
		}
	}

	if len(workflow.SuccessCriteria) > 0 {
		result.Success = true
		for _, criterion := range workflow.SuccessCriteria {
			ok, err := s.evalCondition(criterion.Condition, runCtx)
			if ok && err == nil {
				continue
			}
			result.Success = false
			description := criterion.Description
			if description == "" {
				description = criterion.Condition
			}
			result.Error = fmt.Sprintf("success criterion not met: %s", description)
			break
		}
	} else {
		result.Success = !anyFailed
	}

	for key, value := range workflow.PostExecution {
		if resolved, err := s.resolver.ResolveAll(value, runCtx); err == nil {
			runCtx[key] = resolved
		}
	}

	if result.Success {
		state = RunStateSucceeded
		result.Error = ""
	} else {
		state = RunStateFailed
		if result.Error == "" {
			result.Error = "workflow failed"
		}
		runErr = errors.New(result.Error)
	}
	result.Duration = clock.Now().Sub(started)
	result.Context = runCtx
	s.logger.Debug("workflow finished",
		zap.String("workflow", workflow.Name),
		zap.String("state", string(state)),
		zap.Duration("duration", result.Duration))
	return result, runErr
}

// runStep executes one step, including parallel groups; it returns the step
// results produced (children first for a group) and whether the run halts.
func (s *Service) runStep(ctx context.Context, workflow *model.Workflow, step *model.Step, runCtx map[string]interface{}) ([]*model.StepResult, bool) {
	if step.Condition != "" {
		value, err := s.resolver.ResolveValue(step.Condition, runCtx)
		if err != nil {
			progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Pending: -1})
			result := &model.StepResult{Step: step.Name, Error: err.Error()}
			return s.applyFailurePolicy(ctx, workflow, step, result, runCtx)
		}
		if !resolver.Truthy(value) {
			s.logger.Debug("step skipped",
				zap.String("step", step.Name),
				zap.String("condition", step.Condition))
			progress.UpdateCtx(ctx, progress.Delta{Skipped: 1, Pending: -1})
			return nil, false
		}
	}

	if step.IsParallel() {
		return s.runParallel(ctx, workflow, step, runCtx)
	}

	progress.UpdateCtx(ctx, progress.Delta{Running: 1, Pending: -1})
	result := s.runAttempts(ctx, step, runCtx)
	if result.Success {
		s.mergeOutputs(step, result, runCtx)
		progress.UpdateCtx(ctx, progress.Delta{Completed: 1, Running: -1})
		return []*model.StepResult{result}, false
	}
	progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Running: -1})
	return s.applyFailurePolicy(ctx, workflow, step, result, runCtx)
}

// applyFailurePolicy translates a failed step result into run behaviour.
func (s *Service) applyFailurePolicy(ctx context.Context, workflow *model.Workflow, step *model.Step, result *model.StepResult, runCtx map[string]interface{}) ([]*model.StepResult, bool) {
	switch step.OnError {
	case model.ErrorPolicyContinue:
		return []*model.StepResult{result}, false
	case model.ErrorPolicyRollback:
		s.compensate(ctx, workflow, step, runCtx)
		return []*model.StepResult{result}, true
	default:
		return []*model.StepResult{result}, true
	}
}

func (s *Service) compensate(ctx context.Context, workflow *model.Workflow, step *model.Step, runCtx map[string]interface{}) {
	if s.compensator == nil {
		s.logger.Warn("rollback requested with no compensator configured",
			zap.String("step", step.Name))
		return
	}
	if err := s.compensator.Compensate(ctx, workflow, step, runCtx); err != nil {
		s.logger.Warn("compensation failed",
			zap.String("step", step.Name),
			zap.Error(err))
	}
}

// runAttempts drives the per-step sub-machine: up to retry_count+1 attempts,
// a timed-out attempt is always retry-eligible, a non-timeout failure only
// under the retry policy.
func (s *Service) runAttempts(ctx context.Context, step *model.Step, runCtx map[string]interface{}) *model.StepResult {
	started := clock.Now()
	result := &model.StepResult{Step: step.Name}
	attempts := step.RetryCount + 1
	state := StepStatePending
	var lastErr *attemptError

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && step.RetryDelay > 0 {
			if err := sleep(ctx, step.RetryDelay); err != nil {
				lastErr = failure(err)
				break
			}
		}
		state = StepStateExecuting
		s.logger.Debug("step executing",
			zap.String("step", step.Name),
			zap.String("state", string(state)),
			zap.Int("attempt", attempt+1))
		output, attemptErr := s.attempt(ctx, step, runCtx)
		result.Retries = attempt
		if attemptErr == nil {
			state = StepStateSucceeded
			result.Success = true
			result.Output = output
			result.Cost = costOf(output)
			break
		}
		lastErr = attemptErr
		if attemptErr.kind == errorKindTimeout {
			state = StepStateTimedOut
			continue
		}
		state = StepStateFailed
		if attemptErr.kind == errorKindBlocked || step.OnError != model.ErrorPolicyRetry {
			break
		}
	}

	if !result.Success && lastErr != nil {
		result.Error = lastErr.Error()
		s.logger.Warn("step failed",
			zap.String("step", step.Name),
			zap.String("state", string(state)),
			zap.Int("retries", result.Retries),
			zap.Error(lastErr.err))
	}
	result.Duration = clock.Now().Sub(started)
	return result
}

// attempt performs one bounded capability invocation.
func (s *Service) attempt(ctx context.Context, step *model.Step, runCtx map[string]interface{}) (map[string]interface{}, *attemptError) {
	args := map[string]interface{}{}
	for name, value := range step.Inputs {
		resolved, err := s.resolver.ResolveAll(value, runCtx)
		if err != nil {
			return nil, failure(fmt.Errorf("failed to resolve input %q: %w", name, err))
		}
		args[name] = resolved
	}
	if err := s.allowed(ctx, step, args); err != nil {
		return nil, blocked(err)
	}

	timeoutDuration := step.Timeout
	if timeoutDuration <= 0 {
		timeoutDuration = s.defaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()

	spanCtx, span := tracing.StartSpan(attemptCtx, "step."+step.Name, "INTERNAL")
	span.WithAttributes(map[string]string{
		"step.plugin": step.Plugin,
		"step.action": step.Action,
	})
	output, err := s.registry.Invoke(spanCtx, step.Plugin, step.Action, args)
	tracing.EndSpan(span, err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			return nil, timeout(fmt.Errorf("step %q timed out after %s", step.Name, timeoutDuration))
		}
		return nil, failure(err)
	}
	// A provider that ignores the deadline and reports success late still
	// counts as a timed-out attempt.
	if attemptCtx.Err() == context.DeadlineExceeded {
		return nil, timeout(fmt.Errorf("step %q timed out after %s", step.Name, timeoutDuration))
	}
	return output, nil
}

// allowed consults the optional run policy before a capability invocation.
func (s *Service) allowed(ctx context.Context, step *model.Step, args map[string]interface{}) error {
	pol := policy.FromContext(ctx)
	if pol == nil {
		return nil
	}
	action := step.Plugin + "." + step.Action
	if !pol.IsAllowed(action) {
		return fmt.Errorf("action %s not allowed by policy", action)
	}
	switch pol.Mode {
	case policy.ModeDeny:
		return fmt.Errorf("action %s blocked by policy", action)
	case policy.ModeAsk:
		if pol.Ask == nil || !pol.Ask(ctx, action, args, pol) {
			return fmt.Errorf("action %s rejected by policy", action)
		}
	}
	return nil
}

// runParallel fans the group's children out as concurrent units, each
// against its own snapshot of the context, and fans their results back in
// keyed by child name. Merging into the shared context happens only after
// the whole group completes; one child's failure does not cancel siblings.
func (s *Service) runParallel(ctx context.Context, workflow *model.Workflow, group *model.Step, runCtx map[string]interface{}) ([]*model.StepResult, bool) {
	started := clock.Now()
	progress.UpdateCtx(ctx, progress.Delta{Running: 1, Pending: -1})

	children := group.Steps
	type childOutcome struct {
		results []*model.StepResult
		halt    bool
	}
	outcomes := make([]childOutcome, len(children))

	var g errgroup.Group
	g.SetLimit(s.maxParallel)
	for i := range children {
		i := i
		snapshot := copyContext(runCtx)
		g.Go(func() error {
			results, halt := s.runStep(ctx, workflow, children[i], snapshot)
			outcomes[i] = childOutcome{results: results, halt: halt}
			return nil
		})
	}
	_ = g.Wait()

	groupResult := &model.StepResult{
		Step:    group.Name,
		Success: true,
		Output:  map[string]interface{}{},
	}
	var all []*model.StepResult
	halt := false
	for i, child := range children {
		outcome := outcomes[i]
		all = append(all, outcome.results...)
		if len(outcome.results) == 0 { // skipped child
			continue
		}
		// a group returns its own result last, so the direct child result
		// is always the final element
		direct := outcome.results[len(outcome.results)-1]
		if direct.Success {
			groupResult.Output[child.Name] = direct.Output
			s.mergeOutputs(child, direct, runCtx)
		} else {
			groupResult.Output[child.Name] = map[string]interface{}{
				"success": false,
				"error":   direct.Error,
			}
		}
		if outcome.halt {
			groupResult.Success = false
			halt = true
		}
	}
	groupResult.Duration = clock.Now().Sub(started)
	if !groupResult.Success {
		groupResult.Error = "one or more parallel steps failed"
		progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Running: -1})
	} else {
		progress.UpdateCtx(ctx, progress.Delta{Completed: 1, Running: -1})
	}
	runCtx[group.Name] = groupResult.Output
	s.mergeOutputs(group, groupResult, runCtx)
	all = append(all, groupResult)

	if !halt {
		return all, false
	}
	switch group.OnError {
	case model.ErrorPolicyContinue:
		return all, false
	case model.ErrorPolicyRollback:
		s.compensate(ctx, workflow, group, runCtx)
		return all, true
	default:
		return all, true
	}
}

// mergeOutputs copies declared output mappings into the runtime context and
// makes the whole output addressable under the step name.
func (s *Service) mergeOutputs(step *model.Step, result *model.StepResult, runCtx map[string]interface{}) {
	if result.Output != nil {
		runCtx[step.Name] = result.Output
	}
	for resultKey, contextKey := range step.Outputs {
		if value, ok := result.Output[resultKey]; ok {
			runCtx[contextKey] = value
		}
	}
}

func (s *Service) evalCondition(condition string, runCtx map[string]interface{}) (bool, error) {
	value, err := s.resolver.ResolveValue(condition, runCtx)
	if err != nil {
		return false, err
	}
	return resolver.Truthy(value), nil
}

// seedContext builds the initial runtime context.
func seedContext(workflow *model.Workflow, initial map[string]interface{}, started time.Time) map[string]interface{} {
	runCtx := map[string]interface{}{}
	for key, value := range workflow.Variables {
		runCtx[key] = value
	}
	for key, value := range initial {
		runCtx[key] = value
	}
	runCtx["workflow"] = map[string]interface{}{
		"name":    workflow.Name,
		"version": workflow.Version,
		"started": started.UTC().Format(time.RFC3339),
	}
	return runCtx
}

// copyContext snapshots the context for a parallel child; children must not
// see each other's writes while the group runs.
func copyContext(runCtx map[string]interface{}) map[string]interface{} {
	snapshot := make(map[string]interface{}, len(runCtx))
	for key, value := range runCtx {
		snapshot[key] = value
	}
	return snapshot
}

func countSteps(steps []*model.Step) int {
	total := 0
	for _, step := range steps {
		total++
		total += countSteps(step.Steps)
	}
	return total
}

func costOf(output map[string]interface{}) float64 {
	if raw, ok := output["cost"]; ok {
		return toolbox.AsFloat(raw)
	}
	return 0
}

func sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
