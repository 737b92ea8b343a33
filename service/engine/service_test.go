package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stepflow/capability"
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/policy"
	"github.com/viant/stepflow/progress"
)

// fakeProvider scripts per-action behaviour and counts invocations.
type fakeProvider struct {
	name    string
	actions []string
	mux     sync.Mutex
	calls   map[string]int
	handler func(action string, call int, args map[string]interface{}) (map[string]interface{}, error)
}

func newFakeProvider(name string, actions ...string) *fakeProvider {
	return &fakeProvider{
		name:    name,
		actions: actions,
		calls:   map[string]int{},
		handler: func(string, int, map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"result": "ok"}, nil
		},
	}
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) Actions() capability.Signatures {
	signatures := make(capability.Signatures, 0, len(p.actions))
	for _, action := range p.actions {
		signatures = append(signatures, capability.Signature{
			Name:   action,
			Input:  reflect.TypeOf(map[string]interface{}{}),
			Output: reflect.TypeOf(map[string]interface{}{}),
		})
	}
	return signatures
}

func (p *fakeProvider) Invoke(ctx context.Context, action string, args map[string]interface{}) (map[string]interface{}, error) {
	p.mux.Lock()
	p.calls[action]++
	call := p.calls[action]
	handler := p.handler
	p.mux.Unlock()
	return handler(action, call, args)
}

func (p *fakeProvider) callCount(action string) int {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.calls[action]
}

func newTestEngine(providers ...capability.Provider) (*Service, *capability.Registry) {
	registry := capability.NewRegistry()
	for _, provider := range providers {
		registry.Register(provider)
	}
	return New(registry, WithDefaultTimeout(time.Second)), registry
}

func TestService_Execute_SingleStepSuccess(t *testing.T) {
	provider := newFakeProvider("ci", "build")
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("build").WithAction("ci", "build")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.True(t, result.Success)
	if assert.EqualValues(t, 1, len(result.Steps)) {
		stepResult := result.Steps[0]
		assert.True(t, stepResult.Success)
		assert.EqualValues(t, 0, stepResult.Retries)
		assert.EqualValues(t, "ok", stepResult.Output["result"])
	}
	assert.EqualValues(t, 1, provider.callCount("build"))
}

func TestService_Execute_RetryPolicy(t *testing.T) {
	provider := newFakeProvider("ci", "build")
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if call <= 2 {
			return nil, fmt.Errorf("transient failure %d", call)
		}
		return map[string]interface{}{"result": "ok"}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("build").WithAction("ci", "build").
		WithOnError(model.ErrorPolicyRetry).
		WithRetry(2, time.Millisecond)

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.True(t, result.Success)
	if assert.EqualValues(t, 1, len(result.Steps)) {
		assert.True(t, result.Steps[0].Success)
		assert.EqualValues(t, 2, result.Steps[0].Retries)
	}
	assert.EqualValues(t, 3, provider.callCount("build"))
}

func TestService_Execute_NonRetryPolicyDoesNotRetry(t *testing.T) {
	provider := newFakeProvider("ci", "build")
	provider.handler = func(string, int, map[string]interface{}) (map[string]interface{}, error) {
		return nil, fmt.Errorf("boom")
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("build").WithAction("ci", "build").WithRetry(2, 0)

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)
	assert.EqualValues(t, 1, provider.callCount("build"))
}

func TestService_Execute_ContinuePolicy(t *testing.T) {
	provider := newFakeProvider("ci", "flaky", "solid")
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if action == "flaky" {
			return nil, fmt.Errorf("boom")
		}
		return map[string]interface{}{"result": "ok"}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("first").WithAction("ci", "flaky").WithOnError(model.ErrorPolicyContinue)
	workflow.NewStep("second").WithAction("ci", "solid")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)
	if assert.EqualValues(t, 2, len(result.Steps)) {
		assert.False(t, result.Steps[0].Success)
		assert.True(t, result.Steps[1].Success)
	}
}

func TestService_Execute_FailPolicyHalts(t *testing.T) {
	provider := newFakeProvider("ci", "flaky", "solid")
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if action == "flaky" {
			return nil, fmt.Errorf("boom")
		}
		return map[string]interface{}{}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("first").WithAction("ci", "flaky")
	workflow.NewStep("second").WithAction("ci", "solid")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)
	assert.EqualValues(t, 1, len(result.Steps))
	assert.Nil(t, result.StepResultOf("second"))
	assert.EqualValues(t, 0, provider.callCount("solid"))
}

func TestService_Execute_ParallelGroup(t *testing.T) {
	provider := newFakeProvider("ci", "good", "bad")
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if action == "bad" {
			return nil, fmt.Errorf("child failure")
		}
		return map[string]interface{}{"result": "fine"}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	group := workflow.NewStep("verify")
	group.Type = model.StepTypeParallel
	group.OnError = model.ErrorPolicyContinue
	group.AddStep("ok_child").WithAction("ci", "good")
	group.AddStep("bad_child").WithAction("ci", "bad")
	workflow.NewStep("after").WithAction("ci", "good")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)

	groupResult := result.StepResultOf("verify")
	if assert.NotNil(t, groupResult) {
		assert.False(t, groupResult.Success)
		okOutput, ok := groupResult.Output["ok_child"].(map[string]interface{})
		if assert.True(t, ok) {
			assert.EqualValues(t, "fine", okOutput["result"])
		}
		badOutput, ok := groupResult.Output["bad_child"].(map[string]interface{})
		if assert.True(t, ok) {
			assert.EqualValues(t, false, badOutput["success"])
		}
	}
	okChild := result.StepResultOf("ok_child")
	if assert.NotNil(t, okChild) {
		assert.True(t, okChild.Success)
	}
	badChild := result.StepResultOf("bad_child")
	if assert.NotNil(t, badChild) {
		assert.False(t, badChild.Success)
	}
	// the group's continue policy lets the run proceed
	assert.NotNil(t, result.StepResultOf("after"))
}

func TestService_Execute_ConditionSkips(t *testing.T) {
	provider := newFakeProvider("ci", "build")
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo").WithVariable("enabled", "false")
	workflow.NewStep("build").WithAction("ci", "build").
		WithCondition("${enabled}").
		WithOutput("result", "build_result")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.True(t, result.Success)
	assert.EqualValues(t, 0, len(result.Steps))
	assert.EqualValues(t, 0, provider.callCount("build"))
	_, present := result.Context["build_result"]
	assert.False(t, present)
}

func TestService_Execute_TimeoutAlwaysRetryEligible(t *testing.T) {
	provider := newFakeProvider("ci", "slow")
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if call == 1 {
			// outlive the attempt deadline
			time.Sleep(100 * time.Millisecond)
			return nil, fmt.Errorf("still running")
		}
		return map[string]interface{}{"result": "ok"}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	step := workflow.NewStep("slow").WithAction("ci", "slow").WithRetry(1, 0)
	step.Timeout = 30 * time.Millisecond

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.True(t, result.Success)
	if assert.EqualValues(t, 1, len(result.Steps)) {
		assert.EqualValues(t, 1, result.Steps[0].Retries)
	}
	assert.EqualValues(t, 2, provider.callCount("slow"))
}

func TestService_Execute_OutputsFlowBetweenSteps(t *testing.T) {
	provider := newFakeProvider("ci", "emit", "consume")
	var consumed map[string]interface{}
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if action == "emit" {
			return map[string]interface{}{"path": "/tmp/build"}, nil
		}
		consumed = args
		return map[string]interface{}{}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("emit").WithAction("ci", "emit").WithOutput("path", "build_path")
	workflow.NewStep("consume").WithAction("ci", "consume").
		WithInput("direct", "${build_path}").
		WithInput("via_step", "${emit.path}")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.True(t, result.Success)
	assert.EqualValues(t, "/tmp/build", consumed["direct"])
	assert.EqualValues(t, "/tmp/build", consumed["via_step"])
	assert.EqualValues(t, "/tmp/build", result.Context["build_path"])
}

func TestService_Execute_Prerequisites(t *testing.T) {
	provider := newFakeProvider("ci", "build")
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo").
		WithPrerequisite("${approved}", "run requires approval")
	workflow.NewStep("build").WithAction("ci", "build")

	result, err := srv.Execute(context.Background(), workflow, map[string]interface{}{"approved": false})
	assert.NotNil(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "run requires approval")
	assert.EqualValues(t, 0, provider.callCount("build"))

	result, err = srv.Execute(context.Background(), workflow, map[string]interface{}{"approved": true})
	assert.Nil(t, err)
	assert.True(t, result.Success)
}

func TestService_Execute_SuccessCriteria(t *testing.T) {
	provider := newFakeProvider("ci", "emit")
	provider.handler = func(string, int, map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"status": "passed"}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo").
		WithCriterion("${verdict}", "verdict is recorded")
	workflow.NewStep("emit").WithAction("ci", "emit").WithOutput("status", "verdict")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.True(t, result.Success)

	failing := model.NewWorkflow("demo").
		WithCriterion("${never_set}", "missing value")
	failing.NewStep("emit").WithAction("ci", "emit")
	result, err = srv.Execute(context.Background(), failing, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "missing value")
}

func TestService_Execute_PolicyBlocks(t *testing.T) {
	provider := newFakeProvider("ci", "deploy")
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("deploy").WithAction("ci", "deploy").WithRetry(2, 0)

	ctx := policy.WithPolicy(context.Background(), &policy.Policy{
		BlockList: []string{"ci.deploy"},
	})
	result, err := srv.Execute(ctx, workflow, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not allowed")
	// a blocked action is never attempted, let alone retried
	assert.EqualValues(t, 0, provider.callCount("deploy"))
}

type recordingCompensator struct {
	mux   sync.Mutex
	steps []string
}

func (c *recordingCompensator) Compensate(ctx context.Context, workflow *model.Workflow, failed *model.Step, runCtx map[string]interface{}) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.steps = append(c.steps, failed.Name)
	return nil
}

func TestService_Execute_RollbackPolicy(t *testing.T) {
	provider := newFakeProvider("ci", "deploy")
	provider.handler = func(string, int, map[string]interface{}) (map[string]interface{}, error) {
		return nil, fmt.Errorf("deploy failed")
	}
	registry := capability.NewRegistry()
	registry.Register(provider)
	compensator := &recordingCompensator{}
	srv := New(registry, WithCompensator(compensator), WithDefaultTimeout(time.Second))

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("deploy").WithAction("ci", "deploy").WithOnError(model.ErrorPolicyRollback)
	workflow.NewStep("after").WithAction("ci", "deploy")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)
	assert.EqualValues(t, []string{"deploy"}, compensator.steps)
	// rollback halts like fail
	assert.Nil(t, result.StepResultOf("after"))
}

func TestService_Execute_CostAggregation(t *testing.T) {
	provider := newFakeProvider("ai", "summarize")
	provider.handler = func(string, int, map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"result": "summary", "cost": 0.25}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	workflow.NewStep("first").WithAction("ai", "summarize")
	workflow.NewStep("second").WithAction("ai", "summarize")

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.InDelta(t, 0.5, result.TotalCost, 1e-9)
	assert.InDelta(t, 0.25, result.Steps[0].Cost, 1e-9)
}

func TestService_Execute_LateSuccessIsTimeout(t *testing.T) {
	provider := newFakeProvider("ci", "slow")
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if call == 1 {
			// ignore the deadline and report success late
			time.Sleep(100 * time.Millisecond)
			return map[string]interface{}{"result": "late"}, nil
		}
		return map[string]interface{}{"result": "ok"}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo")
	step := workflow.NewStep("slow").WithAction("ci", "slow").WithRetry(1, 0)
	step.Timeout = 30 * time.Millisecond

	result, err := srv.Execute(context.Background(), workflow, nil)
	assert.Nil(t, err)
	assert.True(t, result.Success)
	if assert.EqualValues(t, 1, len(result.Steps)) {
		assert.EqualValues(t, 1, result.Steps[0].Retries)
		assert.EqualValues(t, "ok", result.Steps[0].Output["result"])
	}
	assert.EqualValues(t, 2, provider.callCount("slow"))
}

func TestService_Execute_ProgressCounters(t *testing.T) {
	provider := newFakeProvider("ci", "good", "bad")
	provider.handler = func(action string, call int, args map[string]interface{}) (map[string]interface{}, error) {
		if action == "bad" {
			return nil, fmt.Errorf("boom")
		}
		return map[string]interface{}{"result": "ok"}, nil
	}
	srv, _ := newTestEngine(provider)

	workflow := model.NewWorkflow("demo").WithVariable("enabled", "false")
	workflow.NewStep("first").WithAction("ci", "good")
	workflow.NewStep("optional").WithAction("ci", "good").WithCondition("${enabled}")
	workflow.NewStep("flaky").WithAction("ci", "bad").WithOnError(model.ErrorPolicyContinue)
	group := workflow.NewStep("pair")
	group.Type = model.StepTypeParallel
	group.AddStep("left").WithAction("ci", "good")
	group.AddStep("right").WithAction("ci", "good")

	ctx, tracker := progress.WithNewTracker(context.Background(), "run-1", "demo", nil)
	result, err := srv.Execute(ctx, workflow, nil)
	assert.NotNil(t, err)
	assert.False(t, result.Success)

	snapshot := tracker.Snapshot()
	assert.EqualValues(t, 6, snapshot.TotalSteps)
	assert.EqualValues(t, 4, snapshot.CompletedSteps)
	assert.EqualValues(t, 1, snapshot.SkippedSteps)
	assert.EqualValues(t, 1, snapshot.FailedSteps)
	assert.EqualValues(t, 0, snapshot.RunningSteps)
	assert.EqualValues(t, 0, snapshot.PendingSteps)
}
