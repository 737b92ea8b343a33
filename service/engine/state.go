package engine

// RunState tracks one workflow run.
type RunState string

const (
	RunStateNotStarted RunState = "notStarted"
	RunStateRunning    RunState = "running"
	RunStateSucceeded  RunState = "succeeded"
	RunStateFailed     RunState = "failed"
)

// StepState tracks one step attempt loop.
type StepState string

const (
	StepStatePending   StepState = "pending"
	StepStateExecuting StepState = "executing"
	StepStateSucceeded StepState = "succeeded"
	StepStateFailed    StepState = "failed"
	StepStateTimedOut  StepState = "timedOut"
)
