package engine

// errorKind lets the retry loop decide whether to attempt again without
// relying on error string inspection.
type errorKind int

const (
	// errorKindFailure is a non-timeout failure, retried only under an
	// explicit retry policy.
	errorKindFailure errorKind = iota
	// errorKindTimeout is a per-attempt deadline hit, always retry-eligible
	// within the attempt budget.
	errorKindTimeout
	// errorKindBlocked is a policy rejection, never retried.
	errorKindBlocked
)

// attemptError carries the failure of a single attempt together with its
// classification.
type attemptError struct {
	kind errorKind
	err  error
}

func (e *attemptError) Error() string {
	return e.err.Error()
}

func (e *attemptError) Unwrap() error {
	return e.err
}

func failure(err error) *attemptError {
	return &attemptError{kind: errorKindFailure, err: err}
}

func timeout(err error) *attemptError {
	return &attemptError{kind: errorKindTimeout, err: err}
}

func blocked(err error) *attemptError {
	return &attemptError{kind: errorKindBlocked, err: err}
}
