package pricing

import "github.com/pkg/errors"

// Error taxonomy for the engine. Callers classify with errors.Is; "no rule
// matched" is a successful outcome and never an error.
var (
	// ErrInvalidItemCode means the item is unknown to the scope context.
	ErrInvalidItemCode = errors.New("invalid item code")

	// ErrMissingParameters means required request fields are absent; the
	// request is rejected before reaching the matcher.
	ErrMissingParameters = errors.New("missing required parameters")

	// ErrRuleEvaluation marks a malformed or self-contradictory rule. Such
	// rules are skipped with a warning, not fatal to the calculation.
	ErrRuleEvaluation = errors.New("rule evaluation error")

	// ErrConfigurationError is surfaced when the engine cannot produce any
	// rule set at all for a calculation.
	ErrConfigurationError = errors.New("pricing engine configuration error")

	// ErrRepositoryUnavailable means the rule store timed out or errored and
	// no cached rule set was available. It is a configuration error: both
	// sentinels match with errors.Is.
	ErrRepositoryUnavailable = errors.Wrap(ErrConfigurationError, "rule repository unavailable")

	// ErrBatchSizeExceeded rejects bulk requests over the item cap, with no
	// partial processing.
	ErrBatchSizeExceeded = errors.New("batch size exceeded")
)
