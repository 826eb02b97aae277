package exitstatus

import (
	"log/slog"
	"sync"
)

// Invocation records the exit status of one run. The first decision wins;
// later attempts are logged and ignored.
type Invocation struct {
	logger *slog.Logger

	mu      sync.Mutex
	status  Status
	decided bool
	cause   error
}

// NewInvocation creates an undecided invocation.
func NewInvocation(logger *slog.Logger) *Invocation {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Invocation{logger: logger}
}

// MarkRuntimeFailure decides the invocation as an internal error caused by err.
func (i *Invocation) MarkRuntimeFailure(err error) Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.decided {
		i.logger.Warn("exit status already decided, ignoring runtime failure",
			"code", int(i.status.Code), "error", err)

		return i.status
	}

	i.logger.Error("run failed", "error", err)

	i.status = Status{Code: InternalError, Description: InternalErrorDescription}
	i.cause = err
	i.decided = true

	return i.status
}

// Decide evaluates the thresholds unless the invocation is already decided,
// in which case the existing status is returned unchanged.
func (i *Invocation) Decide(in Input, th Thresholds) Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.decided {
		i.logger.Warn("exit status already decided, skipping threshold evaluation",
			"code", int(i.status.Code))

		return i.status
	}

	i.status = Evaluate(in, th)
	i.decided = true

	return i.status
}

// Status returns the decided status and whether a decision was made.
func (i *Invocation) Status() (Status, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.status, i.decided
}

// Cause returns the runtime failure, if any.
func (i *Invocation) Cause() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.cause
}
