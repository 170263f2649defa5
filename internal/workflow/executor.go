package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

// StageExecutor runs a single role invocation under the shared retry policy:
// a per-attempt timeout, bounded attempts with exponential backoff, and one
// provenance record per attempt.
type StageExecutor struct {
	invoker RoleInvoker
	policy  config.RetryPolicy
	sleep   func(ctx context.Context, d time.Duration) error
	debug   bool
}

func NewStageExecutor(invoker RoleInvoker, policy config.RetryPolicy) *StageExecutor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &StageExecutor{
		invoker: invoker,
		policy:  policy,
		sleep:   sleepCtx,
	}
}

// Execute invokes the stage's role until it succeeds, the retry budget is
// exhausted, a permanent failure occurs, or the run is cancelled. The
// returned records cover every attempt made; the caller appends them to the
// run provenance.
func (ex *StageExecutor) Execute(ctx context.Context, stage string, view models.StateView) (*RoleResult, []models.StageRecord, error) {
	var records []models.StageRecord
	var lastErr error

	for attempt := 1; attempt <= ex.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := ex.sleep(ctx, ex.backoff(attempt)); err != nil {
				return nil, records, &InvocationError{Kind: KindCancelled, Message: stage, Err: err}
			}
		}

		started := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, ex.policy.StageTimeout)
		res, err := ex.invoker.Invoke(attemptCtx, stage, view)
		cancel()
		finished := time.Now()

		rec := models.StageRecord{
			Stage:      stage,
			Attempt:    attempt,
			StartedAt:  started,
			FinishedAt: finished,
		}

		if err == nil {
			rec.Outcome = models.OutcomeSuccess
			records = append(records, rec)
			return res, records, nil
		}

		kind := Classify(err)
		// A deadline hit on the attempt context while the run context is
		// still live is a stage timeout, not a run cancellation.
		if kind == KindCancelled && ctx.Err() == nil {
			kind = KindTimeout
		}

		rec.Outcome = models.OutcomeFailure
		rec.Detail = fmt.Sprintf("%s: %v", kind, err)
		records = append(records, rec)
		lastErr = err

		if ex.debug {
			log.Printf("[Executor] stage %s attempt %d/%d failed (%s): %v",
				stage, attempt, ex.policy.MaxAttempts, kind, err)
		}

		if ctx.Err() != nil {
			return nil, records, &InvocationError{Kind: KindCancelled, Message: stage, Err: ctx.Err()}
		}
		if !retryable(kind) {
			return nil, records, &InvocationError{Kind: kind, Message: stage, Err: err}
		}
	}

	return nil, records, &InvocationError{
		Kind:    Classify(lastErr),
		Message: fmt.Sprintf("%s: retry budget exhausted after %d attempts", stage, ex.policy.MaxAttempts),
		Err:     lastErr,
	}
}

func (ex *StageExecutor) backoff(attempt int) time.Duration {
	delay := ex.policy.BaseDelay
	for i := 2; i < attempt; i++ {
		delay = time.Duration(float64(delay) * ex.policy.Multiplier)
	}
	if ex.policy.MaxDelay > 0 && delay > ex.policy.MaxDelay {
		delay = ex.policy.MaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
