package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

func testPolicy() config.RetryPolicy {
	return config.RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		StageTimeout: 50 * time.Millisecond,
	}
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	inv := newStubInvoker().on(consts.Trader, stubResponse{content: "buy 100 shares"})
	ex := NewStageExecutor(inv, testPolicy())

	res, records, err := ex.Execute(context.Background(), consts.Trader, models.StateView{})
	require.NoError(t, err)
	assert.Equal(t, "buy 100 shares", res.Content)
	require.Len(t, records, 1)
	assert.Equal(t, models.OutcomeSuccess, records[0].Outcome)
	assert.Equal(t, 1, records[0].Attempt)
	assert.False(t, records[0].FinishedAt.Before(records[0].StartedAt))
}

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	inv := newStubInvoker().on(consts.Trader,
		stubResponse{err: Transient("connection reset")},
		stubResponse{content: "plan"})
	ex := NewStageExecutor(inv, testPolicy())

	res, records, err := ex.Execute(context.Background(), consts.Trader, models.StateView{})
	require.NoError(t, err)
	assert.Equal(t, "plan", res.Content)
	require.Len(t, records, 2)
	assert.Equal(t, models.OutcomeFailure, records[0].Outcome)
	assert.Equal(t, models.OutcomeSuccess, records[1].Outcome)
}

func TestExecutePermanentFailureIsNotRetried(t *testing.T) {
	inv := newStubInvoker().on(consts.Trader, stubResponse{err: Permanent("bad auth")})
	ex := NewStageExecutor(inv, testPolicy())

	_, records, err := ex.Execute(context.Background(), consts.Trader, models.StateView{})
	require.Error(t, err)
	assert.Equal(t, KindPermanent, Classify(err))
	assert.Len(t, records, 1)
	assert.Equal(t, 1, inv.callCount(consts.Trader))
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	inv := newStubInvoker().on(consts.Trader, stubResponse{err: Transient("flaky")})
	ex := NewStageExecutor(inv, testPolicy())

	_, records, err := ex.Execute(context.Background(), consts.Trader, models.StateView{})
	require.Error(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 3, inv.callCount(consts.Trader))
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Attempt)
		assert.Equal(t, models.OutcomeFailure, rec.Outcome)
	}
}

func TestExecuteAttemptTimeoutIsRetried(t *testing.T) {
	inv := newStubInvoker().on(consts.Trader,
		stubResponse{content: "slow", delay: 200 * time.Millisecond},
		stubResponse{content: "fast"})
	ex := NewStageExecutor(inv, testPolicy())

	res, records, err := ex.Execute(context.Background(), consts.Trader, models.StateView{})
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Content)
	require.Len(t, records, 2)
	assert.Contains(t, records[0].Detail, string(KindTimeout))
}

func TestExecuteStopsOnRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := RoleInvokerFunc(func(c context.Context, role string, view models.StateView) (*RoleResult, error) {
		cancel()
		<-c.Done()
		return nil, c.Err()
	})
	ex := NewStageExecutor(inv, testPolicy())

	_, records, err := ex.Execute(ctx, consts.Trader, models.StateView{})
	require.Error(t, err)
	assert.Equal(t, KindCancelled, Classify(err))
	assert.Len(t, records, 1, "no further attempts after cancellation")
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	ex := NewStageExecutor(newStubInvoker(), config.RetryPolicy{
		MaxAttempts: 6,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    40 * time.Millisecond,
		Multiplier:  2.0,
	})

	assert.Equal(t, 10*time.Millisecond, ex.backoff(2))
	assert.Equal(t, 20*time.Millisecond, ex.backoff(3))
	assert.Equal(t, 40*time.Millisecond, ex.backoff(4))
	assert.Equal(t, 40*time.Millisecond, ex.backoff(5), "backoff capped at MaxDelay")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindTransient, Classify(Transient("x")))
	assert.Equal(t, KindPermanent, Classify(Permanent("x")))
	assert.Equal(t, KindTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, KindCancelled, Classify(context.Canceled))
	assert.Equal(t, KindTransient, Classify(assert.AnError))
}
