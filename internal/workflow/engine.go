package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

// Engine drives one analysis run: it owns the state, asks the router for the
// next stage, and dispatches to the executor or a debate controller until
// the final decision exists or a mandatory stage escalates.
type Engine struct {
	cfg      *config.Config
	invoker  RoleInvoker
	observer func(stage string)
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Engine)

// WithDispatchObserver registers a hook called once per dispatched stage, in
// dispatch order. Analyst stages dispatched concurrently are reported in
// canonical order at merge time.
func WithDispatchObserver(fn func(stage string)) Option {
	return func(e *Engine) { e.observer = fn }
}

func NewEngine(cfg *config.Config, invoker RoleInvoker, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, invoker: invoker}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the full pipeline for one request. On success the returned
// artifact carries Success=true (possibly flagged demo if optional analysts
// degraded). On failure the error is a *models.FailureArtifact naming the
// failing stage and preserving provenance.
func (e *Engine) Run(ctx context.Context, req models.AnalysisRequest) (*models.DecisionArtifact, error) {
	if len(req.SelectedAnalysts) == 0 {
		req.SelectedAnalysts = []string{consts.AnalystMarket, consts.AnalystFundamentals}
	}
	if err := ValidateRequest(req); err != nil {
		return nil, &models.FailureArtifact{
			StockSymbol:  req.StockSymbol,
			MarketType:   req.MarketType,
			AnalysisDate: req.AnalysisDate,
			Stage:        "configuration",
			Kind:         string(KindConfig),
			Reason:       err.Error(),
		}
	}

	depth, err := e.cfg.DepthSettingsFor(req.ResearchDepth)
	if err != nil {
		return nil, &models.FailureArtifact{
			StockSymbol:  req.StockSymbol,
			MarketType:   req.MarketType,
			AnalysisDate: req.AnalysisDate,
			Stage:        "configuration",
			Kind:         string(KindConfig),
			Reason:       err.Error(),
		}
	}

	st := models.NewAnalysisState(req)
	exec := NewStageExecutor(e.invoker, e.cfg.Retry)
	exec.debug = e.cfg.Debug
	if e.sleep != nil {
		exec.sleep = e.sleep
	}
	research := NewResearchDebate(depth.MaxResearchRounds)
	risk := NewRiskDebate(depth.MaxRiskRounds)

	if e.cfg.Debug {
		log.Printf("[Engine] session %s: %s %s depth=%d analysts=%v",
			st.SessionID, req.StockSymbol, req.AnalysisDate, req.ResearchDepth, req.SelectedAnalysts)
	}

	// The router strictly advances a counter or presence flag each step, so
	// this bound is never reached by a correct pipeline.
	maxSteps := len(req.SelectedAnalysts) +
		3*depth.MaxResearchRounds + depth.MaxResearchRounds + 1 +
		4*depth.MaxRiskRounds + 1 + 3

	for step := 0; step <= maxSteps; step++ {
		if ctx.Err() != nil {
			return nil, e.failure(st, "engine", KindCancelled, ctx.Err().Error())
		}

		next := NextStep(st)
		switch {
		case next.Done:
			return st.Decision, nil

		case len(next.Analysts) > 0:
			if fa := e.runAnalysts(ctx, exec, st, next.Analysts); fa != nil {
				return nil, fa
			}

		case next.Stage == StepResearchDebate:
			stage, records, err := research.Step(ctx, exec, st.View(), &st.ResearchDebate)
			st.Provenance = append(st.Provenance, records...)
			if err != nil {
				return nil, e.failure(st, stage, Classify(err), err.Error())
			}
			e.observe(stage)

		case next.Stage == consts.Trader:
			res, records, err := exec.Execute(ctx, consts.Trader, st.View())
			st.Provenance = append(st.Provenance, records...)
			if err != nil {
				return nil, e.failure(st, consts.Trader, Classify(err), err.Error())
			}
			e.observe(consts.Trader)
			st.TraderPlan = res.Content
			st.TraderPlanSet = true

		case next.Stage == StepRiskDebate:
			stage, records, err := risk.Step(ctx, exec, st.View(), &st.RiskDebate)
			st.Provenance = append(st.Provenance, records...)
			if err != nil {
				return nil, e.failure(st, stage, Classify(err), err.Error())
			}
			e.observe(stage)

		case next.Stage == consts.PortfolioManager:
			res, records, err := exec.Execute(ctx, consts.PortfolioManager, st.View())
			st.Provenance = append(st.Provenance, records...)
			if err != nil {
				return nil, e.failure(st, consts.PortfolioManager, Classify(err), err.Error())
			}
			e.observe(consts.PortfolioManager)
			st.Decision = Aggregate(st, res.Content)

		default:
			return nil, e.failure(st, next.Stage, KindPermanent, "router returned unknown stage")
		}
	}

	return nil, e.failure(st, "engine", KindPermanent,
		fmt.Sprintf("step budget %d exceeded without reaching a decision", maxSteps))
}

type analystOutcome struct {
	kind    string
	result  *RoleResult
	records []models.StageRecord
	err     error
}

// runAnalysts dispatches the pending analyst stages, concurrently up to the
// configured bound. Each task only ever writes its own output slot; results
// and provenance are merged in canonical order so runs are reproducible
// regardless of goroutine interleaving.
func (e *Engine) runAnalysts(ctx context.Context, exec *StageExecutor, st *models.AnalysisState, pending []string) *models.FailureArtifact {
	view := st.View()
	outcomes := make(map[string]*analystOutcome, len(pending))

	parallel := e.cfg.MaxParallelAnalysts
	if parallel < 1 {
		parallel = 1
	}

	if parallel == 1 || len(pending) == 1 {
		for _, kind := range pending {
			res, records, err := exec.Execute(ctx, consts.AnalystStages[kind], view)
			outcomes[kind] = &analystOutcome{kind: kind, result: res, records: records, err: err}
		}
	} else {
		var wg sync.WaitGroup
		var mu sync.Mutex
		sem := make(chan struct{}, parallel)
		for _, kind := range pending {
			wg.Add(1)
			go func(kind string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				res, records, err := exec.Execute(ctx, consts.AnalystStages[kind], view)
				mu.Lock()
				outcomes[kind] = &analystOutcome{kind: kind, result: res, records: records, err: err}
				mu.Unlock()
			}(kind)
		}
		wg.Wait()
	}

	// Merge in canonical order.
	for _, kind := range pending {
		out := outcomes[kind]
		stage := consts.AnalystStages[kind]
		st.Provenance = append(st.Provenance, out.records...)
		e.observe(stage)

		if out.err == nil {
			if err := st.SetAnalystReport(kind, out.result.Content); err != nil {
				return e.failure(st, stage, KindPermanent, err.Error())
			}
			continue
		}

		kindErr := Classify(out.err)
		if kindErr == KindCancelled {
			return e.failure(st, stage, KindCancelled, out.err.Error())
		}

		// Analysts are optional: absorb the failure, flag the run degraded.
		st.MarkAnalystFailed(kind, string(kindErr))
		st.Provenance = append(st.Provenance, models.StageRecord{
			Stage:   stage,
			Attempt: len(out.records) + 1,
			Outcome: models.OutcomeFallback,
			Detail:  fmt.Sprintf("proceeding without %s analyst: %v", kind, out.err),
		})
		if e.cfg.Debug {
			log.Printf("[Engine] analyst %s degraded: %v", kind, out.err)
		}
	}

	return nil
}

func (e *Engine) observe(stage string) {
	if e.observer != nil {
		e.observer(stage)
	}
}

func (e *Engine) failure(st *models.AnalysisState, stage string, kind ErrorKind, reason string) *models.FailureArtifact {
	return &models.FailureArtifact{
		SessionID:    st.SessionID,
		StockSymbol:  st.Request.StockSymbol,
		MarketType:   st.Request.MarketType,
		AnalysisDate: st.Request.AnalysisDate,
		Stage:        stage,
		Kind:         string(kind),
		Reason:       reason,
		Provenance:   append([]models.StageRecord(nil), st.Provenance...),
	}
}

// AsFailure extracts the failure artifact from a Run error, if present.
func AsFailure(err error) (*models.FailureArtifact, bool) {
	var fa *models.FailureArtifact
	if errors.As(err, &fa) {
		return fa, true
	}
	return nil, false
}
