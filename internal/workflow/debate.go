package workflow

import (
	"context"
	"fmt"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

// DebateController drives one bounded, turn-ordered debate: a fixed speaker
// cycle plus an arbitrating role with final say. The research debate cycles
// bull/bear and lets the arbiter cut the debate short by signalling
// consensus; the risk debate cycles risky/safe/neutral and always runs to
// its round cap.
type DebateController struct {
	name           string
	speakers       []string
	judge          string
	maxRounds      int
	checkConsensus bool

	// rounds already reviewed by the judge without reaching a verdict.
	judgedRounds int
}

func NewResearchDebate(maxRounds int) *DebateController {
	return &DebateController{
		name:           "research",
		speakers:       []string{consts.BullResearcher, consts.BearResearcher},
		judge:          consts.ResearchManager,
		maxRounds:      maxRounds,
		checkConsensus: true,
	}
}

func NewRiskDebate(maxRounds int) *DebateController {
	return &DebateController{
		name:      "risk",
		speakers:  []string{consts.RiskyAnalyst, consts.SafeAnalyst, consts.NeutralAnalyst},
		judge:     consts.RiskJudge,
		maxRounds: maxRounds,
	}
}

// Step dispatches exactly one stage of the debate: the next speaker in the
// cycle, or the arbiter at a round boundary. It mutates d and returns the
// dispatched stage plus the provenance of the invocation attempts. Stepping
// a terminal debate is a programming error and fails fast.
func (c *DebateController) Step(ctx context.Context, exec *StageExecutor, view models.StateView, d *models.DebateState) (string, []models.StageRecord, error) {
	if d.Terminal {
		return "", nil, fmt.Errorf("%s debate stepped after terminal state", c.name)
	}

	if c.judgeTurn(d) {
		res, records, err := exec.Execute(ctx, c.judge, view)
		if err != nil {
			return c.judge, records, err
		}
		if c.checkConsensus {
			d.ConsensusReached = res.ConsensusReached
		}
		if d.RoundCount >= c.maxRounds || d.ConsensusReached {
			d.JudgeDecision = res.Content
			d.Terminal = true
		} else {
			// Interim review: no verdict yet, next round starts.
			c.judgedRounds = d.RoundCount
		}
		return c.judge, records, nil
	}

	speaker := c.speakers[len(d.Turns)%len(c.speakers)]
	res, records, err := exec.Execute(ctx, speaker, view)
	if err != nil {
		return speaker, records, err
	}
	d.Turns = append(d.Turns, models.DebateTurn{Speaker: speaker, Statement: res.Content})
	if len(d.Turns)%len(c.speakers) == 0 {
		d.RoundCount++
	}
	return speaker, records, nil
}

// judgeTurn reports whether the arbiter speaks next. The research arbiter
// reviews every completed round; the risk arbiter only rules once the round
// cap is reached.
func (c *DebateController) judgeTurn(d *models.DebateState) bool {
	if len(d.Turns) == 0 || len(d.Turns)%len(c.speakers) != 0 {
		return false
	}
	if d.RoundCount <= c.judgedRounds {
		return false
	}
	return c.checkConsensus || d.RoundCount >= c.maxRounds
}
