package workflow

import (
	"context"

	"github.com/mohaoran/AlphaCouncil/internal/models"
)

// RoleResult carries one role's output plus the optional signals the
// orchestration cares about.
type RoleResult struct {
	Content string

	// ConsensusReached is only meaningful on arbitrating roles. It is an
	// explicit signal, never inferred from Content.
	ConsensusReached bool
}

// RoleInvoker executes one role against a read view of the run state. The
// engine is agnostic to how a role is implemented: an LLM call, a cached
// heuristic, or a test stub. Implementations must respect ctx cancellation
// and deadlines.
type RoleInvoker interface {
	Invoke(ctx context.Context, role string, view models.StateView) (*RoleResult, error)
}

// RoleInvokerFunc adapts a function to the RoleInvoker interface.
type RoleInvokerFunc func(ctx context.Context, role string, view models.StateView) (*RoleResult, error)

func (f RoleInvokerFunc) Invoke(ctx context.Context, role string, view models.StateView) (*RoleResult, error) {
	return f(ctx, role, view)
}
