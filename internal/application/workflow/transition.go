package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/claim-review/internal/domain/claim"
	domainwf "github.com/garyjia/claim-review/internal/domain/workflow"
)

// Fire runs trigger on m and reports the resulting state. Refused transitions
// surface as claim.ErrPrecondition wrapping the state machine error.
func Fire(ctx context.Context, m domainwf.StateMachine, trigger domainwf.Trigger) (domainwf.State, error) {
	from := m.State()
	if err := m.Fire(ctx, trigger); err != nil {
		return from, fmt.Errorf("%w: %w", claim.ErrPrecondition, err)
	}
	return m.State(), nil
}
