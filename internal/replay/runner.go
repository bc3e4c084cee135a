package replay

import (
	"context"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/storage"
)

// Runner loads stake actions from storage and replays them in chronological order.
type Runner struct {
	actionStore storage.ActionStore
}

// NewRunner creates a new replay runner.
func NewRunner(actionStore storage.ActionStore) *Runner {
	return &Runner{actionStore: actionStore}
}

// RunAll replays every action of a scenario through the engine.
func (r *Runner) RunAll(ctx context.Context, scenarioID string, engine Engine) error {
	records, err := r.actionStore.GetByScenario(ctx, scenarioID)
	if err != nil {
		return err
	}
	return replayRecords(ctx, records, engine)
}

// LoadHistory reads a scenario back as an epoch-indexed history.
func (r *Runner) LoadHistory(ctx context.Context, scenarioID string, params domain.LiqParams, users int) (domain.StakeHistory, error) {
	records, err := r.actionStore.GetByScenario(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return Group(records, params, users), nil
}

// Sequence validates the history the way it would be submitted on chain and
// replays it through the engines.
func Sequence(ctx context.Context, history domain.StakeHistory, engines ...Engine) error {
	actions := Flatten(history)
	if err := ValidateOrdering(actions); err != nil {
		return err
	}
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, engine := range engines {
			if err := engine.OnAction(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func replayRecords(ctx context.Context, records []*domain.ActionRecord, engine Engine) error {
	actions := make([]domain.StakeAction, 0, len(records))
	for _, rec := range records {
		actions = append(actions, rec.Action())
	}
	SortActions(actions)
	if err := ValidateOrdering(actions); err != nil {
		return err
	}

	for _, a := range actions {
		if err := engine.OnAction(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
