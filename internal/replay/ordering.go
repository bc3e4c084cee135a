package replay

import (
	"fmt"
	"sort"

	"liquidity-mining-lab/internal/domain"
)

// Flatten collects every real action of the history into one sequence ordered
// by (time ASC, user ASC). Epoch-end markers are dropped.
func Flatten(history domain.StakeHistory) []domain.StakeAction {
	var actions []domain.StakeAction
	for _, a := range history.Actions() {
		if a.IsEpochEnd() {
			continue
		}
		actions = append(actions, a)
	}
	SortActions(actions)
	return actions
}

// SortActions orders actions by (time ASC, user ASC, kind ASC).
// The sort is stable so equal keys keep their input order.
func SortActions(actions []domain.StakeAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		return compareActions(actions[i], actions[j]) < 0
	})
}

// ValidateOrdering checks that timestamps are strictly increasing.
// Every action becomes its own block on chain, so two actions can never share
// a timestamp.
func ValidateOrdering(actions []domain.StakeAction) error {
	for i := 1; i < len(actions); i++ {
		if actions[i-1].Time >= actions[i].Time {
			return fmt.Errorf("%w: action %d at %d follows %d", ErrInvalidOrdering, i, actions[i].Time, actions[i-1].Time)
		}
	}
	return nil
}

// Group rebuilds an epoch-indexed history from flat records using the epoch
// boundaries of params. Actions before the schedule starts are moved to
// StartTime in epoch 1, since nothing accrues before then.
func Group(records []*domain.ActionRecord, params domain.LiqParams, users int) domain.StakeHistory {
	actions := make([]domain.StakeAction, 0, len(records))
	for _, r := range records {
		actions = append(actions, r.Action())
		if r.UserID+1 > users {
			users = r.UserID + 1
		}
	}
	SortActions(actions)

	var history domain.StakeHistory
	for _, a := range actions {
		epochID := params.EpochOf(a.Time)
		if epochID < 1 {
			epochID = 1
			a.Time = params.StartTime
		}
		history.Add(epochID, a)
	}

	// Every epoch carries a slot per user so NumUsers matches the scenario.
	for i := range history {
		for len(history[i]) < users {
			history[i] = append(history[i], nil)
		}
	}
	if len(history) == 0 && users > 0 {
		history = domain.NewStakeHistory(1, users)
	}
	return history
}

// Records converts a history into storable records for scenarioID.
func Records(scenarioID string, history domain.StakeHistory, params domain.LiqParams) []*domain.ActionRecord {
	actions := Flatten(history)
	records := make([]*domain.ActionRecord, 0, len(actions))
	for _, a := range actions {
		records = append(records, &domain.ActionRecord{
			ScenarioID: scenarioID,
			UserID:     a.UserID,
			Epoch:      params.EpochOf(a.Time),
			Timestamp:  a.Time,
			Kind:       a.Kind,
			Amount:     a.Amount,
		})
	}
	return records
}

// compareActions returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareActions(a, b domain.StakeAction) int {
	if a.Time != b.Time {
		if a.Time < b.Time {
			return -1
		}
		return 1
	}
	if a.UserID != b.UserID {
		if a.UserID < b.UserID {
			return -1
		}
		return 1
	}
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	return 0
}
