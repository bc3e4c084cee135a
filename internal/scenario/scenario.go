// Package scenario builds stake histories to feed the simulator: a set of
// deterministic built-in generators and a YAML file format.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/replay"
)

// Scenario errors.
var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Scenario is a named stake history together with the schedule it runs under.
type Scenario struct {
	Name        string
	Description string
	Params      domain.LiqParams
	Users       int
	History     domain.StakeHistory
}

// Generator builds a stake history for the given schedule.
type Generator func(params domain.LiqParams) (domain.StakeHistory, error)

type builtin struct {
	description string
	users       int
	generate    Generator
}

var builtins = map[string]builtin{
	"single-staker": {"one user stakes the initial LP amount in epoch 1 and holds", 1, singleStaker},
	"equal-stakers": {"four users stake the same amount early in epoch 1", 4, equalStakers},
	"staggered":     {"four users join one epoch apart, the first later withdraws half", 4, staggered},
	"churn":         {"four users stake and withdraw in rotation over six epochs", 4, churn},
}

// Names returns the built-in scenario names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName generates a built-in scenario under params.
func ByName(name string, params domain.LiqParams) (*Scenario, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	history, err := b.generate(params)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}

	s := &Scenario{
		Name:        name,
		Description: b.description,
		Params:      params,
		Users:       b.users,
		History:     history,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the history can be submitted as-is: it fits in the
// schedule, every action lies in the epoch it is listed under, timestamps are
// strictly increasing and no balance goes negative.
func (s *Scenario) Validate() error {
	if len(s.History) > s.Params.NumberOfEpochs {
		return fmt.Errorf("%w: history spans %d epochs, schedule has %d", ErrInvalidScenario, len(s.History), s.Params.NumberOfEpochs)
	}
	if s.Users > domain.MaxUsers || s.History.NumUsers() > domain.MaxUsers {
		return fmt.Errorf("%w: more than %d users", ErrInvalidScenario, domain.MaxUsers)
	}
	for i, epoch := range s.History {
		epochID := i + 1
		start, end := s.Params.StartOfEpoch(epochID), s.Params.StartOfEpoch(epochID+1)
		for userID, tl := range epoch {
			for _, a := range tl {
				if a.UserID != userID {
					return fmt.Errorf("%w: action of user %d listed under user %d", ErrInvalidScenario, a.UserID, userID)
				}
				if a.Kind != domain.ActionStake && a.Kind != domain.ActionWithdraw {
					return fmt.Errorf("%w: unsupported action kind %q", ErrInvalidScenario, a.Kind)
				}
				if a.Amount == nil || a.Amount.Sign() < 0 {
					return fmt.Errorf("%w: user %d at %d has no amount", ErrInvalidScenario, userID, a.Time)
				}
				if a.Time < start || a.Time >= end {
					return fmt.Errorf("%w: action at %d outside epoch %d [%d, %d)", ErrInvalidScenario, a.Time, epochID, start, end)
				}
			}
		}
	}

	users := s.Users
	if n := s.History.NumUsers(); n > users {
		users = n
	}
	if err := replay.Sequence(context.Background(), s.History, replay.NewBalanceTracker(users)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// Record describes the scenario for persistence under scenarioID.
func (s *Scenario) Record(scenarioID string, createdAt int64) *domain.ScenarioRecord {
	return &domain.ScenarioRecord{
		ScenarioID:  scenarioID,
		Description: s.Description,
		Users:       s.Users,
		Params:      s.Params,
		CreatedAt:   createdAt,
	}
}

// EvalEpoch is the first epoch after the last one with activity. Reward checks
// start there.
func (s *Scenario) EvalEpoch() int {
	return len(s.History) + 1
}

// builder places actions at distinct offsets inside each epoch so that no two
// actions share a timestamp.
type builder struct {
	params  domain.LiqParams
	history domain.StakeHistory
	gap     int64
	next    map[int]int64
}

// slotsPerEpoch bounds how many actions a generator may place in one epoch.
const slotsPerEpoch = 16

func newBuilder(params domain.LiqParams, epochs, users int) (*builder, error) {
	gap := params.EpochDuration / slotsPerEpoch
	if gap == 0 {
		return nil, fmt.Errorf("%w: epoch duration %d too short for generated actions", ErrInvalidScenario, params.EpochDuration)
	}
	return &builder{
		params:  params,
		history: domain.NewStakeHistory(epochs, users),
		gap:     gap,
		next:    make(map[int]int64),
	}, nil
}

func (b *builder) add(epochID, userID int, kind domain.ActionKind, amount *big.Int) {
	b.next[epochID]++
	slot := b.next[epochID]
	if slot >= slotsPerEpoch {
		panic(fmt.Sprintf("scenario: more than %d actions in epoch %d", slotsPerEpoch-1, epochID))
	}
	b.history.Add(epochID, domain.StakeAction{
		Time:   b.params.StartOfEpoch(epochID) + slot*b.gap,
		Amount: new(big.Int).Set(amount),
		Kind:   kind,
		UserID: userID,
	})
}

func (b *builder) stake(epochID, userID int, amount *big.Int) {
	b.add(epochID, userID, domain.ActionStake, amount)
}

func (b *builder) withdraw(epochID, userID int, amount *big.Int) {
	b.add(epochID, userID, domain.ActionWithdraw, amount)
}
