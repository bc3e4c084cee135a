package scenario

import (
	"fmt"
	"math/big"
	"os"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/replay"
)

// ParamsFile is the YAML form of domain.LiqParams. Omitted fields keep the
// value of domain.DefaultLiqParams. Amounts are decimal strings that must fit
// in 256 bits.
type ParamsFile struct {
	StartTime       *int64 `yaml:"start_time" json:"start_time"`
	EpochDuration   *int64 `yaml:"epoch_duration" json:"epoch_duration"`
	NumberOfEpochs  *int   `yaml:"number_of_epochs" json:"number_of_epochs"`
	VestingEpochs   *int   `yaml:"vesting_epochs" json:"vesting_epochs"`
	RewardsPerEpoch string `yaml:"rewards_per_epoch" json:"rewards_per_epoch"`
	TotalNumerator  string `yaml:"total_numerator" json:"total_numerator"`
	InitialLPAmount string `yaml:"initial_lp_amount" json:"initial_lp_amount"`
}

// ActionFile is one stake or withdraw. User is only read from the flat
// actions list; in the nested form the position gives the user.
type ActionFile struct {
	User   int    `yaml:"user" json:"user"`
	Time   int64  `yaml:"time" json:"time"`
	Amount string `yaml:"amount" json:"amount"`
	Kind   string `yaml:"kind" json:"kind"`
}

// File is the YAML scenario format, also accepted as JSON by the HTTP API.
// Either Epochs (epoch, user, action nesting) or Actions (flat, grouped by
// timestamp) is set, not both.
type File struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description" json:"description"`
	Users       int              `yaml:"users" json:"users"`
	Params      ParamsFile       `yaml:"params" json:"params"`
	Epochs      [][][]ActionFile `yaml:"epochs" json:"epochs"`
	Actions     []ActionFile     `yaml:"actions" json:"actions"`
}

// LoadFile reads and parses a scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadParamsFile reads a YAML file holding only a params block.
func LoadParamsFile(path string) (domain.LiqParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.LiqParams{}, fmt.Errorf("read params file: %w", err)
	}

	var pf ParamsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return domain.LiqParams{}, fmt.Errorf("decode params file: %w", err)
	}
	return pf.Resolve()
}

// Parse decodes a YAML scenario and validates the resulting history.
func Parse(data []byte) (*Scenario, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return f.Build()
}

// Build resolves the params, assembles the history and validates it.
func (f File) Build() (*Scenario, error) {
	params, err := f.Params.Resolve()
	if err != nil {
		return nil, err
	}

	if f.Users < 0 || f.Users > domain.MaxUsers {
		return nil, fmt.Errorf("%w: users must be in [0, %d], got %d", ErrInvalidScenario, domain.MaxUsers, f.Users)
	}
	if len(f.Epochs) > params.NumberOfEpochs {
		return nil, fmt.Errorf("%w: %d epochs listed, schedule has %d", ErrInvalidScenario, len(f.Epochs), params.NumberOfEpochs)
	}
	for i, epoch := range f.Epochs {
		if len(epoch) > domain.MaxUsers {
			return nil, fmt.Errorf("%w: epoch %d lists %d users, limit %d", ErrInvalidScenario, i+1, len(epoch), domain.MaxUsers)
		}
	}

	var history domain.StakeHistory
	switch {
	case len(f.Epochs) > 0 && len(f.Actions) > 0:
		return nil, fmt.Errorf("%w: both epochs and actions are set", ErrInvalidScenario)
	case len(f.Epochs) > 0:
		history, err = nestedHistory(f.Epochs, f.Users)
	default:
		history, err = flatHistory(f.Actions, params, f.Users)
	}
	if err != nil {
		return nil, err
	}

	users := f.Users
	if n := history.NumUsers(); n > users {
		users = n
	}

	s := &Scenario{
		Name:        f.Name,
		Description: f.Description,
		Params:      params,
		Users:       users,
		History:     history,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolve applies the file values over the default parameters.
func (pf ParamsFile) Resolve() (domain.LiqParams, error) {
	p := domain.DefaultLiqParams()

	if pf.StartTime != nil {
		p.StartTime = *pf.StartTime
	}
	if pf.EpochDuration != nil {
		p.EpochDuration = *pf.EpochDuration
	}
	if pf.NumberOfEpochs != nil {
		p.NumberOfEpochs = *pf.NumberOfEpochs
	}
	if pf.VestingEpochs != nil {
		p.VestingEpochs = *pf.VestingEpochs
	}

	var err error
	if p.RewardsPerEpoch, err = amountOr(pf.RewardsPerEpoch, p.RewardsPerEpoch, "rewards_per_epoch"); err != nil {
		return domain.LiqParams{}, err
	}
	if p.TotalNumerator, err = amountOr(pf.TotalNumerator, p.TotalNumerator, "total_numerator"); err != nil {
		return domain.LiqParams{}, err
	}
	if p.InitialLPAmount, err = amountOr(pf.InitialLPAmount, p.InitialLPAmount, "initial_lp_amount"); err != nil {
		return domain.LiqParams{}, err
	}

	if err := p.Validate(); err != nil {
		return domain.LiqParams{}, err
	}
	return p, nil
}

// ParseAmount parses a base-10 amount that must fit in a uint256.
func ParseAmount(s string) (*big.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrInvalidScenario, s, err)
	}
	return v.ToBig(), nil
}

func amountOr(s string, fallback *big.Int, field string) (*big.Int, error) {
	if s == "" {
		return fallback, nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func (af ActionFile) action(userID int) (domain.StakeAction, error) {
	kind := domain.ActionKind(af.Kind)
	if kind != domain.ActionStake && kind != domain.ActionWithdraw {
		return domain.StakeAction{}, fmt.Errorf("%w: action kind %q", ErrInvalidScenario, af.Kind)
	}
	amount, err := ParseAmount(af.Amount)
	if err != nil {
		return domain.StakeAction{}, err
	}
	return domain.StakeAction{Time: af.Time, Amount: amount, Kind: kind, UserID: userID}, nil
}

func nestedHistory(epochs [][][]ActionFile, users int) (domain.StakeHistory, error) {
	history := domain.NewStakeHistory(len(epochs), users)
	for e, epoch := range epochs {
		for u, tl := range epoch {
			for _, af := range tl {
				a, err := af.action(u)
				if err != nil {
					return nil, fmt.Errorf("epoch %d user %d: %w", e+1, u, err)
				}
				history.Add(e+1, a)
			}
		}
	}
	return history, nil
}

func flatHistory(actions []ActionFile, params domain.LiqParams, users int) (domain.StakeHistory, error) {
	records := make([]*domain.ActionRecord, 0, len(actions))
	for i, af := range actions {
		if af.User < 0 || af.User >= domain.MaxUsers {
			return nil, fmt.Errorf("%w: action %d has user %d outside [0, %d)", ErrInvalidScenario, i, af.User, domain.MaxUsers)
		}
		if af.Time < params.StartTime {
			return nil, fmt.Errorf("%w: action %d at %d before start time %d", ErrInvalidScenario, i, af.Time, params.StartTime)
		}
		if e := params.EpochOf(af.Time); e > params.NumberOfEpochs {
			return nil, fmt.Errorf("%w: action %d at %d falls in epoch %d, schedule has %d", ErrInvalidScenario, i, af.Time, e, params.NumberOfEpochs)
		}
		a, err := af.action(af.User)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		records = append(records, &domain.ActionRecord{
			UserID:    a.UserID,
			Timestamp: a.Time,
			Kind:      a.Kind,
			Amount:    a.Amount,
		})
	}
	return replay.Group(records, params, users), nil
}
