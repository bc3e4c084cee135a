package replay

import "errors"

var (
	// ErrInvalidOrdering is returned when actions are not strictly increasing in time.
	ErrInvalidOrdering = errors.New("actions are not in strictly increasing time order")

	// ErrNegativeBalance is returned when a withdraw exceeds the staked balance.
	ErrNegativeBalance = errors.New("withdraw exceeds staked balance")

	// ErrUnknownUser is returned when an action references a user outside the scenario.
	ErrUnknownUser = errors.New("action references unknown user")
)
