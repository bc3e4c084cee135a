package domain

// UserTimeline is one user's actions inside one epoch, in non-decreasing time order.
// Ordering is the caller's responsibility.
type UserTimeline []StakeAction

// EpochActivity holds every user's timeline for one epoch, indexed by user ID.
type EpochActivity []UserTimeline

// StakeHistory is the epoch-ordered activity of all users. Index 0 is epoch 1.
type StakeHistory []EpochActivity

// NumUsers returns the widest user count across epochs.
func (h StakeHistory) NumUsers() int {
	n := 0
	for _, epoch := range h {
		if len(epoch) > n {
			n = len(epoch)
		}
	}
	return n
}

// Epoch returns the activity for a 1-based epoch ID.
// Epochs beyond the recorded history are empty.
func (h StakeHistory) Epoch(epochID int) EpochActivity {
	if epochID < 1 || epochID > len(h) {
		return nil
	}
	return h[epochID-1]
}

// Timeline returns the actions of userID in the epoch. Missing users have none.
func (e EpochActivity) Timeline(userID int) UserTimeline {
	if userID < 0 || userID >= len(e) {
		return nil
	}
	return e[userID]
}

// NewStakeHistory allocates epochs*users empty timelines.
func NewStakeHistory(epochs, users int) StakeHistory {
	h := make(StakeHistory, epochs)
	for i := range h {
		h[i] = make(EpochActivity, users)
	}
	return h
}

// Add appends an action to the timeline of its user in epochID, growing the
// history as needed.
func (h *StakeHistory) Add(epochID int, a StakeAction) {
	for len(*h) < epochID {
		*h = append(*h, nil)
	}
	epoch := (*h)[epochID-1]
	for len(epoch) <= a.UserID {
		epoch = append(epoch, nil)
	}
	epoch[a.UserID] = append(epoch[a.UserID], a)
	(*h)[epochID-1] = epoch
}

// Actions returns all actions in epoch, user, time order.
func (h StakeHistory) Actions() []StakeAction {
	var out []StakeAction
	for _, epoch := range h {
		for _, tl := range epoch {
			out = append(out, tl...)
		}
	}
	return out
}
