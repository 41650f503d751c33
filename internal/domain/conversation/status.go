package conversation

import "errors"

// ErrInvalidTransition is returned when a status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrStatusChanged is returned when a conditional append finds the conversation in another status.
var ErrStatusChanged = errors.New("conversation status changed")

// ValidTransitions defines allowed status transitions. Ended is terminal.
var ValidTransitions = map[Status][]Status{
	StatusBot:   {StatusHuman, StatusEnded},
	StatusHuman: {StatusEnded},
	StatusEnded: {},
}

// CanTransitionTo checks if a transition from current status to target status is valid.
func (s Status) CanTransitionTo(target Status) bool {
	validTargets, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target status and returns error if invalid.
func (s Status) TransitionTo(target Status) (Status, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}
