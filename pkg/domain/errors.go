package domain

import "errors"

// ErrNoTransition is returned when the transition table has no target for a node/edge pair.
var ErrNoTransition = errors.New("no transition for edge")

// ErrStepLimit is returned when a turn exceeds the maximum number of engine steps.
var ErrStepLimit = errors.New("step limit exceeded")

// ErrHandoffUnavailable is returned by handoff sinks that cannot accept tickets.
var ErrHandoffUnavailable = errors.New("handoff channel unavailable")
