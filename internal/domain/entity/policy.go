package entity

import (
	"strings"
	"time"
)

// Policy bounds what the proposer is allowed to make the agent do.
type Policy struct {
	MaxPixelDelta          float64
	MaxDx                  float64
	MaxDy                  float64
	AllowedKeys            map[string]struct{}
	MaxActionsPerIteration int
	InterActionDelay       time.Duration
	IterationDelay         time.Duration
	ConvergenceWindow      int
	ConvergenceThreshold   float64
	MinConfidence          float64
	FocusTitle             string
}

// KeyAllowed reports whether a single key is in the policy allow-list.
// Comparison is case-insensitive; an empty allow-list permits nothing.
func (p Policy) KeyAllowed(key string) bool {
	_, ok := p.AllowedKeys[strings.ToLower(key)]
	return ok
}

// AllowKeys builds the allow-list set from a plain slice.
func AllowKeys(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	return set
}
