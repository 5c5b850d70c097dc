package lp

import "errors"

var (
	// ErrEmptyModel indicates there are no live devices or no live networks.
	ErrEmptyModel = errors.New("lp: nothing to optimize: need at least one device and one network")
	// ErrInvalidWeights indicates beta fell outside [0,1].
	ErrInvalidWeights = errors.New("lp: weight outside [0,1]")
	// ErrMalformedProblem indicates problem text that does not follow the grammar.
	ErrMalformedProblem = errors.New("lp: malformed problem text")
	// ErrMalformedSolution indicates a solver answer that cannot be mapped
	// back onto the snapshot's variables.
	ErrMalformedSolution = errors.New("lp: malformed solution")
)
