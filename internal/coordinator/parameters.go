package coordinator

import "fmt"

// Parameters is the validated (n, t) tuple defining a group's size and
// threshold policy. Immutable once constructed.
//
// n is the total number of parties a group admits; t is the signing
// threshold, requiring invariant 0 < t < n.
type Parameters struct {
	N uint16 `json:"n"`
	T uint16 `json:"t"`
}

// NewParameters validates and constructs Parameters. Rejection order
// matters: n is checked before t, so callers see a consistent error
// surface regardless of which field is malformed.
func NewParameters(n, t uint16) (Parameters, error) {
	p := Parameters{N: n, T: t}
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// Validate reports whether p satisfies n >= 2 and 0 < t < n.
func (p Parameters) Validate() error {
	if p.N < 2 {
		return fmt.Errorf("%w: n=%d", ErrInvalidParties, p.N)
	}
	if p.T == 0 || p.T >= p.N {
		return fmt.Errorf("%w: t=%d", ErrInvalidThreshold, p.T)
	}
	return nil
}

// ThresholdReached reports whether parties is enough to proceed for the
// given session kind.
//
// Keygen requires every party (n-of-n key material); Sign requires a
// strict quorum of t+1 parties.
func (p Parameters) ThresholdReached(kind SessionKind, parties int) bool {
	switch kind {
	case SessionKindKeygen:
		return parties == int(p.N)
	case SessionKindSign:
		return parties > int(p.T)
	default:
		return false
	}
}
