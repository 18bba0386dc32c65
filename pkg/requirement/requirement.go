// Package requirement holds the agreement properties that drive pruning
// during composition and synthesis.
package requirement

import (
	"fmt"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/kinds"
)

// Requirement reports whether a label is acceptable.
type Requirement func(contract.Label) bool

// StrongAgreement accepts matches and internal moves. Every request must
// be met by an offer and every offer by a request.
func StrongAgreement(label contract.Label) bool {
	return kinds.IsKind(label.Kind(), kinds.MatchLabel, kinds.TauLabel)
}

// Agreement accepts everything but unmatched requests. Offers may go
// unanswered.
func Agreement(label contract.Label) bool {
	return kinds.IsKind(label.Kind(), kinds.MatchLabel, kinds.TauLabel, kinds.OfferLabel)
}

// Not returns the complement of requirement.
func Not(requirement Requirement) Requirement {
	return func(label contract.Label) bool { return !requirement(label) }
}

const (
	Strong = "strong"
	Weak   = "weak"
)

// Parse returns the requirement called name: "strong" for StrongAgreement,
// "weak" for Agreement.
func Parse(name string) (Requirement, error) {
	switch name {
	case Strong:
		return StrongAgreement, nil
	case Weak:
		return Agreement, nil
	}
	return nil, fmt.Errorf("unknown requirement %q: expected %s or %s", name, Strong, Weak)
}
