// Package tests holds automata shared by the package tests.
package tests

import (
	"strings"
	"testing"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/data"
)

const (
	// DealerData offers two cards in a row.
	DealerData = `Rank: 1
Initial state: [q0]
Final states: [[q2]]
Transitions:
([q0],[!card],[q1])
([q1],[!card],[q2])
`
	// PlayerData asks for one card, lazily.
	PlayerData = `Rank: 1
Initial state: [p0]
Final states: [[p1]]
Transitions:
!L([p0],[?card],[p1])
`
	// AskData is a single role that lazily asks and then necessarily
	// acknowledges.
	AskData = `Rank: 1
Initial state: [A]
Final states: [[C]]
Transitions:
!L([A],[?ask],[B])
!U([B],[!ack],[C])
`
	// ClientData and ServiceData form a request/response pair where the
	// client can also give up.
	ClientData = `Rank: 1
Initial state: [c0]
Final states: [[c2]]
Transitions:
([c0],[?query],[c1])
!U([c1],[?result],[c2])
([c0],[~quit],[c2])
`
	ServiceData = `Rank: 1
Initial state: [s0]
Final states: [[s0]]
Transitions:
([s0],[!query],[s1])
([s1],[!result],[s0])
`
)

// Parse decodes text in the native format or fails the test.
func Parse(t testing.TB, text string) *contract.Automaton {
	t.Helper()
	a, err := data.Decode(strings.NewReader(text))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return a
}

func Dealer(t testing.TB) *contract.Automaton { return Parse(t, DealerData) }

func Player(t testing.TB) *contract.Automaton { return Parse(t, PlayerData) }

func Ask(t testing.TB) *contract.Automaton { return Parse(t, AskData) }

func Client(t testing.TB) *contract.Automaton { return Parse(t, ClientData) }

func Service(t testing.TB) *contract.Automaton { return Parse(t, ServiceData) }

// State builds a state of plain role states named names.
func State(names ...string) contract.State {
	roles := make([]contract.RoleState, len(names))
	for i, name := range names {
		roles[i] = contract.RoleState{Name: name}
	}
	return contract.NewState(roles...)
}

// Find returns the transitions of a leaving a state with the given role
// names.
func Find(a *contract.Automaton, names ...string) []contract.Transition {
	var found []contract.Transition
	for _, t := range a.Transitions() {
		if strings.Join(t.Source().Names(), ",") == strings.Join(names, ",") {
			found = append(found, t)
		}
	}
	return found
}
