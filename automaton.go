package contract

import (
	"fmt"

	"github.com/stateforward/go-contract/pkg/set"
)

// Automaton is an immutable set of states and transitions. Both sets keep
// insertion order, which is what makes rendering reproducible.
type Automaton struct {
	rank        int
	states      *set.Ordered[State, string]
	transitions *set.Ordered[Transition, string]
	outgoing    map[string][]int
}

// New builds an automaton from transitions. The explicit states come
// first, followed by every source and target in transition order;
// duplicates are dropped by value.
func New(transitions []Transition, states ...State) (*Automaton, error) {
	automaton := &Automaton{
		rank:        -1,
		states:      set.NewOrdered(State.Key),
		transitions: set.NewOrdered(Transition.Key),
		outgoing:    map[string][]int{},
	}
	for _, state := range states {
		if err := automaton.addState(state); err != nil {
			return nil, err
		}
	}
	for _, transition := range transitions {
		if err := automaton.addState(transition.source); err != nil {
			return nil, err
		}
		if err := automaton.addState(transition.target); err != nil {
			return nil, err
		}
		if automaton.transitions.Add(transition) == 1 {
			automaton.outgoing[transition.source.key] = append(automaton.outgoing[transition.source.key], automaton.transitions.Size()-1)
		}
	}
	if automaton.rank < 0 {
		automaton.rank = 0
	}
	return automaton, nil
}

func MustNew(transitions []Transition, states ...State) *Automaton {
	automaton, err := New(transitions, states...)
	if err != nil {
		panic(err)
	}
	return automaton
}

func (automaton *Automaton) addState(state State) error {
	if automaton.rank < 0 {
		automaton.rank = state.Rank()
	} else if state.Rank() != automaton.rank {
		return fmt.Errorf("%w: state %s has rank %d, automaton has rank %d", ErrRankMismatch, state, state.Rank(), automaton.rank)
	}
	automaton.states.Add(state)
	return nil
}

func (automaton *Automaton) Rank() int {
	return automaton.rank
}

func (automaton *Automaton) States() []State {
	return automaton.states.Slice()
}

func (automaton *Automaton) Transitions() []Transition {
	return automaton.transitions.Slice()
}

// Len returns the number of transitions.
func (automaton *Automaton) Len() int {
	return automaton.transitions.Size()
}

func (automaton *Automaton) Contains(state State) bool {
	return automaton.states.Contains(state)
}

// Outgoing returns the transitions leaving state, in transition order.
func (automaton *Automaton) Outgoing(state State) []Transition {
	indexes := automaton.outgoing[state.key]
	outgoing := make([]Transition, 0, len(indexes))
	for _, i := range indexes {
		outgoing = append(outgoing, automaton.transitions.At(i))
	}
	return outgoing
}

// Initial returns the first initial state.
func (automaton *Automaton) Initial() (State, bool) {
	for state := range automaton.states.Items() {
		if state.initial {
			return state, true
		}
	}
	return State{}, false
}

func (automaton *Automaton) HasLazy() bool {
	for transition := range automaton.transitions.Items() {
		if transition.modality == Lazy {
			return true
		}
	}
	return false
}
