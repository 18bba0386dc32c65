// Package mpc synthesizes the most permissive controller of a composed
// contract automaton under an agreement requirement.
package mpc

import (
	"context"
	"errors"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/requirement"
	"github.com/stateforward/go-contract/pkg/set"
	"github.com/stateforward/go-contract/queue"
)

var ErrLazyTransition = errors.New("lazy transition in composed automaton")

type synthesis struct {
	automaton   *contract.Automaton
	requirement requirement.Requirement
	bad         set.Set[string]
}

// Synthesize returns the largest sub-automaton of a that a controller can
// keep inside the requirement. Controllable transitions that break req or
// enter a bad state are disabled. A state is bad when an uncontrollable
// transition out of it breaks req or enters a bad state, or when no final
// state is reachable from it. An uncontrollable transition that breaks req
// is ignored while its source keeps an agreeing necessary transition on
// the same action. The result keeps
// what is reachable from the initial state; it is empty when the initial
// state itself is bad.
func Synthesize(ctx context.Context, a *contract.Automaton, req requirement.Requirement) (*contract.Automaton, error) {
	if a.HasLazy() {
		return nil, ErrLazyTransition
	}
	initial, ok := a.Initial()
	if !ok {
		return contract.New(nil)
	}
	s := &synthesis{automaton: a, requirement: req, bad: set.New[string]()}
	for changed := true; changed; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed = s.forced()
		if s.blocking() {
			changed = true
		}
	}
	if s.bad.Contains(initial.Key()) {
		return contract.New(nil)
	}
	return s.reachable(initial)
}

func (s *synthesis) kept(t contract.Transition) bool {
	if s.bad.Contains(t.Source().Key()) || s.bad.Contains(t.Target().Key()) {
		return false
	}
	return s.requirement(t.Label())
}

func (s *synthesis) honored(t contract.Transition) bool {
	for _, other := range s.automaton.Outgoing(t.Source()) {
		if other.Modality() == contract.Necessary && other.Label().Name() == t.Label().Name() && s.kept(other) {
			return true
		}
	}
	return false
}

// forced marks the sources of uncontrollable transitions that cannot be
// kept.
func (s *synthesis) forced() bool {
	changed := false
	for _, t := range s.automaton.Transitions() {
		source := t.Source().Key()
		if t.Modality().Controllable() || s.bad.Contains(source) {
			continue
		}
		if !s.requirement(t.Label()) && s.honored(t) {
			continue
		}
		if s.bad.Contains(t.Target().Key()) || !s.requirement(t.Label()) {
			s.bad.Add(source)
			changed = true
		}
	}
	return changed
}

// blocking marks the states from which no final state is reachable
// through kept transitions.
func (s *synthesis) blocking() bool {
	predecessors := map[string][]contract.State{}
	for _, t := range s.automaton.Transitions() {
		if s.kept(t) {
			target := t.Target().Key()
			predecessors[target] = append(predecessors[target], t.Source())
		}
	}
	live := set.New[string]()
	pending := queue.New[contract.State]()
	for _, state := range s.automaton.States() {
		if state.Final() && !s.bad.Contains(state.Key()) {
			live.Add(state.Key())
			pending.Push(state)
		}
	}
	for pending.Len() > 0 {
		state, _ := pending.Pop()
		for _, predecessor := range predecessors[state.Key()] {
			if !live.Contains(predecessor.Key()) {
				live.Add(predecessor.Key())
				pending.Push(predecessor)
			}
		}
	}
	changed := false
	for _, state := range s.automaton.States() {
		if !live.Contains(state.Key()) && !s.bad.Contains(state.Key()) {
			s.bad.Add(state.Key())
			changed = true
		}
	}
	return changed
}

func (s *synthesis) reachable(initial contract.State) (*contract.Automaton, error) {
	seen := set.New(initial.Key())
	pending := queue.New[contract.State]()
	pending.Push(initial)
	for pending.Len() > 0 {
		state, _ := pending.Pop()
		for _, t := range s.automaton.Outgoing(state) {
			if s.kept(t) && !seen.Contains(t.Target().Key()) {
				seen.Add(t.Target().Key())
				pending.Push(t.Target())
			}
		}
	}
	var transitions []contract.Transition
	for _, t := range s.automaton.Transitions() {
		if s.kept(t) && seen.Contains(t.Source().Key()) {
			transitions = append(transitions, t)
		}
	}
	return contract.New(transitions, initial)
}
