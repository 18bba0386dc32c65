// Package compose builds the parallel product of principal automata.
package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/requirement"
	"github.com/stateforward/go-contract/queue"
)

var (
	ErrNoPrincipals   = errors.New("no principals to compose")
	ErrNoInitialState = errors.New("principal has no initial state")
	ErrLazyTransition = errors.New("lazy transition in principal")
)

type principal struct {
	automaton *contract.Automaton
	offset    int
}

type node struct {
	locals []contract.State
	state  contract.State
}

type product struct {
	principals []principal
	rank       int
	prune      requirement.Requirement
	seen       map[string]contract.State
	pending    *queue.Queue[node]
	moves      []contract.Transition
}

// Compose explores the product of automata breadth-first from the tuple
// of their initial states. A principal may move alone, or an offer of one
// principal may match a request of another for the same action. Moves
// whose label satisfies prune are dropped, and so is everything only
// reachable through them. A nil prune keeps every move.
func Compose(ctx context.Context, automata []*contract.Automaton, prune requirement.Requirement) (*contract.Automaton, error) {
	if len(automata) == 0 {
		return nil, ErrNoPrincipals
	}
	if prune == nil {
		prune = func(contract.Label) bool { return false }
	}
	p := &product{
		prune:   prune,
		seen:    map[string]contract.State{},
		pending: queue.New[node](),
	}
	initials := make([]contract.State, len(automata))
	for i, automaton := range automata {
		if automaton.HasLazy() {
			return nil, fmt.Errorf("principal %d: %w", i+1, ErrLazyTransition)
		}
		initial, ok := automaton.Initial()
		if !ok {
			return nil, fmt.Errorf("principal %d: %w", i+1, ErrNoInitialState)
		}
		initials[i] = initial
		p.principals = append(p.principals, principal{automaton: automaton, offset: p.rank})
		p.rank += automaton.Rank()
	}

	initial := p.visit(initials)
	for p.pending.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current, _ := p.pending.Pop()
		if err := p.expand(current); err != nil {
			return nil, err
		}
	}
	return contract.New(p.moves, initial)
}

func key(locals []contract.State) string {
	keys := make([]string, len(locals))
	for i, local := range locals {
		keys[i] = local.Key()
	}
	return strings.Join(keys, "\x00")
}

// visit returns the composed state of locals and queues it the first time
// it is seen.
func (p *product) visit(locals []contract.State) contract.State {
	k := key(locals)
	if state, ok := p.seen[k]; ok {
		return state
	}
	var roles []contract.RoleState
	for _, local := range locals {
		roles = append(roles, local.Roles()...)
	}
	state := contract.NewState(roles...)
	p.seen[k] = state
	p.pending.Push(node{locals: locals, state: state})
	return state
}

type part struct {
	principal int
	label     contract.Label
}

func (p *product) lift(parts ...part) (contract.Label, error) {
	builder := contract.NewLabelBuilder(p.rank)
	for _, part := range parts {
		for role, action := range part.label.Actions() {
			builder.Set(p.principals[part.principal].offset+role, action)
		}
	}
	return builder.Build()
}

func (p *product) add(from node, label contract.Label, modality contract.Modality, moved map[int]contract.State) error {
	if p.prune(label) {
		return nil
	}
	locals := append([]contract.State(nil), from.locals...)
	for i, local := range moved {
		locals[i] = local
	}
	transition, err := contract.NewTransition(from.state, label, p.visit(locals), modality)
	if err != nil {
		return err
	}
	p.moves = append(p.moves, transition)
	return nil
}

func (p *product) expand(current node) error {
	outgoing := make([][]contract.Transition, len(p.principals))
	for i, principal := range p.principals {
		outgoing[i] = principal.automaton.Outgoing(current.locals[i])
	}

	for i, transitions := range outgoing {
		for _, t := range transitions {
			label, err := p.lift(part{i, t.Label()})
			if err != nil {
				return err
			}
			if err := p.add(current, label, t.Modality(), map[int]contract.State{i: t.Target()}); err != nil {
				return err
			}
		}
	}

	for i, offers := range outgoing {
		for _, offer := range offers {
			if _, ok := offer.Label().Shape().(contract.OfferShape); !ok {
				continue
			}
			for j, requests := range outgoing {
				if i == j {
					continue
				}
				for _, request := range requests {
					if _, ok := request.Label().Shape().(contract.RequestShape); !ok || request.Label().Name() != offer.Label().Name() {
						continue
					}
					label, err := p.lift(part{i, offer.Label()}, part{j, request.Label()})
					if err != nil {
						// An offer carrying internal moves never forms a match.
						if errors.Is(err, contract.ErrUnclassifiedLabel) {
							continue
						}
						return err
					}
					moved := map[int]contract.State{i: offer.Target(), j: request.Target()}
					if err := p.add(current, label, Match(offer.Modality(), request.Modality()), moved); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Match returns the modality of a match between an offer and a request:
// necessary if either side is, otherwise urgent if either side is,
// otherwise permitted.
func Match(offer, request contract.Modality) contract.Modality {
	switch {
	case offer == contract.Necessary || request == contract.Necessary:
		return contract.Necessary
	case offer == contract.Urgent || request == contract.Urgent:
		return contract.Urgent
	}
	return contract.Permitted
}
