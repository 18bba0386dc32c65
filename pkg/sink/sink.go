// Package sink makes forbidden states visible to synthesis by giving each
// of them a forced escape into a shared absorbing state.
package sink

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stateforward/go-contract"
)

// Predicate reports whether a state is forbidden. It must be pure: it is
// called concurrently and in no particular order.
type Predicate func(contract.State) bool

type options struct {
	name       string
	offerer    int
	hasOfferer bool
}

type Option func(*options)

// WithName names the sink role states and the escape action, "sink" by
// default.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithOfferer sets the role that offers the escape action. By default the
// second role offers it, or the only one in an automaton of rank 1.
func WithOfferer(role int) Option {
	return func(o *options) {
		o.offerer = role
		o.hasOfferer = true
	}
}

// State returns the sink state of the given rank.
func State(rank int, maybeOptions ...Option) contract.State {
	o := apply(maybeOptions)
	return o.state(rank)
}

func apply(maybeOptions []Option) options {
	o := options{name: "sink"}
	for _, option := range maybeOptions {
		option(&o)
	}
	return o
}

func (o *options) state(rank int) contract.State {
	roles := make([]contract.RoleState, rank)
	for i := range roles {
		roles[i] = contract.RoleState{Name: o.name}
	}
	return contract.NewState(roles...)
}

// AddEscapes returns a copy of a where every state satisfying forbidden
// has one necessary transition into the sink. The escapes follow the
// original transitions in state order. When no state is forbidden the
// result has the same states and transitions as a.
func AddEscapes(ctx context.Context, a *contract.Automaton, forbidden Predicate, maybeOptions ...Option) (*contract.Automaton, error) {
	o := apply(maybeOptions)
	states := a.States()
	sink := o.state(a.Rank())

	violating := make([]bool, len(states))
	g, ctx := errgroup.WithContext(ctx)
	for i, state := range states {
		if state.Equal(sink) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			violating[i] = forbidden(state)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	transitions := a.Transitions()
	var escape contract.Label
	for i, state := range states {
		if !violating[i] {
			continue
		}
		if escape.Shape() == nil {
			label, err := o.label(a.Rank())
			if err != nil {
				return nil, err
			}
			escape = label
		}
		transition, err := contract.NewTransition(state, escape, sink, contract.Necessary)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, transition)
	}
	return contract.New(transitions, states...)
}

func (o *options) label(rank int) (contract.Label, error) {
	offerer := o.offerer
	if !o.hasOfferer {
		offerer = min(1, rank-1)
	}
	if offerer < 0 || offerer >= rank {
		return contract.Label{}, fmt.Errorf("sink offerer %d out of range for rank %d", offerer, rank)
	}
	return contract.NewLabelBuilder(rank).Set(offerer, contract.Offer(o.name)).Build()
}
