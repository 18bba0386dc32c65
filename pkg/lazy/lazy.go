// Package lazy unfolds lazy transitions of principal automata into an
// urgent internal step followed by a permitted request, so that
// composition and synthesis only ever see two classes of modality.
package lazy

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stateforward/go-contract"
)

// ErrNotRequest is returned for a lazy transition whose label is not a
// request. Only uncontrollable requests may be delayed.
var ErrNotRequest = errors.New("lazy transition is not a request")

// Encode returns a new automaton in which every lazy transition
// (S, L, T) is replaced by (S, tau, I) urgent and (I, L, T) permitted,
// where I is S with the requester's role state swapped for a fresh one.
// Other transitions and all states of a are kept as they are, so the
// result also holds states of a that no transition touches; its state set
// is not derived from its transitions alone.
func Encode(a *contract.Automaton) (*contract.Automaton, error) {
	transitions := make([]contract.Transition, 0, a.Len())
	for _, t := range a.Transitions() {
		switch t.Modality() {
		case contract.Permitted, contract.Necessary, contract.Urgent:
			transitions = append(transitions, t)
		case contract.Lazy:
			split, err := unfold(t)
			if err != nil {
				return nil, err
			}
			transitions = append(transitions, split...)
		default:
			return nil, fmt.Errorf("%w: %s", contract.ErrInvalidModality, t)
		}
	}
	return contract.New(transitions, a.States()...)
}

func unfold(t contract.Transition) ([]contract.Transition, error) {
	request, ok := t.Label().Shape().(contract.RequestShape)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRequest, t)
	}
	requester := request.Requester
	name := t.Label().Name()

	label, err := contract.NewLabelBuilder(t.Label().Rank()).
		Set(requester, contract.Tau(name)).
		Build()
	if err != nil {
		return nil, err
	}

	roles := t.Source().Roles()
	roles[requester] = contract.RoleState{
		Name: t.Source().Role(requester).Name + "_" + name + "_" + t.Target().Role(requester).Name,
	}
	intermediate := contract.NewState(roles...)

	urgent, err := contract.NewTransition(t.Source(), label, intermediate, contract.Urgent)
	if err != nil {
		return nil, err
	}
	permitted, err := contract.NewTransition(intermediate, t.Label(), t.Target(), contract.Permitted)
	if err != nil {
		return nil, err
	}
	return []contract.Transition{urgent, permitted}, nil
}

// EncodePrincipals encodes each principal independently and concurrently.
// The result is in input order; the first failure cancels the rest.
func EncodePrincipals(ctx context.Context, principals []*contract.Automaton) ([]*contract.Automaton, error) {
	encoded := make([]*contract.Automaton, len(principals))
	g, ctx := errgroup.WithContext(ctx)
	for i, principal := range principals {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := Encode(principal)
			if err != nil {
				return fmt.Errorf("principal %d: %w", i+1, err)
			}
			encoded[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return encoded, nil
}
