// Package contract models contract automata: principals whose moves are
// offers, requests and internal steps, composed into automata whose states
// are tuples of per-role states and whose transitions carry a modality.
package contract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrRankMismatch      = errors.New("rank mismatch")
	ErrInvalidModality   = errors.New("invalid modality")
	ErrUnclassifiedLabel = errors.New("label is not an offer, request, match or tau")
)

/******* Role state *******/

// RoleState is the state of a single principal. Two role states are the
// same role state iff all fields are equal.
type RoleState struct {
	Name    string
	Initial bool
	Final   bool
}

func (role RoleState) key() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(role.Name))
	if role.Initial {
		b.WriteByte('i')
	}
	if role.Final {
		b.WriteByte('f')
	}
	return b.String()
}

/******* State *******/

// State is a fixed tuple of role states, one per role. It is initial
// (final) iff every role state is initial (final).
type State struct {
	roles   []RoleState
	initial bool
	final   bool
	key     string
}

func NewState(roles ...RoleState) State {
	state := State{
		roles:   append([]RoleState(nil), roles...),
		initial: len(roles) > 0,
		final:   len(roles) > 0,
	}
	keys := make([]string, len(roles))
	for i, role := range roles {
		state.initial = state.initial && role.Initial
		state.final = state.final && role.Final
		keys[i] = role.key()
	}
	state.key = strings.Join(keys, ",")
	return state
}

func (state State) Rank() int {
	return len(state.roles)
}

func (state State) Role(i int) RoleState {
	return state.roles[i]
}

func (state State) Roles() []RoleState {
	return append([]RoleState(nil), state.roles...)
}

func (state State) Initial() bool {
	return state.initial
}

func (state State) Final() bool {
	return state.final
}

// Key is the canonical identity of the state: equal keys, equal states.
func (state State) Key() string {
	return state.key
}

func (state State) Equal(other State) bool {
	return state.key == other.key
}

// Names returns the per-role state names.
func (state State) Names() []string {
	names := make([]string, len(state.roles))
	for i, role := range state.roles {
		names[i] = role.Name
	}
	return names
}

func (state State) String() string {
	return "[" + strings.Join(state.Names(), ", ") + "]"
}

/******* Modality *******/

type Modality uint8

const (
	// Permitted transitions are controllable and optional.
	Permitted Modality = iota + 1
	// Necessary transitions are uncontrollable and mandatory.
	Necessary
	// Urgent transitions are introduced by lazy encoding and must fire as
	// soon as they are enabled.
	Urgent
	// Lazy transitions are uncontrollable but may be delayed. They are only
	// valid on principals that have not been encoded yet.
	Lazy
)

func (modality Modality) Valid() bool {
	switch modality {
	case Permitted, Necessary, Urgent, Lazy:
		return true
	}
	return false
}

// Controllable reports whether a controller may disable transitions of
// this modality.
func (modality Modality) Controllable() bool {
	return modality == Permitted || modality == Urgent
}

func (modality Modality) String() string {
	switch modality {
	case Permitted:
		return "permitted"
	case Necessary:
		return "necessary"
	case Urgent:
		return "urgent"
	case Lazy:
		return "lazy"
	}
	return "Modality(" + strconv.Itoa(int(modality)) + ")"
}

/******* Transition *******/

type Transition struct {
	source   State
	label    Label
	target   State
	modality Modality
	key      string
}

func NewTransition(source State, label Label, target State, modality Modality) (Transition, error) {
	if !modality.Valid() {
		return Transition{}, fmt.Errorf("%w: %d", ErrInvalidModality, modality)
	}
	if label.shape == nil {
		return Transition{}, ErrUnclassifiedLabel
	}
	if source.Rank() != label.Rank() || target.Rank() != label.Rank() {
		return Transition{}, fmt.Errorf("%w: source %d, label %d, target %d", ErrRankMismatch, source.Rank(), label.Rank(), target.Rank())
	}
	return Transition{
		source:   source,
		label:    label,
		target:   target,
		modality: modality,
		key:      source.key + "|" + label.key() + "|" + target.key + "|" + strconv.Itoa(int(modality)),
	}, nil
}

func MustTransition(source State, label Label, target State, modality Modality) Transition {
	transition, err := NewTransition(source, label, target, modality)
	if err != nil {
		panic(err)
	}
	return transition
}

func (transition Transition) Source() State {
	return transition.source
}

func (transition Transition) Label() Label {
	return transition.label
}

func (transition Transition) Target() State {
	return transition.target
}

func (transition Transition) Modality() Modality {
	return transition.modality
}

func (transition Transition) Key() string {
	return transition.key
}

func (transition Transition) String() string {
	return fmt.Sprintf("(%s,%s,%s) %s", transition.source, transition.label, transition.target, transition.modality)
}
