package contract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stateforward/go-contract/kinds"
)

/******* Action *******/

// Action is what a single role does in a label.
type Action struct {
	kind uint64
	name string
}

func Idle() Action {
	return Action{kind: kinds.Idle}
}

func Tau(name string) Action {
	return Action{kind: kinds.Tau, name: name}
}

func Offer(name string) Action {
	return Action{kind: kinds.Offer, name: name}
}

func Request(name string) Action {
	return Action{kind: kinds.Request, name: name}
}

func (action Action) Kind() uint64 {
	return action.kind
}

func (action Action) Name() string {
	return action.name
}

// IsMove reports whether the action is an offer, a request or a tau.
func (action Action) IsMove() bool {
	return kinds.IsKind(action.kind, kinds.Move)
}

// String renders the action with its marker: "-" for idle, "~" tau,
// "!" offer and "?" request.
func (action Action) String() string {
	switch action.kind {
	case kinds.Idle:
		return "-"
	case kinds.Tau:
		return "~" + action.name
	case kinds.Offer:
		return "!" + action.name
	case kinds.Request:
		return "?" + action.name
	}
	return "<invalid>"
}

/******* Shape *******/

// Shape is the classification of a label together with the roles it
// involves. Role indexes are 0-based.
type Shape interface {
	Kind() uint64
	shape()
}

type OfferShape struct{ Offerer int }

type RequestShape struct{ Requester int }

type MatchShape struct{ Offerer, Requester int }

type TauShape struct{ Mover int }

func (OfferShape) Kind() uint64   { return kinds.OfferLabel }
func (RequestShape) Kind() uint64 { return kinds.RequestLabel }
func (MatchShape) Kind() uint64   { return kinds.MatchLabel }
func (TauShape) Kind() uint64     { return kinds.TauLabel }

func (OfferShape) shape()   {}
func (RequestShape) shape() {}
func (MatchShape) shape()   {}
func (TauShape) shape()     {}

/******* Label *******/

// Label is an immutable tuple of per-role actions with exactly one shape.
// The zero Label has no shape and is rejected wherever a label is used.
type Label struct {
	actions []Action
	shape   Shape
}

// LabelBuilder is the mutable phase of a label. Build freezes a copy, so
// further changes to the builder never leak into built labels.
type LabelBuilder struct {
	actions []Action
}

// NewLabelBuilder starts a label of the given rank with every role idle.
func NewLabelBuilder(rank int) *LabelBuilder {
	actions := make([]Action, rank)
	for i := range actions {
		actions[i] = Idle()
	}
	return &LabelBuilder{actions: actions}
}

func (builder *LabelBuilder) Set(role int, action Action) *LabelBuilder {
	builder.actions[role] = action
	return builder
}

func (builder *LabelBuilder) Build() (Label, error) {
	return NewLabel(builder.actions...)
}

func NewLabel(actions ...Action) (Label, error) {
	label := Label{actions: append([]Action(nil), actions...)}
	shape, err := classify(label.actions)
	if err != nil {
		return Label{}, fmt.Errorf("%w: %s", err, label)
	}
	label.shape = shape
	return label, nil
}

func MustLabel(actions ...Action) Label {
	label, err := NewLabel(actions...)
	if err != nil {
		panic(err)
	}
	return label
}

func classify(actions []Action) (Shape, error) {
	offerer, requester, mover := -1, -1, -1
	offers, requests, taus := 0, 0, 0
	for i, action := range actions {
		switch action.kind {
		case kinds.Idle:
		case kinds.Offer:
			offers++
			offerer = i
		case kinds.Request:
			requests++
			requester = i
		case kinds.Tau:
			taus++
			mover = i
		default:
			return nil, fmt.Errorf("%w: role %d has no action", ErrUnclassifiedLabel, i)
		}
	}
	switch {
	case offers == 1 && requests == 1 && taus == 0:
		if actions[offerer].name != actions[requester].name {
			return nil, fmt.Errorf("%w: match of %q with %q", ErrUnclassifiedLabel, actions[offerer].name, actions[requester].name)
		}
		return MatchShape{Offerer: offerer, Requester: requester}, nil
	case offers == 1 && requests == 0:
		return OfferShape{Offerer: offerer}, nil
	case requests == 1 && offers == 0 && taus == 0:
		return RequestShape{Requester: requester}, nil
	case taus == 1 && offers == 0 && requests == 0:
		return TauShape{Mover: mover}, nil
	}
	return nil, ErrUnclassifiedLabel
}

func (label Label) Rank() int {
	return len(label.actions)
}

func (label Label) Action(role int) Action {
	return label.actions[role]
}

func (label Label) Actions() []Action {
	return append([]Action(nil), label.actions...)
}

// Shape returns nil only for the zero Label.
func (label Label) Shape() Shape {
	return label.shape
}

func (label Label) Kind() uint64 {
	if label.shape == nil {
		return kinds.Null
	}
	return label.shape.Kind()
}

// Name is the name of the action the label is about: the offered action
// for offers and matches, the requested one for requests, the internal
// one for tau labels.
func (label Label) Name() string {
	switch shape := label.shape.(type) {
	case OfferShape:
		return label.actions[shape.Offerer].name
	case RequestShape:
		return label.actions[shape.Requester].name
	case MatchShape:
		return label.actions[shape.Offerer].name
	case TauShape:
		return label.actions[shape.Mover].name
	}
	return ""
}

func (label Label) key() string {
	parts := make([]string, len(label.actions))
	for i, action := range label.actions {
		parts[i] = strconv.FormatUint(action.kind&0xff, 10) + strconv.Quote(action.name)
	}
	return strings.Join(parts, ",")
}

func (label Label) String() string {
	parts := make([]string, len(label.actions))
	for i, action := range label.actions {
		parts[i] = action.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
