// Package cif3 renders contract automata as CIF3 plant specifications for
// supervisory controller synthesis.
package cif3

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/set"
)

// Extension is the file extension of CIF3 specifications.
const Extension = ".cif"

// ErrLazyTransition is returned when asked to render a lazy transition.
// Lazy transitions must be encoded before composition.
var ErrLazyTransition = errors.New("lazy transition in automaton")

// UrgentPolicy decides how urgent transitions appear in the plant.
type UrgentPolicy int

const (
	// UrgentControllable names urgent events like permitted ones and
	// declares them controllable.
	UrgentControllable UrgentPolicy = iota
	// UrgentSuppressed leaves urgent edges out of the plant.
	UrgentSuppressed
	// UrgentUndeclared emits urgent edges without declaring their events,
	// which CIF3 tools reject. Kept to reproduce older output.
	UrgentUndeclared
)

var urgentPolicies = map[string]UrgentPolicy{
	"controllable": UrgentControllable,
	"suppressed":   UrgentSuppressed,
	"undeclared":   UrgentUndeclared,
}

func ParseUrgentPolicy(s string) (UrgentPolicy, error) {
	if s == "" {
		return UrgentControllable, nil
	}
	policy, ok := urgentPolicies[s]
	if !ok {
		return 0, fmt.Errorf("unknown urgent policy %q", s)
	}
	return policy, nil
}

func (policy UrgentPolicy) String() string {
	for name, p := range urgentPolicies {
		if p == policy {
			return name
		}
	}
	return "UrgentPolicy(" + strconv.Itoa(int(policy)) + ")"
}

type options struct {
	urgent UrgentPolicy
	group  string
	plant  string
}

type Option func(*options)

func WithUrgentPolicy(policy UrgentPolicy) Option {
	return func(o *options) { o.urgent = policy }
}

// WithGroup sets the group that declares the events, "Aut" by default.
func WithGroup(name string) Option {
	return func(o *options) { o.group = name }
}

// WithPlant sets the plant automaton name, "statespace" by default.
func WithPlant(name string) Option {
	return func(o *options) { o.plant = name }
}

func apply(maybeOptions []Option) options {
	o := options{urgent: UrgentControllable, group: "Aut", plant: "statespace"}
	for _, option := range maybeOptions {
		option(&o)
	}
	return o
}

type declaration int

const (
	controllable declaration = iota
	uncontrollable
	undeclared
	suppressed
)

// ActionName returns the qualified CIF3 event name of a transition, for
// example "Aut.c_card_match_1_2". Role numbers are 1-based.
func ActionName(transition contract.Transition, maybeOptions ...Option) (string, error) {
	o := apply(maybeOptions)
	name, _, err := o.event(transition)
	return name, err
}

func (o *options) event(transition contract.Transition) (string, declaration, error) {
	prefix, kind := "c_", controllable
	switch transition.Modality() {
	case contract.Permitted:
	case contract.Necessary:
		prefix, kind = "u_", uncontrollable
	case contract.Urgent:
		switch o.urgent {
		case UrgentSuppressed:
			kind = suppressed
		case UrgentUndeclared:
			kind = undeclared
		}
	case contract.Lazy:
		return "", 0, fmt.Errorf("%w: %s", ErrLazyTransition, transition)
	default:
		return "", 0, fmt.Errorf("%w: %s", contract.ErrInvalidModality, transition)
	}

	label := transition.Label()
	var suffix string
	switch shape := label.Shape().(type) {
	case contract.MatchShape:
		suffix = fmt.Sprintf("_match_%d_%d", shape.Offerer+1, shape.Requester+1)
	case contract.RequestShape:
		suffix = fmt.Sprintf("_req_%d", shape.Requester+1)
	case contract.OfferShape:
		suffix = fmt.Sprintf("_off_%d", shape.Offerer+1)
	case contract.TauShape:
		suffix = fmt.Sprintf("_tau_%d", shape.Mover+1)
	default:
		return "", 0, fmt.Errorf("%w: %s", contract.ErrUnclassifiedLabel, label)
	}
	return o.group + "." + prefix + label.Name() + suffix, kind, nil
}

var annotationEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Generate writes the plant specification of automaton to writer. Output
// depends only on the automaton and its state and transition order.
func Generate(writer io.Writer, automaton *contract.Automaton, maybeOptions ...Option) error {
	o := apply(maybeOptions)
	states := automaton.States()

	locations := make(map[string]string, len(states))
	for i, state := range states {
		locations[state.Key()] = "loc" + strconv.Itoa(i+1)
	}

	controllables, uncontrollables := set.Strings(), set.Strings()
	edges := map[string][]string{}
	for _, transition := range automaton.Transitions() {
		name, kind, err := o.event(transition)
		if err != nil {
			return err
		}
		switch kind {
		case controllable:
			controllables.Add(name)
		case uncontrollable:
			uncontrollables.Add(name)
		case suppressed:
			continue
		}
		source := transition.Source().Key()
		edges[source] = append(edges[source], fmt.Sprintf("    edge %s goto %s;\n", name, locations[transition.Target().Key()]))
	}

	var builder strings.Builder
	qualifier := o.group + "."
	fmt.Fprintf(&builder, "group %s:\n", o.group)
	for name := range controllables.Items() {
		fmt.Fprintf(&builder, "  controllable %s;\n", strings.TrimPrefix(name, qualifier))
	}
	for name := range uncontrollables.Items() {
		fmt.Fprintf(&builder, "  uncontrollable %s;\n", strings.TrimPrefix(name, qualifier))
	}
	builder.WriteString("end\n")

	fmt.Fprintf(&builder, "plant automaton %s:\n", o.plant)
	alphabet := append(controllables.Slice(), uncontrollables.Slice()...)
	if len(alphabet) == 0 {
		builder.WriteString("  alphabet;\n")
	} else {
		fmt.Fprintf(&builder, "  alphabet %s;\n", strings.Join(alphabet, ", "))
	}
	for _, state := range states {
		location := locations[state.Key()]
		outgoing := edges[state.Key()]
		fmt.Fprintf(&builder, "  @state(%s: \"%s\")\n", o.group, annotationEscaper.Replace(strings.Join(state.Names(), ",")))
		if !state.Initial() && !state.Final() && len(outgoing) == 0 {
			fmt.Fprintf(&builder, "  location %s;\n", location)
			continue
		}
		fmt.Fprintf(&builder, "  location %s:\n", location)
		if state.Initial() {
			builder.WriteString("    initial;\n")
		}
		if state.Final() {
			builder.WriteString("    marked;\n")
		}
		for _, edge := range outgoing {
			builder.WriteString(edge)
		}
	}
	builder.WriteString("end\n")

	_, err := io.WriteString(writer, builder.String())
	return err
}

// Render returns the plant specification of automaton as a string.
func Render(automaton *contract.Automaton, maybeOptions ...Option) (string, error) {
	var builder strings.Builder
	if err := Generate(&builder, automaton, maybeOptions...); err != nil {
		return "", err
	}
	return builder.String(), nil
}
