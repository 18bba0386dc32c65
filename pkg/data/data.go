// Package data reads and writes automata in the native text interchange
// format:
//
//	Rank: 2
//	Initial state: [q0, p0]
//	Final states: [[q1][p1]]
//	Transitions:
//	([q0, p0],[!a, ?a],[q1, p1])
//	!U([q0, p0],[?b, -],[q1, p0])
//
// A transition without prefix is permitted; "!U" marks necessary, "!L"
// lazy and "!E" urgent transitions. Actions are written "-" (idle),
// "!name" (offer), "?name" (request) or "~name" (tau).
package data

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/set"
)

// Extension is the file extension of the native format.
const Extension = ".data"

var (
	ErrSyntax       = errors.New("syntax error")
	ErrUnencodable  = errors.New("automaton cannot be encoded")
	bracketed       = regexp.MustCompile(`\[([^\[\]]*)\]`)
	modalityPrefix  = map[string]contract.Modality{"": contract.Permitted, "!U": contract.Necessary, "!L": contract.Lazy, "!E": contract.Urgent}
	reservedInNames = "[],"
)

type header struct {
	rank     int
	initial  []string
	finals   []set.Set[string]
	sections int
}

// Decode parses an automaton from r.
func Decode(r io.Reader) (*contract.Automaton, error) {
	scanner := bufio.NewScanner(r)
	h := header{rank: -1}
	var transitions []contract.Transition
	inTransitions := false
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var err error
		switch {
		case strings.HasPrefix(line, "Rank:"):
			if h.rank, err = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Rank:"))); err != nil {
				err = fmt.Errorf("%w: %w", ErrSyntax, err)
			}
		case strings.HasPrefix(line, "Initial state:"):
			h.initial, err = names(strings.TrimPrefix(line, "Initial state:"))
		case strings.HasPrefix(line, "Final states:"):
			h.finals, err = finals(strings.TrimPrefix(line, "Final states:"))
		case strings.HasPrefix(line, "Transitions:"):
			inTransitions = true
			err = h.validate()
		case inTransitions:
			var t contract.Transition
			t, err = h.transition(line)
			transitions = append(transitions, t)
		default:
			err = fmt.Errorf("%w: unexpected %q", ErrSyntax, line)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !inTransitions {
		if err := h.validate(); err != nil {
			return nil, err
		}
	}
	// the initial state is listed first even when it has no transitions
	return contract.New(transitions, h.state(h.initial))
}

func (h *header) validate() error {
	if h.rank <= 0 {
		return fmt.Errorf("%w: missing or invalid rank", ErrSyntax)
	}
	if len(h.initial) != h.rank {
		return fmt.Errorf("%w: initial state has %d roles, rank is %d", ErrSyntax, len(h.initial), h.rank)
	}
	if h.finals == nil {
		h.finals = make([]set.Set[string], h.rank)
	}
	if len(h.finals) != h.rank {
		return fmt.Errorf("%w: final states list %d roles, rank is %d", ErrSyntax, len(h.finals), h.rank)
	}
	return nil
}

func (h *header) state(names []string) contract.State {
	roles := make([]contract.RoleState, len(names))
	for i, name := range names {
		roles[i] = contract.RoleState{
			Name:    name,
			Initial: h.initial[i] == name,
			Final:   h.finals[i].Contains(name),
		}
	}
	return contract.NewState(roles...)
}

func (h *header) transition(line string) (contract.Transition, error) {
	open := strings.IndexByte(line, '(')
	if open < 0 || !strings.HasSuffix(line, ")") {
		return contract.Transition{}, fmt.Errorf("%w: malformed transition %q", ErrSyntax, line)
	}
	modality, ok := modalityPrefix[line[:open]]
	if !ok {
		return contract.Transition{}, fmt.Errorf("%w: unknown modality prefix %q", ErrSyntax, line[:open])
	}
	groups := bracketed.FindAllStringSubmatch(line[open:], -1)
	if len(groups) != 3 {
		return contract.Transition{}, fmt.Errorf("%w: expected source, label and target in %q", ErrSyntax, line)
	}
	source, target := split(groups[0][1]), split(groups[2][1])
	if len(source) != h.rank || len(target) != h.rank {
		return contract.Transition{}, fmt.Errorf("%w: state rank differs from %d in %q", ErrSyntax, h.rank, line)
	}
	actions := make([]contract.Action, 0, h.rank)
	for _, token := range split(groups[1][1]) {
		action, err := parseAction(token)
		if err != nil {
			return contract.Transition{}, err
		}
		actions = append(actions, action)
	}
	label, err := contract.NewLabel(actions...)
	if err != nil {
		return contract.Transition{}, err
	}
	return contract.NewTransition(h.state(source), label, h.state(target), modality)
}

func parseAction(token string) (contract.Action, error) {
	if token == "-" {
		return contract.Idle(), nil
	}
	if len(token) < 2 {
		return contract.Action{}, fmt.Errorf("%w: invalid action %q", ErrSyntax, token)
	}
	switch token[0] {
	case '!':
		return contract.Offer(token[1:]), nil
	case '?':
		return contract.Request(token[1:]), nil
	case '~':
		return contract.Tau(token[1:]), nil
	}
	return contract.Action{}, fmt.Errorf("%w: invalid action %q", ErrSyntax, token)
}

func names(s string) ([]string, error) {
	groups := bracketed.FindAllStringSubmatch(s, -1)
	if len(groups) != 1 {
		return nil, fmt.Errorf("%w: expected one bracketed list in %q", ErrSyntax, s)
	}
	return split(groups[0][1]), nil
}

func finals(s string) ([]set.Set[string], error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w: malformed final states %q", ErrSyntax, s)
	}
	groups := bracketed.FindAllStringSubmatch(s[1:len(s)-1], -1)
	result := make([]set.Set[string], len(groups))
	for i, group := range groups {
		result[i] = set.New(split(group[1])...)
	}
	return result, nil
}

func split(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Encode writes a in the native format.
func Encode(w io.Writer, a *contract.Automaton) error {
	rank := a.Rank()
	if rank == 0 {
		return fmt.Errorf("%w: empty automaton", ErrUnencodable)
	}
	initial := make([]string, rank)
	finals := make([]*set.Ordered[string, string], rank)
	for i := range finals {
		finals[i] = set.Strings()
	}
	for _, state := range a.States() {
		for i, role := range state.Roles() {
			if strings.ContainsAny(role.Name, reservedInNames) || strings.TrimSpace(role.Name) != role.Name || role.Name == "" {
				return fmt.Errorf("%w: state name %q", ErrUnencodable, role.Name)
			}
			if role.Initial && initial[i] == "" {
				initial[i] = role.Name
			}
			if role.Final {
				finals[i].Add(role.Name)
			}
		}
	}
	for i, name := range initial {
		if name == "" {
			return fmt.Errorf("%w: role %d has no initial state", ErrUnencodable, i+1)
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Rank: %d\n", rank)
	fmt.Fprintf(bw, "Initial state: [%s]\n", strings.Join(initial, ", "))
	bw.WriteString("Final states: [")
	for _, f := range finals {
		fmt.Fprintf(bw, "[%s]", strings.Join(f.Slice(), ", "))
	}
	bw.WriteString("]\nTransitions: \n")
	for _, t := range a.Transitions() {
		prefix, err := prefixOf(t.Modality())
		if err != nil {
			return err
		}
		actions := make([]string, 0, rank)
		for _, action := range t.Label().Actions() {
			if action.IsMove() && (action.Name() == "" || strings.ContainsAny(action.Name(), reservedInNames+" ")) {
				return fmt.Errorf("%w: action name %q", ErrUnencodable, action.Name())
			}
			actions = append(actions, action.String())
		}
		fmt.Fprintf(bw, "%s([%s],[%s],[%s])\n", prefix,
			strings.Join(t.Source().Names(), ", "),
			strings.Join(actions, ", "),
			strings.Join(t.Target().Names(), ", "))
	}
	return bw.Flush()
}

func prefixOf(modality contract.Modality) (string, error) {
	switch modality {
	case contract.Permitted:
		return "", nil
	case contract.Necessary:
		return "!U", nil
	case contract.Lazy:
		return "!L", nil
	case contract.Urgent:
		return "!E", nil
	}
	return "", fmt.Errorf("%w: %s", contract.ErrInvalidModality, modality)
}

// Load reads the automaton stored at path.
func Load(path string) (*contract.Automaton, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Save writes a to path atomically.
func Save(a *contract.Automaton, path string) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer pending.Cleanup()
	if err := Encode(pending, a); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
