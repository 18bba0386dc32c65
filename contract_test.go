package contract_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/kinds"
)

func role(name string, initial, final bool) contract.RoleState {
	return contract.RoleState{Name: name, Initial: initial, Final: final}
}

func TestState(t *testing.T) {
	t.Run("InitialAndFinalRequireAllRoles", func(t *testing.T) {
		s := contract.NewState(role("q0", true, false), role("p0", true, true))
		if !s.Initial() {
			t.Error("Expected state to be initial")
		}
		if s.Final() {
			t.Error("Expected state to not be final")
		}
		if s.Rank() != 2 {
			t.Errorf("Expected rank 2, got %d", s.Rank())
		}
	})

	t.Run("ValueIdentity", func(t *testing.T) {
		a := contract.NewState(role("q0", true, false))
		b := contract.NewState(role("q0", true, false))
		c := contract.NewState(role("q0", false, false))
		if !a.Equal(b) {
			t.Error("Expected equal role states to give equal states")
		}
		if a.Equal(c) {
			t.Error("Expected flags to take part in identity")
		}
	})

	t.Run("RolesAreCopied", func(t *testing.T) {
		roles := []contract.RoleState{role("q0", false, false)}
		s := contract.NewState(roles...)
		roles[0].Name = "changed"
		s.Roles()[0].Name = "changed"
		if s.Role(0).Name != "q0" {
			t.Errorf("Expected state to be immutable, got %q", s.Role(0).Name)
		}
	})

	t.Run("Names", func(t *testing.T) {
		s := contract.NewState(role("a", false, false), role("b", false, false))
		if !slices.Equal(s.Names(), []string{"a", "b"}) || s.String() != "[a, b]" {
			t.Errorf("unexpected names %v / %s", s.Names(), s)
		}
	})
}

func TestLabelShapes(t *testing.T) {
	tests := []struct {
		name    string
		actions []contract.Action
		want    contract.Shape
	}{
		{"offer", []contract.Action{contract.Offer("a"), contract.Idle()}, contract.OfferShape{Offerer: 0}},
		{"request", []contract.Action{contract.Idle(), contract.Request("a")}, contract.RequestShape{Requester: 1}},
		{"match", []contract.Action{contract.Request("a"), contract.Idle(), contract.Offer("a")}, contract.MatchShape{Offerer: 2, Requester: 0}},
		{"tau", []contract.Action{contract.Idle(), contract.Tau("a")}, contract.TauShape{Mover: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, err := contract.NewLabel(tt.actions...)
			if err != nil {
				t.Fatalf("NewLabel: %v", err)
			}
			if label.Shape() != tt.want {
				t.Errorf("Expected shape %#v, got %#v", tt.want, label.Shape())
			}
			if label.Name() != "a" {
				t.Errorf("Expected name a, got %q", label.Name())
			}
			if !kinds.IsKind(label.Kind(), kinds.Label) {
				t.Errorf("Expected a label kind, got %d", label.Kind())
			}
		})
	}
}

func TestLabelRejectsUnclassified(t *testing.T) {
	tests := map[string][]contract.Action{
		"all idle":        {contract.Idle(), contract.Idle()},
		"two offers":      {contract.Offer("a"), contract.Offer("a")},
		"two requests":    {contract.Request("a"), contract.Request("a")},
		"two taus":        {contract.Tau("a"), contract.Tau("b")},
		"request and tau": {contract.Request("a"), contract.Tau("b")},
		"mismatched":      {contract.Offer("a"), contract.Request("b")},
		"zero action":     {{}, contract.Offer("a")},
		"empty":           {},
	}
	for name, actions := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := contract.NewLabel(actions...); !errors.Is(err, contract.ErrUnclassifiedLabel) {
				t.Errorf("Expected ErrUnclassifiedLabel, got %v", err)
			}
		})
	}
}

func TestLabelBuilderFreezes(t *testing.T) {
	builder := contract.NewLabelBuilder(2).Set(1, contract.Tau("ask"))
	label, err := builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	builder.Set(0, contract.Offer("other"))
	if label.Action(0).Kind() != kinds.Idle {
		t.Error("Expected built label to be unaffected by later builder changes")
	}
	if label.String() != "[-, ~ask]" {
		t.Errorf("unexpected label %s", label)
	}
}

func TestTransition(t *testing.T) {
	s := contract.NewState(role("q0", true, false))
	two := contract.NewState(role("q0", true, false), role("p0", true, false))
	offer := contract.MustLabel(contract.Offer("a"))

	if _, err := contract.NewTransition(s, offer, two, contract.Permitted); !errors.Is(err, contract.ErrRankMismatch) {
		t.Errorf("Expected ErrRankMismatch, got %v", err)
	}
	if _, err := contract.NewTransition(s, offer, s, contract.Modality(0)); !errors.Is(err, contract.ErrInvalidModality) {
		t.Errorf("Expected ErrInvalidModality, got %v", err)
	}
	if _, err := contract.NewTransition(s, contract.Label{}, s, contract.Permitted); !errors.Is(err, contract.ErrUnclassifiedLabel) {
		t.Errorf("Expected ErrUnclassifiedLabel, got %v", err)
	}
	a := contract.MustTransition(s, offer, s, contract.Permitted)
	b := contract.MustTransition(s, offer, s, contract.Necessary)
	if a.Key() == b.Key() {
		t.Error("Expected modality to take part in transition identity")
	}
}

func TestModality(t *testing.T) {
	for _, m := range []contract.Modality{contract.Permitted, contract.Necessary, contract.Urgent, contract.Lazy} {
		if !m.Valid() {
			t.Errorf("Expected %s to be valid", m)
		}
	}
	if contract.Modality(9).Valid() {
		t.Error("Expected unknown modality to be invalid")
	}
	if contract.Urgent.String() != "urgent" {
		t.Errorf("unexpected string %q", contract.Urgent.String())
	}
}

func TestAutomaton(t *testing.T) {
	q0 := contract.NewState(role("q0", true, false))
	q1 := contract.NewState(role("q1", false, true))
	q2 := contract.NewState(role("q2", false, false))
	ask := contract.MustTransition(q0, contract.MustLabel(contract.Request("ask")), q1, contract.Lazy)
	back := contract.MustTransition(q1, contract.MustLabel(contract.Offer("ok")), q0, contract.Permitted)

	t.Run("OrderAndDeduplication", func(t *testing.T) {
		a := contract.MustNew([]contract.Transition{ask, back, ask}, q2)
		states := a.States()
		if len(states) != 3 || !states[0].Equal(q2) || !states[1].Equal(q0) || !states[2].Equal(q1) {
			t.Errorf("unexpected state order %v", states)
		}
		if a.Len() != 2 {
			t.Errorf("Expected 2 transitions, got %d", a.Len())
		}
		if a.Rank() != 1 {
			t.Errorf("Expected rank 1, got %d", a.Rank())
		}
	})

	t.Run("Queries", func(t *testing.T) {
		a := contract.MustNew([]contract.Transition{ask, back})
		initial, ok := a.Initial()
		if !ok || !initial.Equal(q0) {
			t.Errorf("Expected initial q0, got %v (%v)", initial, ok)
		}
		if out := a.Outgoing(q1); len(out) != 1 || out[0].Key() != back.Key() {
			t.Errorf("unexpected outgoing %v", out)
		}
		if !a.HasLazy() {
			t.Error("Expected lazy transition to be detected")
		}
		if a.Contains(q2) {
			t.Error("Expected q2 to be absent")
		}
	})

	t.Run("RankMismatch", func(t *testing.T) {
		two := contract.NewState(role("a", false, false), role("b", false, false))
		if _, err := contract.New([]contract.Transition{ask}, two); !errors.Is(err, contract.ErrRankMismatch) {
			t.Errorf("Expected ErrRankMismatch, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		a := contract.MustNew(nil)
		if a.Rank() != 0 || a.Len() != 0 || len(a.States()) != 0 {
			t.Error("Expected empty automaton")
		}
		if _, ok := a.Initial(); ok {
			t.Error("Expected no initial state")
		}
	})
}

func TestActionIsMove(t *testing.T) {
	for _, action := range []contract.Action{contract.Tau("a"), contract.Offer("a"), contract.Request("a")} {
		if !action.IsMove() {
			t.Errorf("Expected %s to be a move", action)
		}
	}
	if contract.Idle().IsMove() || (contract.Action{}).IsMove() {
		t.Error("Expected idle and zero actions not to be moves")
	}
}

func TestModalityControllable(t *testing.T) {
	want := map[contract.Modality]bool{
		contract.Permitted: true,
		contract.Necessary: false,
		contract.Urgent:    true,
		contract.Lazy:      false,
	}
	for modality, controllable := range want {
		if modality.Controllable() != controllable {
			t.Errorf("%s: expected controllable %v", modality, controllable)
		}
	}
}
