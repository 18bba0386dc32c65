package mpc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/cif3"
	"github.com/stateforward/go-contract/pkg/compose"
	"github.com/stateforward/go-contract/pkg/mpc"
	"github.com/stateforward/go-contract/pkg/requirement"
	"github.com/stateforward/go-contract/pkg/sink"
	"github.com/stateforward/go-contract/pkg/tests"
)

func names(t *testing.T, a *contract.Automaton) []string {
	t.Helper()
	out := []string{}
	for _, transition := range a.Transitions() {
		name, err := cif3.ActionName(transition)
		if err != nil {
			t.Fatalf("ActionName: %v", err)
		}
		out = append(out, name)
	}
	return out
}

func composed(t *testing.T, prune requirement.Requirement) *contract.Automaton {
	t.Helper()
	a, err := compose.Compose(context.Background(), []*contract.Automaton{tests.Client(t), tests.Service(t)}, prune)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	return a
}

var agreed = []string{"Aut.c_quit_tau_1", "Aut.c_query_match_2_1", "Aut.u_result_match_2_1"}

func TestSynthesizeKeepsAgreement(t *testing.T) {
	for name, prune := range map[string]requirement.Requirement{
		"pruned":   requirement.Not(requirement.StrongAgreement),
		"unpruned": nil,
	} {
		t.Run(name, func(t *testing.T) {
			controller, err := mpc.Synthesize(context.Background(), composed(t, prune), requirement.StrongAgreement)
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			if diff := cmp.Diff(agreed, names(t, controller)); diff != "" {
				t.Errorf("controller mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSynthesizeHonoredRequestIntoDeadState(t *testing.T) {
	a := tests.Parse(t, `Rank: 2
Initial state: [a0, b0]
Final states: [[a1][b1]]
Transitions:
!U([a0, b0],[?go, -],[a2, b0])
!U([a0, b0],[?go, !go],[a1, b1])
`)
	controller, err := mpc.Synthesize(context.Background(), a, requirement.StrongAgreement)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if diff := cmp.Diff([]string{"Aut.u_go_match_2_1"}, names(t, controller)); diff != "" {
		t.Errorf("controller mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesizeAvoidsEscapes(t *testing.T) {
	a, err := sink.AddEscapes(context.Background(), composed(t, requirement.Not(requirement.StrongAgreement)), func(state contract.State) bool {
		return state.Role(0).Name == "c1"
	})
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}
	controller, err := mpc.Synthesize(context.Background(), a, requirement.StrongAgreement)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if diff := cmp.Diff([]string{"Aut.c_quit_tau_1"}, names(t, controller)); diff != "" {
		t.Errorf("controller mismatch (-want +got):\n%s", diff)
	}
	if controller.Contains(sink.State(2)) {
		t.Error("Expected the sink to be unreachable")
	}
}

func TestSynthesizeEmpty(t *testing.T) {
	controller, err := mpc.Synthesize(context.Background(), tests.Dealer(t), requirement.StrongAgreement)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if controller.Len() != 0 || len(controller.States()) != 0 {
		t.Errorf("Expected an empty controller, got %v", controller.Transitions())
	}
}

func TestSynthesizeErrors(t *testing.T) {
	if _, err := mpc.Synthesize(context.Background(), tests.Ask(t), requirement.StrongAgreement); !errors.Is(err, mpc.ErrLazyTransition) {
		t.Errorf("Expected ErrLazyTransition, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mpc.Synthesize(ctx, tests.Service(t), requirement.StrongAgreement); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
