package sink_test

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/sink"
	"github.com/stateforward/go-contract/pkg/tests"
)

func named(names ...string) func(contract.State) bool {
	return func(state contract.State) bool {
		return strings.Join(state.Names(), ",") == strings.Join(names, ",")
	}
}

func TestAddEscapes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s1, s2 := tests.State("s1"), tests.State("s2")
	a := contract.MustNew([]contract.Transition{
		contract.MustTransition(s1, contract.MustLabel(contract.Offer("go")), s2, contract.Permitted),
		contract.MustTransition(s2, contract.MustLabel(contract.Request("back")), s1, contract.Necessary),
	})
	got, err := sink.AddEscapes(context.Background(), a, named("s1"))
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}

	escapes := tests.Find(got, "s1")
	if len(escapes) != 2 {
		t.Fatalf("Expected s1 to gain one transition, got %v", escapes)
	}
	escape := escapes[1]
	if escape.Modality() != contract.Necessary {
		t.Errorf("Expected necessary escape, got %s", escape.Modality())
	}
	if !escape.Target().Equal(sink.State(1)) {
		t.Errorf("Expected escape into the sink, got %s", escape.Target())
	}
	if escape.Label().Shape() != (contract.OfferShape{Offerer: 0}) || escape.Label().Name() != "sink" {
		t.Errorf("Expected a sink offer, got %s", escape.Label())
	}
	if escape.Target().Initial() || escape.Target().Final() {
		t.Error("Expected the sink to be neither initial nor final")
	}
	for _, transition := range tests.Find(got, "s2") {
		if transition.Target().Equal(sink.State(1)) {
			t.Errorf("Expected no escape from s2, got %s", transition)
		}
	}
	if !got.Contains(sink.State(1)) {
		t.Error("Expected the sink state to be added")
	}
}

func TestAddEscapesLocality(t *testing.T) {
	a := tests.Client(t)
	forbidden := named("c1")
	got, err := sink.AddEscapes(context.Background(), a, forbidden)
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}

	restrict := func(a *contract.Automaton) []string {
		var keys []string
		for _, transition := range a.Transitions() {
			if !forbidden(transition.Source()) {
				keys = append(keys, transition.Key())
			}
		}
		return keys
	}
	if diff := cmp.Diff(restrict(a), restrict(got)); diff != "" {
		t.Errorf("transitions outside forbidden states changed (-want +got):\n%s", diff)
	}
	if got.Len() != a.Len()+1 {
		t.Errorf("Expected exactly one escape, got %d new transitions", got.Len()-a.Len())
	}
}

func TestAddEscapesNothingForbidden(t *testing.T) {
	a := tests.Service(t)
	got, err := sink.AddEscapes(context.Background(), a, func(contract.State) bool { return false })
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}
	if got.Len() != a.Len() || len(got.States()) != len(a.States()) {
		t.Errorf("Expected no change, got %d states and %d transitions", len(got.States()), got.Len())
	}
	if got.Contains(sink.State(1)) {
		t.Error("Expected no sink state without escapes")
	}
}

func TestAddEscapesOptions(t *testing.T) {
	q := tests.State("q0", "p0")
	a := contract.MustNew(nil, q)

	got, err := sink.AddEscapes(context.Background(), a, named("q0", "p0"))
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}
	if label := got.Transitions()[0].Label().String(); label != "[-, !sink]" {
		t.Errorf("Expected the second role to offer by default, got %s", label)
	}

	got, err = sink.AddEscapes(context.Background(), a, named("q0", "p0"), sink.WithName("fail"), sink.WithOfferer(0))
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}
	escape := got.Transitions()[0]
	if escape.Label().String() != "[!fail, -]" {
		t.Errorf("Expected [!fail, -], got %s", escape.Label())
	}
	if diff := cmp.Diff([]string{"fail", "fail"}, escape.Target().Names()); diff != "" {
		t.Errorf("sink names mismatch (-want +got):\n%s", diff)
	}

	if _, err := sink.AddEscapes(context.Background(), a, named("q0", "p0"), sink.WithOfferer(2)); err == nil {
		t.Error("Expected an error for an offerer outside the rank")
	}
}

func TestAddEscapesSkipsSink(t *testing.T) {
	s := tests.State("s")
	a := contract.MustNew(nil, s, sink.State(1))
	got, err := sink.AddEscapes(context.Background(), a, func(contract.State) bool { return true })
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}
	if got.Len() != 1 || len(tests.Find(got, "sink")) != 0 {
		t.Errorf("Expected only s to escape, got %v", got.Transitions())
	}
}

func TestAddEscapesCanceled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sink.AddEscapes(ctx, tests.Client(t), named("c1")); err == nil {
		t.Error("Expected an error for a canceled context")
	}
}

// Two trains share a track with a junction at 4 and a semaphore at 2.
// Role names are "t<position>;..." for the trains and contain Open or
// Close for the semaphore; a train outside the track is named OUT.
const (
	junction  = 4
	semaphore = 2
)

func position(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.Split(name, ";")[0], "t"))
	if err != nil {
		return -1
	}
	return n
}

func railway(state contract.State) bool {
	first, second := state.Role(0).Name, state.Role(1).Name
	x1, x2 := position(first), position(second)
	open := strings.Contains(state.Role(3).Name, "Open")
	closed := strings.Contains(state.Role(3).Name, "Close")
	near := func(x int) bool { return x >= semaphore-1 && x <= semaphore+1 }
	switch {
	case first == second && !strings.Contains(first, "OUT"):
		return true
	case closed && (x1 == semaphore || x2 == semaphore):
		return true
	case x1 == junction && x2 == junction:
		return true
	case open && (x1 == junction || x2 == junction):
		return true
	case open && !near(x1) && !near(x2):
		return true
	}
	return false
}

func TestAddEscapesRailway(t *testing.T) {
	states := []contract.State{
		tests.State("t1;a", "OUT", "j", "Close"),
		tests.State("t3;a", "t3;a", "j", "Close"),
		tests.State("t2;a", "OUT", "j", "Close"),
		tests.State("t4;a", "t4;b", "j", "Close"),
		tests.State("t4;a", "t1;b", "j", "Open"),
		tests.State("t6;a", "OUT", "j", "Open"),
		tests.State("t1;a", "t6;b", "j", "Open"),
	}
	a := contract.MustNew(nil, states...)
	got, err := sink.AddEscapes(context.Background(), a, railway)
	if err != nil {
		t.Fatalf("AddEscapes: %v", err)
	}

	var escaped []int
	for i, state := range states {
		if len(got.Outgoing(state)) == 1 {
			escaped = append(escaped, i)
		}
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, escaped); diff != "" {
		t.Errorf("escaped states mismatch (-want +got):\n%s", diff)
	}
}
