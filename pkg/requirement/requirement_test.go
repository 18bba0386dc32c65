package requirement_test

import (
	"testing"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/requirement"
)

func TestRequirements(t *testing.T) {
	cases := []struct {
		label  contract.Label
		strong bool
		weak   bool
	}{
		{contract.MustLabel(contract.Offer("a"), contract.Request("a")), true, true},
		{contract.MustLabel(contract.Idle(), contract.Tau("a")), true, true},
		{contract.MustLabel(contract.Offer("a"), contract.Idle()), false, true},
		{contract.MustLabel(contract.Idle(), contract.Request("a")), false, false},
		{contract.Label{}, false, false},
	}
	for _, tt := range cases {
		t.Run(tt.label.String(), func(t *testing.T) {
			if got := requirement.StrongAgreement(tt.label); got != tt.strong {
				t.Errorf("StrongAgreement: expected %v, got %v", tt.strong, got)
			}
			if got := requirement.Agreement(tt.label); got != tt.weak {
				t.Errorf("Agreement: expected %v, got %v", tt.weak, got)
			}
			if got := requirement.Not(requirement.StrongAgreement)(tt.label); got == tt.strong {
				t.Errorf("Not: expected %v, got %v", !tt.strong, got)
			}
		})
	}
}

func TestParse(t *testing.T) {
	offer := contract.MustLabel(contract.Offer("a"), contract.Idle())
	strong, err := requirement.Parse(requirement.Strong)
	if err != nil || strong(offer) {
		t.Errorf("Expected strong agreement to reject an offer, err %v", err)
	}
	weak, err := requirement.Parse(requirement.Weak)
	if err != nil || !weak(offer) {
		t.Errorf("Expected weak agreement to accept an offer, err %v", err)
	}
	if _, err := requirement.Parse("loose"); err == nil {
		t.Error("Expected an error for an unknown requirement")
	}
}
