package decision

import (
	"testing"

	"github.com/mbd888/shieldnet/internal/contract"
)

func TestFraudScore(t *testing.T) {
	tests := []struct {
		name    string
		reasons []string
		want    float64
	}{
		{"no reasons", nil, 0},
		{"single high", []string{ReasonSuspiciousWalletChange}, 0.9},
		{"single low", []string{ReasonSuspiciousTiming}, 0.3},
		{"unknown code uses default", []string{"SOMETHING_NEW"}, 0.5},
		{"two reasons boost", []string{ReasonSuspiciousWalletChange, ReasonNoPOMatch}, 0.99},
		{"boost takes max weight", []string{ReasonUnusualAmount, ReasonAccountMismatch}, 0.88},
		{"capped at one", []string{ReasonSuspiciousWalletChange, ReasonTemplateKnownFraud, ReasonAccountMismatch}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FraudScore(tt.reasons); got != tt.want {
				t.Errorf("FraudScore(%v) = %v, want %v", tt.reasons, got, tt.want)
			}
		})
	}
}

func TestFraudScore_Deterministic(t *testing.T) {
	reasons := []string{ReasonDuplicateInvoice, ReasonHoursExceedLogs}
	first := FraudScore(reasons)
	for i := 0; i < 10; i++ {
		if got := FraudScore(reasons); got != first {
			t.Fatalf("FraudScore not deterministic: %v then %v", first, got)
		}
	}
}

func amt(f float64) *float64 { return &f }

func TestBestPolicy(t *testing.T) {
	wide := contract.Policy{PolicyID: "wide", MaxAmount: amt(50000), Active: true}
	narrow := contract.Policy{PolicyID: "narrow", MaxAmount: amt(1000), Active: true}
	inactive := contract.Policy{PolicyID: "inactive", MaxAmount: amt(500), Active: false}
	floor := contract.Policy{PolicyID: "floor", MinAmount: amt(10000), Active: true}

	policies := []contract.Policy{wide, narrow, inactive, floor}

	// Narrowest covering range wins
	if got := bestPolicy(policies, 800); got == nil || got.PolicyID != "narrow" {
		t.Errorf("bestPolicy(800) = %v, want narrow", got)
	}

	// Out of narrow's range
	if got := bestPolicy(policies, 5000); got == nil || got.PolicyID != "wide" {
		t.Errorf("bestPolicy(5000) = %v, want wide", got)
	}

	// minAmount respected
	if got := bestPolicy(policies, 20000); got == nil || got.PolicyID != "wide" {
		t.Errorf("bestPolicy(20000) = %v, want wide", got)
	}

	// Unbounded fallback only
	if got := bestPolicy(policies, 80000); got == nil || got.PolicyID != "floor" {
		t.Errorf("bestPolicy(80000) = %v, want floor", got)
	}

	// Nothing matches
	if got := bestPolicy([]contract.Policy{inactive}, 100); got != nil {
		t.Errorf("bestPolicy with only inactive = %v, want nil", got)
	}
}

func TestBestPolicy_TieBreakByID(t *testing.T) {
	a := contract.Policy{PolicyID: "alpha", MaxAmount: amt(1000), Active: true}
	b := contract.Policy{PolicyID: "beta", MaxAmount: amt(1000), Active: true}

	// Same effective max: lowest policy ID wins, regardless of input order
	if got := bestPolicy([]contract.Policy{b, a}, 500); got.PolicyID != "alpha" {
		t.Errorf("tie-break = %s, want alpha", got.PolicyID)
	}
	if got := bestPolicy([]contract.Policy{a, b}, 500); got.PolicyID != "alpha" {
		t.Errorf("tie-break = %s, want alpha", got.PolicyID)
	}
}
