// Package decision classifies incoming payment requests as APPROVE, HOLD, or
// BLOCK by combining the company's payment policies with network threat
// intelligence lookups.
//
// The classification is deterministic: identical inputs evaluated against an
// identical ledger snapshot always yield the identical decision. The ledger
// mutations it triggers (recording the transaction, sharing a threat on
// BLOCK) are not idempotent — re-evaluating appends a second transaction.
package decision

import (
	"math"
	"sort"

	"github.com/mbd888/shieldnet/internal/contract"
)

// Fraud reason codes with their severity weights. The fraud score for a
// request is the maximum weight across its reasons, boosted 10% per
// additional reason, capped at 1.0. Unknown codes weigh 0.5.
const (
	ReasonSuspiciousWalletChange = "SUSPICIOUS_WALLET_CHANGE"
	ReasonTemplateKnownFraud     = "TEMPLATE_SIMILARITY_KNOWN_FRAUD"
	ReasonNoPOMatch              = "NO_PO_MATCH"
	ReasonHoursExceedLogs        = "HOURS_EXCEED_LOGS"
	ReasonAccountMismatch        = "ACCOUNT_NUMBER_MISMATCH"
	ReasonDuplicateInvoice       = "DUPLICATE_INVOICE"
	ReasonVendorNotRecognized    = "VENDOR_NOT_RECOGNIZED"
	ReasonUnusualAmount          = "UNUSUAL_AMOUNT"
	ReasonSuspiciousTiming       = "SUSPICIOUS_TIMING"
	ReasonNetworkThreatMatch     = "NETWORK_THREAT_MATCH"
)

var reasonWeights = map[string]float64{
	ReasonSuspiciousWalletChange: 0.9,
	ReasonTemplateKnownFraud:     0.85,
	ReasonNoPOMatch:              0.7,
	ReasonHoursExceedLogs:        0.6,
	ReasonAccountMismatch:        0.8,
	ReasonDuplicateInvoice:       0.75,
	ReasonVendorNotRecognized:    0.5,
	ReasonUnusualAmount:          0.4,
	ReasonSuspiciousTiming:       0.3,
	ReasonNetworkThreatMatch:     0.95,
}

const defaultReasonWeight = 0.5

// FraudScore computes the fraud score for a set of reason codes.
func FraudScore(reasons []string) float64 {
	if len(reasons) == 0 {
		return 0
	}
	var maxWeight float64
	for _, r := range reasons {
		w, ok := reasonWeights[r]
		if !ok {
			w = defaultReasonWeight
		}
		if w > maxWeight {
			maxWeight = w
		}
	}
	multiplier := 1.0 + float64(len(reasons)-1)*0.1
	return round3(math.Min(maxWeight*multiplier, 1.0))
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// bestPolicy selects the applicable policy for an amount: active, range
// contains the amount, narrowest maxAmount among ties, policy ID as the
// final deterministic tie-break. Returns nil when nothing matches.
func bestPolicy(policies []contract.Policy, amount float64) *contract.Policy {
	var matches []contract.Policy
	for _, p := range policies {
		if p.Active && p.CoversAmount(amount) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		mi, mj := effectiveMax(&matches[i]), effectiveMax(&matches[j])
		if mi != mj {
			return mi < mj
		}
		return matches[i].PolicyID < matches[j].PolicyID
	})
	return &matches[0]
}

func effectiveMax(p *contract.Policy) float64 {
	if p.MaxAmount == nil {
		return math.Inf(1)
	}
	return *p.MaxAmount
}
