package contract

import "context"

// DefaultListLimit caps list results when a filter does not set one.
const DefaultListLimit = 100

// ThreatFilter constrains ListThreats. The three hash fields OR together:
// a threat matches when it equals any of the hashes that are set. When no
// hash is set, all threats are candidates. MinFraudScore and the time range
// then AND on top.
type ThreatFilter struct {
	VendorHash          string
	PaymentTargetHash   string
	InvoiceTemplateHash string
	MinFraudScore       float64
	Since               string // inclusive lastSeenAt lower bound, ledger timestamp form
	Until               string // inclusive lastSeenAt upper bound
	Limit               int
}

func (f *ThreatFilter) matches(t *Threat) bool {
	if f.VendorHash != "" || f.PaymentTargetHash != "" || f.InvoiceTemplateHash != "" {
		hit := (f.VendorHash != "" && t.VendorHash == f.VendorHash) ||
			(f.PaymentTargetHash != "" && t.PaymentTargetHash == f.PaymentTargetHash) ||
			(f.InvoiceTemplateHash != "" && t.InvoiceTemplateHash == f.InvoiceTemplateHash)
		if !hit {
			return false
		}
	}
	if t.FraudScore < f.MinFraudScore {
		return false
	}
	// Canonical timestamps sort lexicographically.
	if f.Since != "" && t.LastSeenAt < f.Since {
		return false
	}
	if f.Until != "" && t.LastSeenAt > f.Until {
		return false
	}
	return true
}

func (f *ThreatFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// TransactionFilter constrains ListTransactions.
type TransactionFilter struct {
	CompanyID string // required
	Status    Status // optional
	Decision  Decision
	Limit     int
}

func (f *TransactionFilter) matches(tx *Transaction) bool {
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.Decision != "" && tx.Decision != f.Decision {
		return false
	}
	return true
}

func (f *TransactionFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Backend is the ledger store contract. Any implementation must provide
// these operations with the same error taxonomy (ErrNotFound, ErrConflict,
// ErrValidation, ErrConcurrency, ErrStorage) to be substitutable under the
// decision engine.
//
// Mutations on one ledger never block operations on another. Every mutating
// call updates the owning document's lastUpdated marker and its aggregate
// block in the same atomic step.
type Backend interface {
	// Policy ledger.
	ListPolicies(ctx context.Context, companyID string) ([]Policy, error)
	GetPolicy(ctx context.Context, companyID, policyID string) (*Policy, error)
	AddPolicy(ctx context.Context, p *Policy) error
	UpdatePolicy(ctx context.Context, p *Policy) error
	DeletePolicy(ctx context.Context, companyID, policyID string) error

	// Threat intelligence ledger. AppendThreat has upsert semantics: a threat
	// sharing the triple-hash identity of an existing entry increments its
	// timesSeen and refreshes lastSeenAt instead of inserting a duplicate.
	// Returns the resulting threat ID either way.
	AppendThreat(ctx context.Context, t *Threat) (string, error)
	ListThreats(ctx context.Context, f ThreatFilter) ([]Threat, error)
	ThreatStatistics(ctx context.Context) (*ThreatStatistics, error)

	// Treasury ledger. RecordPayment auto-creates a treasury for an unknown
	// company, appends the transaction, and atomically updates the company
	// balance/totals and the global aggregate. Returns the transaction ID.
	RecordPayment(ctx context.Context, companyID string, tx *Transaction) (string, error)
	CompanyTreasury(ctx context.Context, companyID string) (*CompanyTreasury, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	GlobalStats(ctx context.Context) (*GlobalStats, error)
}
