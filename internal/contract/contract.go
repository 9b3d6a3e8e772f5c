// Package contract maintains the three ShieldNet ledgers — payment policies,
// anonymized threat intelligence, and the treasury payment record — behind a
// single swappable Backend interface.
//
// Each ledger is a self-describing versioned document. Two backends exist:
// a file backend that persists each document as JSON with atomic replacement
// (the production default), and an in-memory backend for tests and demo mode.
// Callers never hold references into a backend's internal state; every
// accessor returns copies.
package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mbd888/shieldnet/internal/fingerprint"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Error taxonomy. Backends wrap these sentinels with detail via %w so callers
// can classify failures with errors.Is regardless of the backend in use.
var (
	ErrNotFound    = errors.New("contract: not found")
	ErrConflict    = errors.New("contract: already exists")
	ErrValidation  = errors.New("contract: invalid input")
	ErrConcurrency = errors.New("contract: lock wait timed out")
	ErrStorage     = errors.New("contract: storage failure")
)

// SchemaVersion tags every persisted ledger document.
const SchemaVersion = "1.0.0"

// Document type tags.
const (
	TypePolicyContract      = "PolicyContract"
	TypeThreatIntelContract = "ThreatIntelContract"
	TypeTreasuryContract    = "TreasuryContract"
)

// Transaction status values.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusHeld    Status = "HELD"
	StatusBlocked Status = "BLOCKED"
)

// Decision values recorded on transactions.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionHold    Decision = "HOLD"
	DecisionBlock   Decision = "BLOCK"
)

// Policy is a company-scoped payment rule. PolicyID is unique within a
// company. Policies are only ever mutated through policy-management calls,
// never by the decision engine.
type Policy struct {
	CompanyID           string   `json:"companyId"`
	PolicyID            string   `json:"policyId"`
	Name                string   `json:"name"`
	MaxAmount           *float64 `json:"maxAmount,omitempty"`
	MinAmount           *float64 `json:"minAmount,omitempty"`
	MinConfidence       float64  `json:"minConfidence"`
	MaxFraudScore       float64  `json:"maxFraudScore"`
	AutoPay             bool     `json:"autoPay"`
	AutoBlock           bool     `json:"autoBlock"`
	BlockUnknownVendors bool     `json:"blockUnknownVendors"`
	RequirePO           bool     `json:"requirePO"`
	Active              bool     `json:"active"`
	CreatedAt           string   `json:"createdAt"`
	UpdatedAt           string   `json:"updatedAt"`
}

// Validate checks field-level invariants before a policy enters the ledger.
func (p *Policy) Validate() error {
	if p.CompanyID == "" || p.PolicyID == "" {
		return fmt.Errorf("%w: companyId and policyId are required", ErrValidation)
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("%w: minConfidence must be in [0,1]", ErrValidation)
	}
	if p.MaxFraudScore < 0 || p.MaxFraudScore > 1 {
		return fmt.Errorf("%w: maxFraudScore must be in [0,1]", ErrValidation)
	}
	if p.MinAmount != nil && *p.MinAmount < 0 {
		return fmt.Errorf("%w: minAmount must be non-negative", ErrValidation)
	}
	if p.MaxAmount != nil && *p.MaxAmount < 0 {
		return fmt.Errorf("%w: maxAmount must be non-negative", ErrValidation)
	}
	if p.MinAmount != nil && p.MaxAmount != nil && *p.MinAmount > *p.MaxAmount {
		return fmt.Errorf("%w: minAmount exceeds maxAmount", ErrValidation)
	}
	return nil
}

// clone returns a deep copy. The amount bounds are the only pointer fields;
// copying them keeps callers from reaching stored ledger state.
func (p *Policy) clone() Policy {
	cp := *p
	if p.MinAmount != nil {
		v := *p.MinAmount
		cp.MinAmount = &v
	}
	if p.MaxAmount != nil {
		v := *p.MaxAmount
		cp.MaxAmount = &v
	}
	return cp
}

// CoversAmount reports whether amount falls inside the policy's
// [minAmount, maxAmount] range. Nil bounds are unbounded.
func (p *Policy) CoversAmount(amount float64) bool {
	if p.MinAmount != nil && amount < *p.MinAmount {
		return false
	}
	if p.MaxAmount != nil && amount > *p.MaxAmount {
		return false
	}
	return true
}

// Threat is one anonymized suspicious-pattern fingerprint. Its logical
// identity is the (vendorHash, paymentTargetHash, invoiceTemplateHash)
// triple; re-reports of the same triple merge instead of duplicating.
// Threats are append-only and never deleted.
type Threat struct {
	ThreatID            string   `json:"threatId"`
	VendorHash          string   `json:"vendorHash"`
	PaymentTargetType   string   `json:"paymentTargetType"`
	PaymentTargetHash   string   `json:"paymentTargetHash"`
	InvoiceTemplateHash string   `json:"invoiceTemplateHash"`
	AmountBucket        string   `json:"amountBucket"`
	Currency            string   `json:"currency"`
	FraudScore          float64  `json:"fraudScore"`
	Reasons             []string `json:"reasons"`
	FirstSeenAt         string   `json:"firstSeenAt"`
	LastSeenAt          string   `json:"lastSeenAt"`
	TimesSeen           int      `json:"timesSeen"`
	ReporterID          string   `json:"reporterId"`
	ReporterHash        string   `json:"reporterHash"`
	NetworkReward       float64  `json:"networkReward"`
	Verified            bool     `json:"verified"`
}

// Validate checks the fingerprint fields before the threat enters the ledger.
func (t *Threat) Validate() error {
	for _, h := range []string{t.VendorHash, t.PaymentTargetHash, t.InvoiceTemplateHash} {
		if !fingerprint.IsValidHash(h, fingerprint.HashLength) {
			return fmt.Errorf("%w: fingerprint hashes must be %d-char lowercase hex", ErrValidation, fingerprint.HashLength)
		}
	}
	if !fingerprint.IsValidBucket(t.AmountBucket) {
		return fmt.Errorf("%w: unknown amount bucket %q", ErrValidation, t.AmountBucket)
	}
	if t.FraudScore < 0 || t.FraudScore > 1 {
		return fmt.Errorf("%w: fraudScore must be in [0,1]", ErrValidation)
	}
	switch t.PaymentTargetType {
	case fingerprint.TargetWalletAddress, fingerprint.TargetBankAccount:
	default:
		return fmt.Errorf("%w: unknown payment target type %q", ErrValidation, t.PaymentTargetType)
	}
	return nil
}

// sameIdentity reports whether two threats share the triple-hash identity.
func (t *Threat) sameIdentity(other *Threat) bool {
	return t.VendorHash == other.VendorHash &&
		t.PaymentTargetHash == other.PaymentTargetHash &&
		t.InvoiceTemplateHash == other.InvoiceTemplateHash
}

// ThreatStatistics is the aggregate block of the threat ledger. It is
// recomputed inside the same critical section as the mutation that changes
// its inputs; readers never observe it out of sync with the threat list.
type ThreatStatistics struct {
	TotalThreats       int     `json:"totalThreats"`
	TotalBlockedAmount float64 `json:"totalBlockedAmount"`
	VerifiedReporters  int     `json:"verifiedReporters"`
	HighRiskVendors    int     `json:"highRiskVendors"`
	LastThreatReported string  `json:"lastThreatReported,omitempty"`
}

// TransactionMeta carries scoring context alongside a transaction.
type TransactionMeta struct {
	FraudScore     float64  `json:"fraudScore"`
	Confidence     float64  `json:"confidence"`
	PolicyMatched  string   `json:"policyMatched,omitempty"`
	PaymentMethod  string   `json:"paymentMethod,omitempty"`
	PaymentAddress string   `json:"paymentAddress,omitempty"`
	BlockReasons   []string `json:"blockReasons,omitempty"`
	HoldReason     string   `json:"holdReason,omitempty"`
}

// Transaction is one payment event in a company treasury.
type Transaction struct {
	TxID      string          `json:"txId"`
	InvoiceID string          `json:"invoiceId"`
	Vendor    string          `json:"vendor"`
	VendorID  string          `json:"vendorId,omitempty"`
	Amount    float64         `json:"amount"`
	Currency  string          `json:"currency"`
	Status    Status          `json:"status"`
	Decision  Decision        `json:"decision"`
	Timestamp string          `json:"timestamp"`
	Meta      TransactionMeta `json:"meta"`
}

// Validate checks transaction fields before the treasury accepts them.
func (tx *Transaction) Validate() error {
	if tx.Amount < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrValidation)
	}
	switch tx.Status {
	case StatusPending, StatusPaid, StatusHeld, StatusBlocked:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, tx.Status)
	}
	switch tx.Decision {
	case DecisionApprove, DecisionHold, DecisionBlock:
	default:
		return fmt.Errorf("%w: unknown decision %q", ErrValidation, tx.Decision)
	}
	return nil
}

// clone returns a deep copy. Meta.BlockReasons is the only shared-slice
// field.
func (tx *Transaction) clone() Transaction {
	cp := *tx
	if tx.Meta.BlockReasons != nil {
		cp.Meta.BlockReasons = append([]string(nil), tx.Meta.BlockReasons...)
	}
	return cp
}

// CompanyTreasury holds one company's balance and transaction history.
// Balance decreases only by amounts of PAID transactions; the total fields
// are always the sums over the corresponding transaction subsets.
type CompanyTreasury struct {
	CompanyID    string        `json:"companyId"`
	CompanyName  string        `json:"companyName"`
	Balance      float64       `json:"balance"`
	Currency     string        `json:"currency"`
	TotalPaid    float64       `json:"totalPaid"`
	TotalBlocked float64       `json:"totalBlocked"`
	TotalHeld    float64       `json:"totalHeld"`
	CreatedAt    string        `json:"createdAt"`
	LastActivity string        `json:"lastActivity"`
	Transactions []Transaction `json:"transactions"`
}

// GlobalStats is the aggregate block of the treasury ledger.
type GlobalStats struct {
	TotalCompanies    int     `json:"totalCompanies"`
	TotalBalance      float64 `json:"totalBalance"`
	TotalTransactions int     `json:"totalTransactions"`
	TotalPaid         float64 `json:"totalPaid"`
	TotalBlocked      float64 `json:"totalBlocked"`
	TotalHeld         float64 `json:"totalHeld"`
	LastTransaction   string  `json:"lastTransaction,omitempty"`
}

// Ledger document roots. These are the on-disk shape of the file backend and
// the wire shape any substitute backend must reproduce.

// PolicyDocument is the root of the policy ledger.
type PolicyDocument struct {
	Version      string   `json:"version"`
	ContractType string   `json:"contractType"`
	Description  string   `json:"description"`
	LastUpdated  string   `json:"lastUpdated"`
	Policies     []Policy `json:"policies"`
}

// ThreatDocument is the root of the threat intelligence ledger.
type ThreatDocument struct {
	Version      string           `json:"version"`
	ContractType string           `json:"contractType"`
	Description  string           `json:"description"`
	LastUpdated  string           `json:"lastUpdated"`
	Threats      []Threat         `json:"threats"`
	Statistics   ThreatStatistics `json:"statistics"`
}

// TreasuryDocument is the root of the treasury ledger.
type TreasuryDocument struct {
	Version      string            `json:"version"`
	ContractType string            `json:"contractType"`
	Description  string            `json:"description"`
	LastUpdated  string            `json:"lastUpdated"`
	Companies    []CompanyTreasury `json:"companies"`
	GlobalStats  GlobalStats       `json:"globalStats"`
}

func newPolicyDocument() *PolicyDocument {
	return &PolicyDocument{
		Version:      SchemaVersion,
		ContractType: TypePolicyContract,
		Description:  "Company payment policies and mandate rules",
		LastUpdated:  fingerprint.Now(),
		Policies:     []Policy{},
	}
}

func newThreatDocument() *ThreatDocument {
	return &ThreatDocument{
		Version:      SchemaVersion,
		ContractType: TypeThreatIntelContract,
		Description:  "Anonymized cross-party threat intelligence",
		LastUpdated:  fingerprint.Now(),
		Threats:      []Threat{},
	}
}

func newTreasuryDocument() *TreasuryDocument {
	return &TreasuryDocument{
		Version:      SchemaVersion,
		ContractType: TypeTreasuryContract,
		Description:  "Treasury management and payment ledger",
		LastUpdated:  fingerprint.Now(),
		Companies:    []CompanyTreasury{},
	}
}

var titleCaser = cases.Title(language.English)

// displayName derives a human-readable company name from a company ID
// ("acme_corp" → "Acme Corp") for auto-created treasuries.
func displayName(companyID string) string {
	return titleCaser.String(strings.ReplaceAll(companyID, "_", " "))
}
