package decision

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbd888/shieldnet/internal/contract"
	"github.com/mbd888/shieldnet/internal/fingerprint"
	"github.com/mbd888/shieldnet/internal/metrics"
)

// DefaultNetworkThreatThreshold: a known fingerprint at or above this fraud
// score is a standing BLOCK signal regardless of local scores.
const DefaultNetworkThreatThreshold = 0.7

// fraudBlockThreshold: local fraud score at or above this always blocks.
const fraudBlockThreshold = 0.7

// Request carries the attributes of one payment request.
type Request struct {
	CompanyID         string   `json:"companyId"`
	InvoiceID         string   `json:"invoiceId"`
	Vendor            string   `json:"vendor"`
	VendorID          string   `json:"vendorId,omitempty"`
	Amount            float64  `json:"amount"`
	Currency          string   `json:"currency"`
	Confidence        float64  `json:"confidence"`
	FraudSignals      []string `json:"fraudSignals,omitempty"`
	KnownVendor       bool     `json:"knownVendor"`
	HasPO             bool     `json:"hasPO"`
	PaymentTarget     string   `json:"paymentTarget"`
	PaymentTargetType string   `json:"paymentTargetType"`
	InvoiceTemplate   string   `json:"invoiceTemplate,omitempty"`
	PaymentMethod     string   `json:"paymentMethod,omitempty"`
}

// Result is the engine's verdict plus the record it produced.
type Result struct {
	Decision      contract.Decision `json:"decision"`
	Status        contract.Status   `json:"status"`
	Confidence    float64           `json:"confidence"`
	FraudScore    float64           `json:"fraudScore"`
	Reasons       []string          `json:"reasons,omitempty"`
	PolicyMatched string            `json:"policyMatched,omitempty"`
	NetworkThreat bool              `json:"networkThreat"`
	ThreatMatches int               `json:"threatMatches"`
	TxID          string            `json:"txId"`
	ThreatID      string            `json:"threatId,omitempty"`
}

// NetworkCheck is the result of querying the threat ledger for a set of
// fingerprints.
type NetworkCheck struct {
	IsThreat    bool              `json:"isThreat"`
	ThreatCount int               `json:"threatCount"`
	RiskLevel   string            `json:"riskLevel"`
	Threats     []contract.Threat `json:"threats"`
}

// Engine evaluates payment requests against the ledger store.
type Engine struct {
	backend          contract.Backend
	networkThreshold float64
	tracer           trace.Tracer
	logger           *slog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithNetworkThreatThreshold overrides the fraud score at which a network
// fingerprint match becomes a standing BLOCK signal.
func WithNetworkThreatThreshold(t float64) Option {
	return func(e *Engine) { e.networkThreshold = t }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a decision engine over the given ledger backend.
func New(backend contract.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:          backend,
		networkThreshold: DefaultNetworkThreatThreshold,
		tracer:           otel.Tracer("github.com/mbd888/shieldnet/internal/decision"),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate classifies a request and records the outcome.
//
// The transaction is recorded first; on BLOCK the threat fingerprint is then
// shared as a second, independent atomic operation. A crash between the two
// leaves a valid treasury with the threat not yet shared — an accepted
// consistency gap, reconciled by re-reporting.
func (e *Engine) Evaluate(ctx context.Context, req *Request) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "decision.Evaluate",
		trace.WithAttributes(
			attribute.String("company_id", req.CompanyID),
			attribute.Float64("amount", req.Amount),
		))
	defer span.End()

	if req.CompanyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", contract.ErrValidation)
	}
	bucket, err := fingerprint.BucketAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrValidation, err)
	}
	targetType := req.PaymentTargetType
	if targetType == "" {
		targetType = fingerprint.TargetWalletAddress
	}

	vendorHash := fingerprint.Vendor(req.Vendor)
	targetHash := fingerprint.PaymentTarget(req.PaymentTarget, targetType)
	templateHash := fingerprint.InvoiceTemplate(req.InvoiceTemplate)

	// Network check: any known fingerprint at or above the threshold is a
	// standing BLOCK signal, independent of local scores.
	matches, err := e.backend.ListThreats(ctx, contract.ThreatFilter{
		VendorHash:        vendorHash,
		PaymentTargetHash: targetHash,
		MinFraudScore:     e.networkThreshold,
	})
	if err != nil {
		return nil, err
	}
	networkThreat := len(matches) > 0

	policies, err := e.backend.ListPolicies(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	matched := bestPolicy(policies, req.Amount)

	reasons := append([]string(nil), req.FraudSignals...)
	if matched != nil {
		if matched.RequirePO && !req.HasPO && !contains(reasons, ReasonNoPOMatch) {
			reasons = append(reasons, ReasonNoPOMatch)
		}
		if matched.BlockUnknownVendors && !req.KnownVendor && !contains(reasons, ReasonVendorNotRecognized) {
			reasons = append(reasons, ReasonVendorNotRecognized)
		}
	}
	if networkThreat && !contains(reasons, ReasonNetworkThreatMatch) {
		reasons = append(reasons, ReasonNetworkThreatMatch)
	}

	confidence := clamp01(req.Confidence)
	fraud := FraudScore(reasons)

	// Fixed priority order; first match wins.
	var verdict contract.Decision
	switch {
	case networkThreat,
		fraud >= fraudBlockThreshold,
		matched != nil && matched.AutoBlock && fraud > matched.MaxFraudScore:
		verdict = contract.DecisionBlock
	case matched != nil && matched.AutoPay &&
		confidence >= matched.MinConfidence && fraud <= matched.MaxFraudScore:
		verdict = contract.DecisionApprove
	default:
		verdict = contract.DecisionHold
	}

	result := &Result{
		Decision:      verdict,
		Status:        statusFor(verdict),
		Confidence:    confidence,
		FraudScore:    fraud,
		Reasons:       reasons,
		NetworkThreat: networkThreat,
		ThreatMatches: len(matches),
	}
	if matched != nil {
		result.PolicyMatched = matched.PolicyID
	}

	tx := &contract.Transaction{
		InvoiceID: req.InvoiceID,
		Vendor:    req.Vendor,
		VendorID:  req.VendorID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    result.Status,
		Decision:  verdict,
		Meta: contract.TransactionMeta{
			FraudScore:     fraud,
			Confidence:     confidence,
			PolicyMatched:  result.PolicyMatched,
			PaymentMethod:  req.PaymentMethod,
			PaymentAddress: req.PaymentTarget,
		},
	}
	if verdict == contract.DecisionBlock {
		tx.Meta.BlockReasons = reasons
	}
	if verdict == contract.DecisionHold && matched == nil {
		tx.Meta.HoldReason = "no matching policy"
	}

	txID, err := e.backend.RecordPayment(ctx, req.CompanyID, tx)
	if err != nil {
		return nil, err
	}
	result.TxID = txID
	metrics.DecisionsTotal.WithLabelValues(string(verdict)).Inc()
	metrics.TransactionsTotal.WithLabelValues(string(result.Status)).Inc()

	if verdict == contract.DecisionBlock {
		threatID, err := e.backend.AppendThreat(ctx, &contract.Threat{
			VendorHash:          vendorHash,
			PaymentTargetType:   targetType,
			PaymentTargetHash:   targetHash,
			InvoiceTemplateHash: templateHash,
			AmountBucket:        bucket,
			Currency:            req.Currency,
			FraudScore:          fraud,
			Reasons:             reasons,
			ReporterID:          req.CompanyID,
			ReporterHash:        fingerprint.Reporter(req.CompanyID),
		})
		if err != nil {
			return nil, err
		}
		result.ThreatID = threatID
		metrics.ThreatsReportedTotal.Inc()
	}

	e.logger.Info("payment request classified",
		"company_id", req.CompanyID,
		"invoice_id", req.InvoiceID,
		"decision", verdict,
		"fraud_score", fraud,
		"confidence", confidence,
		"policy", result.PolicyMatched,
		"network_threat", networkThreat,
		"tx_id", txID,
	)
	span.SetAttributes(attribute.String("decision", string(verdict)))
	return result, nil
}

// CheckNetwork queries the threat ledger for any of the given fingerprints
// and grades the aggregate risk.
func (e *Engine) CheckNetwork(ctx context.Context, vendorHash, targetHash, templateHash string) (*NetworkCheck, error) {
	matches, err := e.backend.ListThreats(ctx, contract.ThreatFilter{
		VendorHash:          vendorHash,
		PaymentTargetHash:   targetHash,
		InvoiceTemplateHash: templateHash,
	})
	if err != nil {
		return nil, err
	}
	details := matches
	if len(details) > 10 {
		details = details[:10]
	}
	return &NetworkCheck{
		IsThreat:    len(matches) > 0,
		ThreatCount: len(matches),
		RiskLevel:   riskLevel(len(matches)),
		Threats:     details,
	}, nil
}

func riskLevel(count int) string {
	switch {
	case count > 5:
		return "critical"
	case count > 2:
		return "high"
	case count > 0:
		return "medium"
	default:
		return "low"
	}
}

func statusFor(d contract.Decision) contract.Status {
	switch d {
	case contract.DecisionApprove:
		return contract.StatusPaid
	case contract.DecisionBlock:
		return contract.StatusBlocked
	default:
		return contract.StatusHeld
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
