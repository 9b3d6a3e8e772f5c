package contract

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend keeps the three ledgers in memory. It is used for tests and
// demo mode, and doubles as the reference that the Backend interface really
// is implementation-agnostic: it satisfies the identical operation set and
// error taxonomy as the file backend.
//
// Each ledger has its own lock, so operations on different ledgers proceed
// independently, matching the file backend's one-lock-per-document model.
type MemoryBackend struct {
	policyMu   sync.RWMutex
	policies   PolicyDocument
	threatMu   sync.RWMutex
	threats    ThreatDocument
	treasuryMu sync.RWMutex
	treasury   TreasuryDocument

	startingBalance float64
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(opts Options) *MemoryBackend {
	b := &MemoryBackend{
		policies:        *newPolicyDocument(),
		threats:         *newThreatDocument(),
		treasury:        *newTreasuryDocument(),
		startingBalance: opts.StartingBalance,
	}
	if b.startingBalance == 0 {
		b.startingBalance = DefaultStartingBalance
	}
	return b
}

func (b *MemoryBackend) ListPolicies(_ context.Context, companyID string) ([]Policy, error) {
	b.policyMu.RLock()
	defer b.policyMu.RUnlock()
	return b.policies.forCompany(companyID), nil
}

func (b *MemoryBackend) GetPolicy(_ context.Context, companyID, policyID string) (*Policy, error) {
	b.policyMu.RLock()
	defer b.policyMu.RUnlock()
	for i := range b.policies.Policies {
		if b.policies.Policies[i].CompanyID == companyID && b.policies.Policies[i].PolicyID == policyID {
			cp := b.policies.Policies[i].clone()
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: policy %s/%s", ErrNotFound, companyID, policyID)
}

func (b *MemoryBackend) AddPolicy(_ context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.policyMu.Lock()
	defer b.policyMu.Unlock()
	return b.policies.add(p)
}

func (b *MemoryBackend) UpdatePolicy(_ context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.policyMu.Lock()
	defer b.policyMu.Unlock()
	return b.policies.update(p)
}

func (b *MemoryBackend) DeletePolicy(_ context.Context, companyID, policyID string) error {
	b.policyMu.Lock()
	defer b.policyMu.Unlock()
	return b.policies.remove(companyID, policyID)
}

func (b *MemoryBackend) AppendThreat(_ context.Context, t *Threat) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	b.threatMu.Lock()
	defer b.threatMu.Unlock()
	return b.threats.upsert(t), nil
}

func (b *MemoryBackend) ListThreats(_ context.Context, f ThreatFilter) ([]Threat, error) {
	b.threatMu.RLock()
	defer b.threatMu.RUnlock()
	return b.threats.list(f), nil
}

func (b *MemoryBackend) ThreatStatistics(_ context.Context) (*ThreatStatistics, error) {
	b.threatMu.RLock()
	defer b.threatMu.RUnlock()
	stats := b.threats.Statistics
	return &stats, nil
}

func (b *MemoryBackend) RecordPayment(_ context.Context, companyID string, tx *Transaction) (string, error) {
	if companyID == "" {
		return "", fmt.Errorf("%w: companyId is required", ErrValidation)
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	b.treasuryMu.Lock()
	defer b.treasuryMu.Unlock()
	return b.treasury.record(companyID, tx, b.startingBalance), nil
}

func (b *MemoryBackend) CompanyTreasury(_ context.Context, companyID string) (*CompanyTreasury, error) {
	b.treasuryMu.RLock()
	defer b.treasuryMu.RUnlock()
	if c := b.treasury.company(companyID); c != nil {
		return copyTreasury(c), nil
	}
	return nil, fmt.Errorf("%w: treasury for %s", ErrNotFound, companyID)
}

func (b *MemoryBackend) ListTransactions(_ context.Context, f TransactionFilter) ([]Transaction, error) {
	b.treasuryMu.RLock()
	defer b.treasuryMu.RUnlock()
	return b.treasury.listTransactions(f), nil
}

func (b *MemoryBackend) GlobalStats(_ context.Context) (*GlobalStats, error) {
	b.treasuryMu.RLock()
	defer b.treasuryMu.RUnlock()
	stats := b.treasury.GlobalStats
	return &stats, nil
}

// Compile-time assertion.
var _ Backend = (*MemoryBackend)(nil)
