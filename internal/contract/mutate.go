package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mbd888/shieldnet/internal/fingerprint"
	"github.com/mbd888/shieldnet/internal/idgen"
)

// Document-level mutation helpers shared by the file and memory backends so
// that both implement identical semantics. Callers hold whatever lock guards
// the document; these helpers do no locking of their own.

func (d *PolicyDocument) add(p *Policy) error {
	for i := range d.Policies {
		if d.Policies[i].CompanyID == p.CompanyID && d.Policies[i].PolicyID == p.PolicyID {
			return fmt.Errorf("%w: policy %s/%s", ErrConflict, p.CompanyID, p.PolicyID)
		}
	}
	now := fingerprint.Now()
	if p.CreatedAt == "" {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	d.Policies = append(d.Policies, p.clone())
	d.LastUpdated = now
	return nil
}

func (d *PolicyDocument) update(p *Policy) error {
	for i := range d.Policies {
		if d.Policies[i].CompanyID == p.CompanyID && d.Policies[i].PolicyID == p.PolicyID {
			p.CreatedAt = d.Policies[i].CreatedAt
			p.UpdatedAt = fingerprint.Now()
			d.Policies[i] = p.clone()
			d.LastUpdated = p.UpdatedAt
			return nil
		}
	}
	return fmt.Errorf("%w: policy %s/%s", ErrNotFound, p.CompanyID, p.PolicyID)
}

func (d *PolicyDocument) remove(companyID, policyID string) error {
	for i := range d.Policies {
		if d.Policies[i].CompanyID == companyID && d.Policies[i].PolicyID == policyID {
			d.Policies = append(d.Policies[:i], d.Policies[i+1:]...)
			d.LastUpdated = fingerprint.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: policy %s/%s", ErrNotFound, companyID, policyID)
}

func (d *PolicyDocument) forCompany(companyID string) []Policy {
	result := []Policy{}
	for i := range d.Policies {
		if d.Policies[i].CompanyID == companyID {
			result = append(result, d.Policies[i].clone())
		}
	}
	return result
}

// upsert merges a re-reported threat into its existing entry when the
// triple-hash identity matches, otherwise appends. Statistics are recomputed
// before returning so list and aggregate never disagree.
func (d *ThreatDocument) upsert(t *Threat) string {
	now := fingerprint.Now()
	var id string
	if existing := d.findIdentity(t); existing != nil {
		existing.TimesSeen++
		existing.LastSeenAt = now
		if t.FraudScore > existing.FraudScore {
			existing.FraudScore = t.FraudScore
		}
		id = existing.ThreatID
	} else {
		if t.ThreatID == "" {
			t.ThreatID = "threat_" + idgen.UUID()
		}
		if t.FirstSeenAt == "" {
			t.FirstSeenAt = now
		}
		if t.LastSeenAt == "" {
			t.LastSeenAt = now
		}
		if t.TimesSeen == 0 {
			t.TimesSeen = 1
		}
		t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
		t.Reasons = append([]string(nil), t.Reasons...)
		d.Threats = append(d.Threats, *t)
		id = t.ThreatID
	}
	d.recomputeStats()
	d.Statistics.LastThreatReported = now
	d.LastUpdated = now
	return id
}

func (d *ThreatDocument) findIdentity(t *Threat) *Threat {
	for i := range d.Threats {
		if d.Threats[i].sameIdentity(t) {
			return &d.Threats[i]
		}
	}
	return nil
}

func (d *ThreatDocument) recomputeStats() {
	vendors := make(map[string]struct{})
	verified := make(map[string]struct{})
	var blocked float64
	for i := range d.Threats {
		vendors[d.Threats[i].VendorHash] = struct{}{}
		if d.Threats[i].Verified {
			verified[d.Threats[i].ReporterHash] = struct{}{}
		}
		blocked += fingerprint.BucketMidpoint(d.Threats[i].AmountBucket)
	}
	d.Statistics.TotalThreats = len(d.Threats)
	d.Statistics.HighRiskVendors = len(vendors)
	d.Statistics.VerifiedReporters = len(verified)
	d.Statistics.TotalBlockedAmount = blocked
}

func (d *ThreatDocument) list(f ThreatFilter) []Threat {
	result := []Threat{}
	for i := range d.Threats {
		if f.matches(&d.Threats[i]) {
			cp := d.Threats[i]
			cp.Reasons = append([]string(nil), cp.Reasons...)
			result = append(result, cp)
		}
	}
	// Most recently seen first; threat ID breaks timestamp ties so the
	// ordering is stable across backends.
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastSeenAt != result[j].LastSeenAt {
			return result[i].LastSeenAt > result[j].LastSeenAt
		}
		return result[i].ThreatID < result[j].ThreatID
	})
	if len(result) > f.limit() {
		result = result[:f.limit()]
	}
	return result
}

// record appends a transaction to the company's treasury, creating the
// treasury with startingBalance if the company is new, and recomputes the
// company totals and global aggregate in the same step.
func (d *TreasuryDocument) record(companyID string, tx *Transaction, startingBalance float64) string {
	now := fingerprint.Now()
	if tx.TxID == "" {
		tx.TxID = idgen.WithPrefix("tx_")
	}
	if tx.Timestamp == "" {
		tx.Timestamp = now
	}
	if tx.Currency == "" {
		tx.Currency = "USDC"
	}
	tx.Currency = strings.ToUpper(strings.TrimSpace(tx.Currency))

	c := d.company(companyID)
	if c == nil {
		d.Companies = append(d.Companies, CompanyTreasury{
			CompanyID:    companyID,
			CompanyName:  displayName(companyID),
			Balance:      startingBalance,
			Currency:     tx.Currency,
			CreatedAt:    now,
			Transactions: []Transaction{},
		})
		c = &d.Companies[len(d.Companies)-1]
	}

	c.Transactions = append(c.Transactions, tx.clone())
	c.LastActivity = now
	if tx.Status == StatusPaid {
		c.Balance -= tx.Amount
	}
	c.recomputeTotals()

	d.recomputeGlobalStats()
	d.GlobalStats.LastTransaction = now
	d.LastUpdated = now
	return tx.TxID
}

func (d *TreasuryDocument) company(companyID string) *CompanyTreasury {
	for i := range d.Companies {
		if d.Companies[i].CompanyID == companyID {
			return &d.Companies[i]
		}
	}
	return nil
}

// recomputeTotals derives the status totals from the transaction list rather
// than incrementing them, so they cannot drift from the transactions they
// summarize.
func (c *CompanyTreasury) recomputeTotals() {
	c.TotalPaid, c.TotalBlocked, c.TotalHeld = 0, 0, 0
	for i := range c.Transactions {
		switch c.Transactions[i].Status {
		case StatusPaid:
			c.TotalPaid += c.Transactions[i].Amount
		case StatusBlocked:
			c.TotalBlocked += c.Transactions[i].Amount
		case StatusHeld:
			c.TotalHeld += c.Transactions[i].Amount
		}
	}
}

func (d *TreasuryDocument) recomputeGlobalStats() {
	last := d.GlobalStats.LastTransaction
	d.GlobalStats = GlobalStats{LastTransaction: last, TotalCompanies: len(d.Companies)}
	for i := range d.Companies {
		c := &d.Companies[i]
		d.GlobalStats.TotalBalance += c.Balance
		d.GlobalStats.TotalTransactions += len(c.Transactions)
		d.GlobalStats.TotalPaid += c.TotalPaid
		d.GlobalStats.TotalBlocked += c.TotalBlocked
		d.GlobalStats.TotalHeld += c.TotalHeld
	}
}

// copyTreasury returns a deep copy safe to hand to callers.
func copyTreasury(c *CompanyTreasury) *CompanyTreasury {
	cp := *c
	cp.Transactions = make([]Transaction, 0, len(c.Transactions))
	for i := range c.Transactions {
		cp.Transactions = append(cp.Transactions, c.Transactions[i].clone())
	}
	return &cp
}

func (d *TreasuryDocument) listTransactions(f TransactionFilter) []Transaction {
	c := d.company(f.CompanyID)
	if c == nil {
		return nil
	}
	result := []Transaction{}
	for i := range c.Transactions {
		if f.matches(&c.Transactions[i]) {
			result = append(result, c.Transactions[i].clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].TxID < result[j].TxID
	})
	if len(result) > f.limit() {
		result = result[:f.limit()]
	}
	return result
}
