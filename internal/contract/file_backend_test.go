package contract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_InitializesDocuments(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileBackend(dir, Options{})
	require.NoError(t, err)

	for _, name := range []string{policyFile, threatFile, treasuryFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc), name)
		assert.Equal(t, SchemaVersion, doc["version"], name)
		assert.NotEmpty(t, doc["contractType"], name)
		assert.NotEmpty(t, doc["lastUpdated"], name)
	}
}

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewFileBackend(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, b.AddPolicy(ctx, testPolicy("acme_corp", "auto_small")))
	_, err = b.RecordPayment(ctx, "acme_corp", testTransaction(StatusPaid, DecisionApprove, 250))
	require.NoError(t, err)

	reopened, err := NewFileBackend(dir, Options{})
	require.NoError(t, err)

	p, err := reopened.GetPolicy(ctx, "acme_corp", "auto_small")
	require.NoError(t, err)
	assert.Equal(t, "Auto Small Invoices", p.Name)

	tr, err := reopened.CompanyTreasury(ctx, "acme_corp")
	require.NoError(t, err)
	assert.Equal(t, 250.0, tr.TotalPaid)
}

func TestFileBackend_CorruptDocumentReinitialized(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewFileBackend(dir, Options{})
	require.NoError(t, err)
	require.NoError(t, b.AddPolicy(ctx, testPolicy("acme_corp", "auto_small")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, policyFile), []byte("{not json"), 0o644))

	// Reads fall back to a fresh schema-valid document
	policies, err := b.ListPolicies(ctx, "acme_corp")
	require.NoError(t, err)
	assert.Empty(t, policies)

	// The next mutation persists a valid document again
	require.NoError(t, b.AddPolicy(ctx, testPolicy("acme_corp", "rebuilt")))
	data, err := os.ReadFile(filepath.Join(dir, policyFile))
	require.NoError(t, err)
	var doc PolicyDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, TypePolicyContract, doc.ContractType)
	assert.Len(t, doc.Policies, 1)
}

func TestFileBackend_CorruptionDoesNotCrossLedgers(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewFileBackend(dir, Options{})
	require.NoError(t, err)
	_, err = b.AppendThreat(ctx, testThreat("Evil Vendor", "0xdead", "tpl", 0.8))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, policyFile), []byte("garbage"), 0o644))

	threats, err := b.ListThreats(ctx, ThreatFilter{})
	require.NoError(t, err)
	assert.Len(t, threats, 1)
}

func TestFileBackend_CancelledContextSurfacesConcurrencyError(t *testing.T) {
	b, err := NewFileBackend(t.TempDir(), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = b.AddPolicy(ctx, testPolicy("acme_corp", "auto_small"))
	assert.ErrorIs(t, err, ErrConcurrency)

	_, err = b.AppendThreat(ctx, testThreat("v", "t", "x", 0.5))
	assert.ErrorIs(t, err, ErrConcurrency)

	_, err = b.RecordPayment(ctx, "acme_corp", testTransaction(StatusPaid, DecisionApprove, 10))
	assert.ErrorIs(t, err, ErrConcurrency)
}

func TestFileBackend_CustomStartingBalance(t *testing.T) {
	b, err := NewFileBackend(t.TempDir(), Options{StartingBalance: 500})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.RecordPayment(ctx, "acme_corp", testTransaction(StatusHeld, DecisionHold, 100))
	require.NoError(t, err)

	tr, err := b.CompanyTreasury(ctx, "acme_corp")
	require.NoError(t, err)
	assert.Equal(t, 500.0, tr.Balance)
}
