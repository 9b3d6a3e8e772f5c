package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mbd888/shieldnet/internal/metrics"
	"github.com/mbd888/shieldnet/internal/syncutil"
)

// Ledger document file names.
const (
	policyFile   = "PolicyContract.json"
	threatFile   = "ThreatIntelContract.json"
	treasuryFile = "TreasuryContract.json"
)

// DefaultLockWait bounds how long a mutating operation waits for a ledger
// document lock before surfacing ErrConcurrency.
const DefaultLockWait = 5 * time.Second

// DefaultStartingBalance is credited to auto-created company treasuries.
const DefaultStartingBalance = 100000

// ledgerFile pairs a document path with the mutex that serializes its
// read-modify-write cycles. One lock per ledger: policy, threat, and
// treasury operations never block each other.
type ledgerFile struct {
	name string
	path string
	mu   *syncutil.Mutex
}

// FileBackend persists each ledger as one JSON document.
//
// Mutations hold the document's mutex for the full read-modify-write-persist
// cycle and replace the file atomically (temp file + rename), so a reader
// never observes a partial document and a crash mid-write leaves the prior
// version intact. Reads skip the mutex: the rename guarantees they see a
// complete old or new document.
//
// A missing or unparseable document is replaced with a fresh schema-valid
// default. For corrupt documents this trades durability for availability;
// the corruption is logged, never silently absorbed into valid data.
type FileBackend struct {
	policy          ledgerFile
	threat          ledgerFile
	treasury        ledgerFile
	lockWait        time.Duration
	startingBalance float64
	logger          *slog.Logger
}

// NewFileBackend creates (and if needed initializes) a file backend rooted
// at dir.
func NewFileBackend(dir string, opts Options) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create contracts dir: %v", ErrStorage, err)
	}
	b := &FileBackend{
		policy:          ledgerFile{name: "policy", path: filepath.Join(dir, policyFile), mu: syncutil.NewMutex()},
		threat:          ledgerFile{name: "threat", path: filepath.Join(dir, threatFile), mu: syncutil.NewMutex()},
		treasury:        ledgerFile{name: "treasury", path: filepath.Join(dir, treasuryFile), mu: syncutil.NewMutex()},
		lockWait:        opts.LockWait,
		startingBalance: opts.StartingBalance,
		logger:          opts.Logger,
	}
	if b.lockWait <= 0 {
		b.lockWait = DefaultLockWait
	}
	if b.startingBalance == 0 {
		b.startingBalance = DefaultStartingBalance
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if err := b.initDocuments(); err != nil {
		return nil, err
	}
	return b, nil
}

// initDocuments writes default documents for any ledger file that does not
// exist yet. Existing files are left untouched, parseable or not; corrupt
// documents are only replaced when first read.
func (b *FileBackend) initDocuments() error {
	for _, init := range []struct {
		lf  *ledgerFile
		def func() (any, error)
	}{
		{&b.policy, func() (any, error) { return newPolicyDocument(), nil }},
		{&b.threat, func() (any, error) { return newThreatDocument(), nil }},
		{&b.treasury, func() (any, error) { return newTreasuryDocument(), nil }},
	} {
		if _, err := os.Stat(init.lf.path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: stat %s: %v", ErrStorage, init.lf.path, err)
		}
		doc, _ := init.def()
		if err := writeDocument(init.lf.path, doc); err != nil {
			return err
		}
		b.logger.Info("initialized ledger document", "ledger", init.lf.name, "path", init.lf.path)
	}
	return nil
}

// lock acquires the document mutex with the configured bounded wait.
func (b *FileBackend) lock(ctx context.Context, lf *ledgerFile) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, b.lockWait)
	defer cancel()
	unlock, err := lf.mu.Lock(ctx)
	if err != nil {
		metrics.LockTimeoutsTotal.WithLabelValues(lf.name).Inc()
		return nil, fmt.Errorf("%w: %s ledger", ErrConcurrency, lf.name)
	}
	return unlock, nil
}

// observe times a store operation into the ledger operation histogram.
func observe(ledger, op string) func() {
	start := time.Now()
	return func() {
		metrics.LedgerOpDuration.WithLabelValues(ledger, op).Observe(time.Since(start).Seconds())
	}
}

// readDocument loads and parses a ledger document into out. When the file is
// missing or does not parse, out is filled from def instead and the problem
// is logged; valid pre-existing data is never dropped.
func readDocument[T any](b *FileBackend, lf *ledgerFile, def func() *T) (*T, error) {
	data, err := os.ReadFile(lf.path)
	if errors.Is(err, fs.ErrNotExist) {
		return def(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, lf.path, err)
	}
	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		b.logger.Warn("ledger document corrupt, reinitializing",
			"ledger", lf.name, "path", lf.path, "error", err)
		return def(), nil
	}
	return doc, nil
}

// writeDocument makes a document durable: full marshal to a temp file in the
// same directory, fsync, then atomic rename over the previous version.
func writeDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrStorage, path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: temp file for %s: %v", ErrStorage, path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrStorage, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrStorage, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStorage, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrStorage, path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Policy ledger
// ---------------------------------------------------------------------------

func (b *FileBackend) ListPolicies(_ context.Context, companyID string) ([]Policy, error) {
	doc, err := readDocument(b, &b.policy, newPolicyDocument)
	if err != nil {
		return nil, err
	}
	return doc.forCompany(companyID), nil
}

func (b *FileBackend) GetPolicy(_ context.Context, companyID, policyID string) (*Policy, error) {
	doc, err := readDocument(b, &b.policy, newPolicyDocument)
	if err != nil {
		return nil, err
	}
	for i := range doc.Policies {
		if doc.Policies[i].CompanyID == companyID && doc.Policies[i].PolicyID == policyID {
			cp := doc.Policies[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: policy %s/%s", ErrNotFound, companyID, policyID)
}

func (b *FileBackend) AddPolicy(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return b.mutatePolicies(ctx, func(doc *PolicyDocument) error { return doc.add(p) })
}

func (b *FileBackend) UpdatePolicy(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return b.mutatePolicies(ctx, func(doc *PolicyDocument) error { return doc.update(p) })
}

func (b *FileBackend) DeletePolicy(ctx context.Context, companyID, policyID string) error {
	return b.mutatePolicies(ctx, func(doc *PolicyDocument) error { return doc.remove(companyID, policyID) })
}

func (b *FileBackend) mutatePolicies(ctx context.Context, fn func(*PolicyDocument) error) error {
	defer observe("policy", "mutate")()
	unlock, err := b.lock(ctx, &b.policy)
	if err != nil {
		return err
	}
	defer unlock()
	doc, err := readDocument(b, &b.policy, newPolicyDocument)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return writeDocument(b.policy.path, doc)
}

// ---------------------------------------------------------------------------
// Threat ledger
// ---------------------------------------------------------------------------

func (b *FileBackend) AppendThreat(ctx context.Context, t *Threat) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	defer observe("threat", "append")()
	unlock, err := b.lock(ctx, &b.threat)
	if err != nil {
		return "", err
	}
	defer unlock()
	doc, err := readDocument(b, &b.threat, newThreatDocument)
	if err != nil {
		return "", err
	}
	id := doc.upsert(t)
	if err := writeDocument(b.threat.path, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (b *FileBackend) ListThreats(_ context.Context, f ThreatFilter) ([]Threat, error) {
	doc, err := readDocument(b, &b.threat, newThreatDocument)
	if err != nil {
		return nil, err
	}
	return doc.list(f), nil
}

func (b *FileBackend) ThreatStatistics(_ context.Context) (*ThreatStatistics, error) {
	doc, err := readDocument(b, &b.threat, newThreatDocument)
	if err != nil {
		return nil, err
	}
	stats := doc.Statistics
	return &stats, nil
}

// ---------------------------------------------------------------------------
// Treasury ledger
// ---------------------------------------------------------------------------

func (b *FileBackend) RecordPayment(ctx context.Context, companyID string, tx *Transaction) (string, error) {
	if companyID == "" {
		return "", fmt.Errorf("%w: companyId is required", ErrValidation)
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	defer observe("treasury", "record")()
	unlock, err := b.lock(ctx, &b.treasury)
	if err != nil {
		return "", err
	}
	defer unlock()
	doc, err := readDocument(b, &b.treasury, newTreasuryDocument)
	if err != nil {
		return "", err
	}
	id := doc.record(companyID, tx, b.startingBalance)
	if err := writeDocument(b.treasury.path, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (b *FileBackend) CompanyTreasury(_ context.Context, companyID string) (*CompanyTreasury, error) {
	doc, err := readDocument(b, &b.treasury, newTreasuryDocument)
	if err != nil {
		return nil, err
	}
	if c := doc.company(companyID); c != nil {
		return copyTreasury(c), nil
	}
	return nil, fmt.Errorf("%w: treasury for %s", ErrNotFound, companyID)
}

func (b *FileBackend) ListTransactions(_ context.Context, f TransactionFilter) ([]Transaction, error) {
	doc, err := readDocument(b, &b.treasury, newTreasuryDocument)
	if err != nil {
		return nil, err
	}
	return doc.listTransactions(f), nil
}

func (b *FileBackend) GlobalStats(_ context.Context) (*GlobalStats, error) {
	doc, err := readDocument(b, &b.treasury, newTreasuryDocument)
	if err != nil {
		return nil, err
	}
	stats := doc.GlobalStats
	return &stats, nil
}

// Compile-time assertion.
var _ Backend = (*FileBackend)(nil)
