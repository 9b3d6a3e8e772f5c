// Package fingerprint implements the privacy-preserving content addressing
// used by the threat intelligence ledger.
//
// Sensitive identities (vendor names, wallet addresses, bank accounts, invoice
// templates, reporter IDs) are normalized and reduced to one-way SHA-256
// digests so that fraud patterns can be correlated across companies without
// revealing the underlying values. The same normalized input always produces
// the same digest, across processes and store instances.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"
)

// HashLength is the hex length of a full SHA-256 fingerprint.
const HashLength = 64

// ReporterHashLength is the truncated length used for reporter identities.
const ReporterHashLength = 32

// Payment target types accepted by PaymentTarget.
const (
	TargetWalletAddress = "wallet_address"
	TargetBankAccount   = "bank_account"
)

var ErrNegativeAmount = errors.New("fingerprint: amount must be non-negative")

var (
	hexHashRe    = regexp.MustCompile(`^[a-f0-9]+$`)
	dateRe       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	moneyRe      = regexp.MustCompile(`\$?\d+[,.]?\d*`)
	numberRe     = regexp.MustCompile(`\d+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

func sum(normalized string) string {
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// Vendor fingerprints a vendor name or domain.
func Vendor(name string) string {
	return sum(strings.ToLower(strings.TrimSpace(name)))
}

// PaymentTarget fingerprints a wallet address or bank account number.
// Wallet addresses are lowercased; bank accounts have spaces and dashes
// stripped so formatting differences do not defeat correlation.
func PaymentTarget(target, targetType string) string {
	var normalized string
	if targetType == TargetBankAccount {
		normalized = strings.TrimSpace(strings.NewReplacer(" ", "", "-", "").Replace(target))
	} else {
		normalized = strings.ToLower(strings.TrimSpace(target))
	}
	return sum(normalized)
}

// InvoiceTemplate fingerprints the structure of invoice text. Dates, amounts,
// and other numbers are replaced with placeholders before hashing so that two
// invoices from the same template match even when the figures differ.
func InvoiceTemplate(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = dateRe.ReplaceAllString(normalized, "DATE")
	normalized = moneyRe.ReplaceAllString(normalized, "AMOUNT")
	normalized = numberRe.ReplaceAllString(normalized, "NUM")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	return sum(normalized)
}

// Reporter fingerprints a company ID for anonymous threat reporting.
// Truncated to 32 hex chars; reporters only need to be distinguishable,
// not recoverable.
func Reporter(companyID string) string {
	return sum(companyID)[:ReporterHashLength]
}

// IsValidHash reports whether s is a lowercase hex digest of the given length.
func IsValidHash(s string, length int) bool {
	return len(s) == length && hexHashRe.MatchString(s)
}

// Now returns the current UTC time in the canonical ledger timestamp form.
// The format is second-precision RFC 3339, which sorts lexicographically.
func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
