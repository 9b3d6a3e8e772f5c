package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/shieldnet/internal/contract"
	"github.com/mbd888/shieldnet/internal/fingerprint"
)

func setupTestRouter(t *testing.T) (*gin.Engine, contract.Backend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := contract.NewMemoryBackend(contract.Options{})
	handler := NewHandler(New(backend))

	r := gin.New()
	v1 := r.Group("/v1")
	handler.RegisterRoutes(v1)

	return r, backend
}

func postJSON(r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Evaluate(t *testing.T) {
	router, backend := setupTestRouter(t)
	seedPolicy(t, backend, autoPayPolicy())

	w := postJSON(router, "/v1/invoices/evaluate", cleanRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res Result
	json.Unmarshal(w.Body.Bytes(), &res)
	if res.Decision != contract.DecisionApprove {
		t.Errorf("Decision = %s, want APPROVE", res.Decision)
	}
	if res.TxID == "" {
		t.Error("Expected a transaction ID")
	}
}

func TestHandler_Evaluate_BadRequest(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := cleanRequest()
	req.CompanyID = ""
	w := postJSON(router, "/v1/invoices/evaluate", req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing companyId, got %d", w.Code)
	}

	req = cleanRequest()
	req.Amount = -5
	w = postJSON(router, "/v1/invoices/evaluate", req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative amount, got %d", w.Code)
	}
}

func TestHandler_CheckNetwork_RawAttributes(t *testing.T) {
	router, backend := setupTestRouter(t)

	_, err := backend.AppendThreat(context.Background(), &contract.Threat{
		VendorHash:          fingerprint.Vendor("Evil Vendor"),
		PaymentTargetType:   fingerprint.TargetWalletAddress,
		PaymentTargetHash:   fingerprint.PaymentTarget("0xdead", fingerprint.TargetWalletAddress),
		InvoiceTemplateHash: fingerprint.InvoiceTemplate("tpl"),
		AmountBucket:        "1k-5k",
		FraudScore:          0.9,
		ReporterHash:        fingerprint.Reporter("globex"),
	})
	if err != nil {
		t.Fatalf("AppendThreat: %v", err)
	}

	// Raw vendor name is fingerprinted server-side
	w := postJSON(router, "/v1/threats/check", gin.H{"vendor": "Evil Vendor"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var check NetworkCheck
	json.Unmarshal(w.Body.Bytes(), &check)
	if !check.IsThreat || check.ThreatCount != 1 {
		t.Errorf("CheckNetwork = %+v, want one match", check)
	}

	// No attributes at all
	w = postJSON(router, "/v1/threats/check", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty check, got %d", w.Code)
	}
}

func TestHandler_PreviewFingerprints(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postJSON(router, "/v1/fingerprints/preview", gin.H{
		"vendor":        "Acme Supplies",
		"paymentTarget": "0xABC123",
		"amount":        8500,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		VendorHash        string `json:"vendorHash"`
		PaymentTargetHash string `json:"paymentTargetHash"`
		AmountBucket      string `json:"amountBucket"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	if res.VendorHash != fingerprint.Vendor("Acme Supplies") {
		t.Error("vendorHash must match the canonical fingerprint")
	}
	if res.AmountBucket != "5k-20k" {
		t.Errorf("AmountBucket = %s, want 5k-20k", res.AmountBucket)
	}

	// Negative amounts are rejected before hashing
	w = postJSON(router, "/v1/fingerprints/preview", gin.H{"vendor": "x", "amount": -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative amount, got %d", w.Code)
	}
}
