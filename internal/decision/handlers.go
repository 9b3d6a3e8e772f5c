package decision

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/shieldnet/internal/contract"
	"github.com/mbd888/shieldnet/internal/fingerprint"
)

// Handler provides HTTP endpoints for the decision engine.
type Handler struct {
	engine *Engine
}

// NewHandler creates a new decision handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up decision and fingerprint routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/invoices/evaluate", h.Evaluate)
	r.POST("/threats/check", h.CheckNetwork)
	r.POST("/fingerprints/preview", h.PreviewFingerprints)
}

// Evaluate handles POST /invoices/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	result, err := h.engine.Evaluate(c.Request.Context(), &req)
	if err != nil {
		contract.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckNetwork handles POST /threats/check
//
// Accepts either raw attributes (vendor, paymentTarget, invoiceTemplate) or
// pre-computed hashes; raw attributes are fingerprinted server-side so the
// caller never has to reimplement the hashing rules.
func (h *Handler) CheckNetwork(c *gin.Context) {
	var req struct {
		Vendor              string `json:"vendor,omitempty"`
		PaymentTarget       string `json:"paymentTarget,omitempty"`
		PaymentTargetType   string `json:"paymentTargetType,omitempty"`
		InvoiceTemplate     string `json:"invoiceTemplate,omitempty"`
		VendorHash          string `json:"vendorHash,omitempty"`
		PaymentTargetHash   string `json:"paymentTargetHash,omitempty"`
		InvoiceTemplateHash string `json:"invoiceTemplateHash,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	targetType := req.PaymentTargetType
	if targetType == "" {
		targetType = fingerprint.TargetWalletAddress
	}
	if req.VendorHash == "" && req.Vendor != "" {
		req.VendorHash = fingerprint.Vendor(req.Vendor)
	}
	if req.PaymentTargetHash == "" && req.PaymentTarget != "" {
		req.PaymentTargetHash = fingerprint.PaymentTarget(req.PaymentTarget, targetType)
	}
	if req.InvoiceTemplateHash == "" && req.InvoiceTemplate != "" {
		req.InvoiceTemplateHash = fingerprint.InvoiceTemplate(req.InvoiceTemplate)
	}
	if req.VendorHash == "" && req.PaymentTargetHash == "" && req.InvoiceTemplateHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "at least one attribute or hash is required"})
		return
	}
	check, err := h.engine.CheckNetwork(c.Request.Context(), req.VendorHash, req.PaymentTargetHash, req.InvoiceTemplateHash)
	if err != nil {
		contract.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

// PreviewFingerprints handles POST /fingerprints/preview
//
// Returns the anonymized hashes for a set of raw attributes without touching
// any ledger, so integrators can verify what would be shared on a BLOCK.
func (h *Handler) PreviewFingerprints(c *gin.Context) {
	var req struct {
		Vendor            string  `json:"vendor"`
		PaymentTarget     string  `json:"paymentTarget"`
		PaymentTargetType string  `json:"paymentTargetType,omitempty"`
		InvoiceTemplate   string  `json:"invoiceTemplate,omitempty"`
		Amount            float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	targetType := req.PaymentTargetType
	if targetType == "" {
		targetType = fingerprint.TargetWalletAddress
	}
	bucket, err := fingerprint.BucketAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vendorHash":          fingerprint.Vendor(req.Vendor),
		"paymentTargetHash":   fingerprint.PaymentTarget(req.PaymentTarget, targetType),
		"paymentTargetType":   targetType,
		"invoiceTemplateHash": fingerprint.InvoiceTemplate(req.InvoiceTemplate),
		"amountBucket":        bucket,
	})
}
