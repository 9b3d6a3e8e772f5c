package contract

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for the three ledgers.
type Handler struct {
	backend Backend
}

// NewHandler creates a new ledger handler.
func NewHandler(backend Backend) *Handler {
	return &Handler{backend: backend}
}

// RegisterRoutes sets up mandate, threat, and treasury routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/companies/:companyId/policies", h.ListPolicies)
	r.POST("/companies/:companyId/policies", h.CreatePolicy)
	r.GET("/companies/:companyId/policies/:policyId", h.GetPolicy)
	r.PUT("/companies/:companyId/policies/:policyId", h.UpdatePolicy)
	r.DELETE("/companies/:companyId/policies/:policyId", h.DeletePolicy)

	r.POST("/threats/report", h.ReportThreat)
	r.GET("/threats", h.ListThreats)
	r.GET("/threats/statistics", h.ThreatStatistics)

	r.GET("/treasury/stats", h.GlobalStats)
	r.GET("/treasury/:companyId", h.CompanyTreasury)
	r.GET("/treasury/:companyId/transactions", h.ListTransactions)
}

// RespondError translates a ledger error into an HTTP response using the
// store's error taxonomy.
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, ErrConcurrency):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger_busy", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "ledger operation failed"})
	}
}

// ListPolicies handles GET /companies/:companyId/policies
func (h *Handler) ListPolicies(c *gin.Context) {
	policies, err := h.backend.ListPolicies(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": policies, "count": len(policies)})
}

// CreatePolicy handles POST /companies/:companyId/policies
func (h *Handler) CreatePolicy(c *gin.Context) {
	var p Policy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	p.CompanyID = c.Param("companyId")
	if p.PolicyID == "" {
		p.PolicyID = slugify(p.Name)
	}
	if err := h.backend.AddPolicy(c.Request.Context(), &p); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetPolicy handles GET /companies/:companyId/policies/:policyId
func (h *Handler) GetPolicy(c *gin.Context) {
	p, err := h.backend.GetPolicy(c.Request.Context(), c.Param("companyId"), c.Param("policyId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdatePolicy handles PUT /companies/:companyId/policies/:policyId
func (h *Handler) UpdatePolicy(c *gin.Context) {
	var p Policy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	p.CompanyID = c.Param("companyId")
	p.PolicyID = c.Param("policyId")
	if err := h.backend.UpdatePolicy(c.Request.Context(), &p); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePolicy handles DELETE /companies/:companyId/policies/:policyId
func (h *Handler) DeletePolicy(c *gin.Context) {
	if err := h.backend.DeletePolicy(c.Request.Context(), c.Param("companyId"), c.Param("policyId")); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ReportThreat handles POST /threats/report
func (h *Handler) ReportThreat(c *gin.Context) {
	var t Threat
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	id, err := h.backend.AppendThreat(c.Request.Context(), &t)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"threatId": id})
}

// ListThreats handles GET /threats
func (h *Handler) ListThreats(c *gin.Context) {
	var f ThreatFilter
	f.VendorHash = c.Query("vendorHash")
	f.PaymentTargetHash = c.Query("paymentTargetHash")
	f.InvoiceTemplateHash = c.Query("invoiceTemplateHash")
	f.Since = c.Query("since")
	f.Until = c.Query("until")
	if v := c.Query("minFraudScore"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "minFraudScore must be a number"})
			return
		}
		f.MinFraudScore = score
	}
	threats, err := h.backend.ListThreats(c.Request.Context(), f)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threats": threats, "count": len(threats)})
}

// ThreatStatistics handles GET /threats/statistics
func (h *Handler) ThreatStatistics(c *gin.Context) {
	stats, err := h.backend.ThreatStatistics(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CompanyTreasury handles GET /treasury/:companyId
func (h *Handler) CompanyTreasury(c *gin.Context) {
	t, err := h.backend.CompanyTreasury(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ListTransactions handles GET /treasury/:companyId/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	f := TransactionFilter{
		CompanyID: c.Param("companyId"),
		Status:    Status(c.Query("status")),
		Decision:  Decision(c.Query("decision")),
	}
	txs, err := h.backend.ListTransactions(c.Request.Context(), f)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

// GlobalStats handles GET /treasury/stats
func (h *Handler) GlobalStats(c *gin.Context) {
	stats, err := h.backend.GlobalStats(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

var slugStripRe = regexp.MustCompile(`[^\w\s-]`)
var slugSepRe = regexp.MustCompile(`[-\s]+`)

// slugify derives a policy ID from a human-readable name
// ("Auto Small Invoices" → "auto_small_invoices").
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSepRe.ReplaceAllString(s, "_")
	return s
}
