package credits

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/auth"
)

// Handler exposes issuance and read-only batch/credit endpoints
type Handler struct {
	issuer *Issuer
}

// NewHandler creates a new credits handler
func NewHandler(issuer *Issuer) *Handler {
	return &Handler{issuer: issuer}
}

// RegisterRoutes mounts the credits endpoints on a router group
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.POST("/issue/:reportId", auth.RequireRole(auth.RoleAdmin), h.IssueForReport)
	rg.GET("/batches", h.ListBatches)
	rg.GET("/batches/:id", h.GetBatch)
	rg.GET("", h.ListCredits)
	rg.GET("/:id", h.GetCredit)
}

// IssueForReport handles POST /credits/issue/:reportId
func (h *Handler) IssueForReport(c *gin.Context) {
	actor, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	reportID, err := strconv.ParseInt(c.Param("reportId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	summary, err := h.issuer.IssueForReport(c.Request.Context(), reportID, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrReportNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrReportNotApproved), errors.Is(err, ErrInvalidQuantity):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, ErrAlreadyIssued):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "issuance failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// ListBatches handles GET /credits/batches
func (h *Handler) ListBatches(c *gin.Context) {
	filter := BatchFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if v := c.Query("company_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.CompanyID = &id
		}
	}
	if v := c.Query("project_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.ProjectID = &id
		}
	}

	batches, total, err := h.issuer.ListBatches(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batches":     batches,
		"total_count": total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
	})
}

// GetBatch handles GET /credits/batches/:id
func (h *Handler) GetBatch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	batch, err := h.issuer.GetBatch(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch"})
		return
	}
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	c.JSON(http.StatusOK, batch)
}

// ListCredits handles GET /credits
func (h *Handler) ListCredits(c *gin.Context) {
	filter := CreditFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if v := c.Query("batch_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.BatchID = &id
		}
	}
	if v := c.Query("company_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.CompanyID = &id
		}
	}
	if v := c.Query("status"); v != "" {
		status := CreditStatus(v)
		filter.Status = &status
	}

	credits, total, err := h.issuer.ListCredits(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list credits"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"credits":     credits,
		"total_count": total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
	})
}

// GetCredit handles GET /credits/:id
func (h *Handler) GetCredit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit id"})
		return
	}
	credit, err := h.issuer.GetCredit(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load credit"})
		return
	}
	if credit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "credit not found"})
		return
	}
	c.JSON(http.StatusOK, credit)
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
