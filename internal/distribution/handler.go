package distribution

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/auth"
)

// Handler exposes the distribution endpoints
type Handler struct {
	coordinator *Coordinator
}

// NewHandler creates a new distribution handler
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// RegisterRoutes mounts the distribution endpoints on a router group
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.POST("", auth.RequireRole(auth.RoleCompany, auth.RoleAdmin), h.Share)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/details", h.ListDetails)
	rg.GET("/:id/export", h.Export)
}

type shareRequestBody struct {
	ReportID    *int64          `json:"report_id"`
	TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
	Formula     ShareFormula    `json:"formula"`
	Description string          `json:"description"`
}

// Share handles POST /distributions. The round is accepted and runs
// asynchronously; callers poll the returned record for completion.
func (h *Handler) Share(c *gin.Context) {
	actor, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var body shareRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Formula != "" && body.Formula != FormulaEnergy && body.Formula != FormulaCredits {
		c.JSON(http.StatusBadRequest, gin.H{"error": "formula must be ENERGY or CREDITS"})
		return
	}

	dist, err := h.coordinator.ShareCompanyProfit(c.Request.Context(), ShareRequest{
		CompanyID:   actor.CompanyID,
		InitiatedBy: actor.UserID,
		ReportID:    body.ReportID,
		TotalAmount: body.TotalAmount,
		Formula:     body.Formula,
		Description: body.Description,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTotal) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept distribution"})
		return
	}
	c.JSON(http.StatusAccepted, dist)
}

// Get handles GET /distributions/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid distribution id"})
		return
	}
	dist, err := h.coordinator.GetDistribution(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load distribution"})
		return
	}
	if dist == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "distribution not found"})
		return
	}
	c.JSON(http.StatusOK, dist)
}

// ListDetails handles GET /distributions/:id/details
func (h *Handler) ListDetails(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid distribution id"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	details, total, err := h.coordinator.ListDetails(c.Request.Context(), id, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list details"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"details":     details,
		"total_count": total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// Export handles GET /distributions/:id/export, streaming an XLSX workbook
func (h *Handler) Export(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid distribution id"})
		return
	}
	dist, err := h.coordinator.GetDistribution(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load distribution"})
		return
	}
	if dist == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "distribution not found"})
		return
	}

	details, err := h.coordinator.ListAllDetails(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list details"})
		return
	}

	file, err := BuildWorkbook(dist, details)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="distribution-%d.xlsx"`, id))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
