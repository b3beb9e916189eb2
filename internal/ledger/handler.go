package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/auth"
)

// Handler exposes read-only wallet endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the wallet endpoints on a router group
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/me", h.GetOwnWallet)
	rg.GET("/:id/transactions", h.ListTransactions)
}

// GetOwnWallet handles GET /wallets/me
func (h *Handler) GetOwnWallet(c *gin.Context) {
	actor, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	ownerType := OwnerTypeUser
	ownerID := actor.UserID
	if actor.Role == auth.RoleCompany {
		ownerType = OwnerTypeCompany
		ownerID = actor.CompanyID
	}

	wallet, err := h.service.ResolveWallet(c.Request.Context(), ownerType, ownerID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// ListTransactions handles GET /wallets/:id/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	txns, err := h.service.ListTransactions(c.Request.Context(), id, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"page":         page,
		"page_size":    pageSize,
	})
}
