package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"referly/internal/domain"
	"referly/internal/middleware"
	"referly/internal/models"
	"referly/internal/repository"

	"github.com/gin-gonic/gin"
)

// RateHandler lets a creator set or clear a per-member commission rate
// override. An override always wins over tier lookup.
type RateHandler struct {
	tierRepo   *repository.TierRepository
	memberRepo *repository.MemberRepository
	auditRepo  *repository.AuditLogRepository
}

func NewRateHandler(
	tierRepo *repository.TierRepository,
	memberRepo *repository.MemberRepository,
	auditRepo *repository.AuditLogRepository,
) *RateHandler {
	return &RateHandler{tierRepo: tierRepo, memberRepo: memberRepo, auditRepo: auditRepo}
}

type setRateRequest struct {
	RatePercent float64 `json:"rate_percent" binding:"required"`
	Reason      string  `json:"reason"`
}

func (h *RateHandler) Set(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}
	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate_percent required"})
		return
	}
	if req.RatePercent < domain.MinCustomRatePercent || req.RatePercent > domain.MaxCustomRatePercent {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": fmt.Sprintf("rate_percent must be between %.0f and %.0f",
				domain.MinCustomRatePercent, domain.MaxCustomRatePercent),
		})
		return
	}
	target, err := h.memberRepo.GetByID(uint(memberID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	cr := &models.CustomRate{
		MemberID:    target.ID,
		RatePercent: req.RatePercent,
		Reason:      req.Reason,
		SetByID:     middleware.GetMemberID(c),
	}
	if err := h.tierRepo.UpsertCustomRate(cr); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rate error"})
		return
	}
	h.auditRateChange(c, target.ID, fmt.Sprintf("set to %.2f%%: %s", req.RatePercent, req.Reason))
	c.JSON(http.StatusOK, gin.H{"member_id": target.ID, "rate_percent": cr.RatePercent})
}

func (h *RateHandler) Clear(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}
	if err := h.tierRepo.DeleteCustomRate(uint(memberID)); err != nil {
		if errors.Is(err, repository.ErrRateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rate error"})
		return
	}
	h.auditRateChange(c, uint(memberID), "cleared")
	c.JSON(http.StatusOK, gin.H{"member_id": memberID, "cleared": true})
}

func (h *RateHandler) auditRateChange(c *gin.Context, targetID uint, detail string) {
	_ = h.auditRepo.Create(&models.AuditLog{
		MemberID:   &targetID,
		Action:     "custom_rate_changed",
		Resource:   "custom_rate",
		ResourceID: fmt.Sprintf("%d", targetID),
		Detail:     fmt.Sprintf("by member %d: %s", middleware.GetMemberID(c), detail),
	})
}
