package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"referly/config"
	"referly/internal/service"

	"github.com/gin-gonic/gin"

	"gorm.io/gorm"
)

// SignupWebhookHandler ingests signup-created notifications. It creates
// the member, issues a referral code, and resolves the attribution click
// when the signup carried a referral code.
type SignupWebhookHandler struct {
	attribution *service.AttributionService
	cfg         *config.Config
}

func NewSignupWebhookHandler(attribution *service.AttributionService, cfg *config.Config) *SignupWebhookHandler {
	return &SignupWebhookHandler{attribution: attribution, cfg: cfg}
}

type signupPayload struct {
	MembershipID string  `json:"membership_id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	ReferredBy   string  `json:"referred_by"`
	Amount       float64 `json:"amount"` // signup sale amount, for conversion value
	CommunityID  uint    `json:"community_id"`
	SignupTime   string  `json:"signup_time"` // RFC3339, optional
}

func (h *SignupWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if h.cfg.Webhook.Secret != "" {
		if !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	var payload signupPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.MembershipID == "" || payload.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "membership_id and email required"})
		return
	}

	signupTime := time.Now()
	if payload.SignupTime != "" {
		if t, perr := time.Parse(time.RFC3339, payload.SignupTime); perr == nil {
			signupTime = t
		}
	}
	amountCents, err := service.CentsFromAmount(payload.Amount)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_amount"})
		return
	}

	member, err := h.attribution.ResolveSignup(service.SignupEvent{
		MembershipID: payload.MembershipID,
		Email:        payload.Email,
		Name:         payload.Name,
		ReferredBy:   payload.ReferredBy,
		SignupTime:   signupTime,
		CommunityID:  payload.CommunityID,
	}, amountCents)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Redelivered signup event; the member already exists.
			c.JSON(http.StatusOK, gin.H{"status": "duplicate_ignored"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "created",
		"member_id":     member.ID,
		"referral_code": member.ReferralCode,
		"member_origin": member.MemberOrigin,
	})
}

func (h *SignupWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.cfg.Webhook.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
