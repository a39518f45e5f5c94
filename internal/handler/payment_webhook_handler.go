package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"referly/config"
	"referly/internal/repository"
	"referly/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentWebhookHandler ingests payment-succeeded and payment-refunded
// notifications from the commerce platform. Delivery is at-least-once;
// idempotency lives in the ledger, this layer only verifies, parses, and
// maps errors to stable categories.
type PaymentWebhookHandler struct {
	ledger *service.LedgerService
	cfg    *config.Config
}

func NewPaymentWebhookHandler(ledger *service.LedgerService, cfg *config.Config) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{ledger: ledger, cfg: cfg}
}

type paymentPayload struct {
	PaymentID    string  `json:"payment_id"`
	MembershipID string  `json:"membership_id"`
	Amount       float64 `json:"amount"`
	PaymentType  string  `json:"payment_type"` // initial | recurring
	ReferredBy   string  `json:"referred_by"`
	CreatorID    uint    `json:"creator_id"`
	Status       string  `json:"status"` // succeeded | refunded
}

func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
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

	var payload paymentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.PaymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_id required"})
		return
	}

	if payload.Status == "refunded" {
		h.handleRefund(c, payload)
		return
	}

	amountCents, err := service.CentsFromAmount(payload.Amount)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_amount"})
		return
	}

	cm, duplicate, err := h.ledger.RecordPayment(service.PaymentEvent{
		PaymentID:    payload.PaymentID,
		MembershipID: payload.MembershipID,
		AmountCents:  amountCents,
		PaymentType:  payload.PaymentType,
		ReferredBy:   payload.ReferredBy,
		CreatorID:    payload.CreatorID,
	})
	switch {
	case err == nil && duplicate:
		// Replay of an already-ledgered payment: acknowledge and return the
		// prior result so the sender stops retrying.
		c.JSON(http.StatusOK, gin.H{"status": "duplicate_ignored", "commission_id": cm.ID})
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "recorded", "commission_id": cm.ID})
	case errors.Is(err, service.ErrNoReferrer):
		c.JSON(http.StatusOK, gin.H{"status": "no_referrer"})
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_amount"})
	case errors.Is(err, repository.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger error"})
	}
}

func (h *PaymentWebhookHandler) handleRefund(c *gin.Context, payload paymentPayload) {
	cm, err := h.ledger.ReversePayment(payload.PaymentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "reversed", "commission_id": cm.ID})
	case errors.Is(err, repository.ErrAlreadyReversed):
		c.JSON(http.StatusOK, gin.H{"status": "duplicate_ignored"})
	case errors.Is(err, repository.ErrCommissionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger error"})
	}
}

func (h *PaymentWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.cfg.Webhook.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
