package handler

import (
	"fmt"
	"log"
	"net/http"

	"referly/config"
	"referly/internal/service"

	"github.com/gin-gonic/gin"
)

type ClickHandler struct {
	attribution *service.AttributionService
	cfg         *config.Config
}

func NewClickHandler(attribution *service.AttributionService, cfg *config.Config) *ClickHandler {
	return &ClickHandler{attribution: attribution, cfg: cfg}
}

// Redirect records a click on a referral link and forwards the visitor to
// the signup page. The redirect always happens: a tracking failure must
// never cost the referrer the visit.
func (h *ClickHandler) Redirect(c *gin.Context) {
	code := c.Param("code")
	fingerprint := c.GetHeader("X-Device-Fingerprint")
	if fingerprint == "" {
		fingerprint, _ = c.Cookie("dfp")
	}
	origin := c.ClientIP() + "|" + c.Request.UserAgent()

	if err := h.attribution.TrackClick(code, fingerprint, origin); err != nil {
		log.Printf("[clicks] track failed for code %s: %v", code, err)
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s?ref=%s", h.cfg.Referral.SignupURL, code))
}
