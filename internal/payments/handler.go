package payments

import (
	"encoding/json"
	"io"
	"net/http"

	"healthline-api/internal/httpapi"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 16 << 10

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type verifyRequest struct {
	ConsultationID string `json:"consultationId"`
	Reference      string `json:"reference"`
}

// Verify handles POST /functions/v1/verify-paystack.
func (h *Handler) Verify(c *gin.Context) {
	// Unreadable or malformed bodies fall through to the missing-fields error.
	body, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	var req verifyRequest
	_ = json.Unmarshal(body, &req)

	if err := h.svc.Verify(c.Request.Context(), req.ConsultationID, req.Reference); err != nil {
		httpapi.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
