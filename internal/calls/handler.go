package calls

import (
	"io"
	"net/http"

	"healthline-api/internal/auth"
	"healthline-api/internal/httpapi"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Start handles POST /functions/v1/vapi-call.
// Chain it after auth.OptionalSession so signed-in callers are attributed.
func (h *Handler) Start(c *gin.Context) {
	// A body that cannot be read or parsed is treated as empty.
	body, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	req := ParseRequest(body)

	ctx := c.Request.Context()
	caller := Caller{
		IP:        httpapi.ClientIP(c.Request),
		UserAgent: c.Request.UserAgent(),
	}
	caller.UserID, _ = auth.UserID(ctx)

	data, err := h.svc.Initiate(ctx, req, caller)
	if err != nil {
		httpapi.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
