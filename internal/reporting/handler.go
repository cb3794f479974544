package reporting

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"healthline-api/internal/httpapi"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /v1/admin/emergency-calls.
// Query: number, source, from, to (RFC3339 or YYYY-MM-DD), page, page_size.
func (h *Handler) List(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		httpapi.Respond(c, httpapi.BadRequest(err.Error()))
		return
	}
	page, err := optionalInt(c.Query("page"))
	if err != nil {
		httpapi.Respond(c, httpapi.BadRequest("page must be an integer"))
		return
	}
	size, err := optionalInt(c.Query("page_size"))
	if err != nil {
		httpapi.Respond(c, httpapi.BadRequest("page_size must be an integer"))
		return
	}

	out, err := h.svc.List(c.Request.Context(), ListRequest{
		ToNumber: strings.TrimSpace(c.Query("number")),
		Source:   strings.TrimSpace(c.Query("source")),
		From:     from,
		To:       to,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			httpapi.Respond(c, httpapi.BadRequest("page must be >= 1 and page_size one of 10, 20, 50"))
		case errors.Is(err, ErrNotConfigured):
			httpapi.Respond(c, httpapi.ServiceUnavailable("emergency call log is not configured"))
		default:
			httpapi.Respond(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, out)
}

// Summary handles GET /v1/admin/emergency-calls/summary.
func (h *Handler) Summary(c *gin.Context) {
	from, to, err := parseRange(c)
	if err != nil {
		httpapi.Respond(c, httpapi.BadRequest(err.Error()))
		return
	}
	out, err := h.svc.Summary(c.Request.Context(), SummaryRequest{From: from, To: to})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			httpapi.Respond(c, httpapi.BadRequest("to must not be before from"))
		case errors.Is(err, ErrNotConfigured):
			httpapi.Respond(c, httpapi.ServiceUnavailable("emergency call log is not configured"))
		default:
			httpapi.Respond(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, out)
}

func parseRange(c *gin.Context) (*time.Time, *time.Time, error) {
	from, err := optionalTime(c.Query("from"))
	if err != nil {
		return nil, nil, errors.New("from must be RFC3339 or YYYY-MM-DD")
	}
	to, err := optionalTime(c.Query("to"))
	if err != nil {
		return nil, nil, errors.New("to must be RFC3339 or YYYY-MM-DD")
	}
	return from, to, nil
}

// optionalTime parses a bare date as midnight UTC.
func optionalTime(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("invalid time")
}

func optionalInt(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
