package httpapi

import (
	"net/http"
	"strings"
)

// ClientIP resolves the original caller address from proxy headers:
// the first X-Forwarded-For entry, then X-Real-Ip. It never falls back to
// the socket address, which behind the edge is the proxy itself.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-Ip"))
}
