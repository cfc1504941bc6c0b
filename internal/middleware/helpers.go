package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/utils"
)

type contextKey string

const (
	userContextKey         contextKey = "user"
	clientIPContextKey     contextKey = "client_ip"
	trustedProxyContextKey contextKey = "trusted_proxy"
)

// ClientIP resolves the client address once per request and stores it in the
// request context. Proxy headers are honoured according to trust.
func ClientIP(trust *utils.ProxyTrust) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := trust.ClientIP(r)
			ctx := context.WithValue(r.Context(), clientIPContextKey, ip)
			ctx = context.WithValue(ctx, trustedProxyContextKey, trust.Trusts(utils.RemoteIP(r.RemoteAddr)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP returns the address resolved by ClientIP, or the connection's
// remote address when ClientIP did not run.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPContextKey).(string); ok && ip != "" {
		return ip
	}
	return utils.RemoteIP(r.RemoteAddr)
}

// ViaTrustedProxy reports whether ClientIP found the immediate peer to be a
// trusted proxy, so its X-Forwarded-* headers may be used.
func ViaTrustedProxy(r *http.Request) bool {
	trusted, _ := r.Context().Value(trustedProxyContextKey).(bool)
	return trusted
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
