package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// SecurityHeaders sets conservative response headers on every route.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuth guards the administrative action surface. Every request
// needs the bearer token (the permission check); state-changing methods
// additionally need a valid time-windowed nonce (the anti-forgery
// token, issued by the status endpoint).
func AdminAuth(token string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				logger.Error().Msg("Admin token is not configured; rejecting admin request")
				http.Error(w, "admin surface disabled", http.StatusForbidden)
				return
			}

			auth := r.Header.Get("Authorization")
			want := "Bearer " + token
			if subtle.ConstantTimeCompare([]byte(auth), []byte(want)) != 1 {
				logger.Warn().Str("path", r.URL.Path).Msg("Rejected admin request: bad token")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				if !VerifyNonce(token, r.Header.Get("X-Etsywp-Nonce")) {
					logger.Warn().Str("path", r.URL.Path).Msg("Rejected admin request: bad nonce")
					http.Error(w, "invalid nonce", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Nonce derives the current anti-forgery token. It is an HMAC over the
// UTC date, so issued nonces stay valid for at least a day.
func Nonce(token string) string {
	return nonceFor(token, time.Now().UTC())
}

// VerifyNonce accepts today's and yesterday's nonce.
func VerifyNonce(token, nonce string) bool {
	if nonce == "" {
		return false
	}
	now := time.Now().UTC()
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		if subtle.ConstantTimeCompare([]byte(nonce), []byte(nonceFor(token, day))) == 1 {
			return true
		}
	}
	return false
}

func nonceFor(token string, day time.Time) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write([]byte(day.Format("2006-01-02")))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}
