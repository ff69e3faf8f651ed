package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/middleware/ratelimiter"
	"github.com/itchan-dev/accounts/shared/utils"
)

// maxIdentityBody caps how much of a body is read to find the identity.
const maxIdentityBody = 64 << 10

type IdentityFunc func(r *http.Request) (string, error)

// RateLimit answers 429 once identity has used up its bucket. Admins are
// never limited.
func RateLimit(rl *ratelimiter.Limiter, getIdentity IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal := GetPrincipalFromContext(r); principal != nil && principal.Admin {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !rl.Allow(identity) {
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipalID keys by account; the route must run behind auth.
func GetPrincipalID(r *http.Request) (string, error) {
	principal := GetPrincipalFromContext(r)
	if principal == nil {
		return "", &errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized}
	}
	return "account_" + principal.Id.String(), nil
}

// GetIP uses RemoteAddr only; forwarding headers are client controlled.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}
	return ip, nil
}

// GetFieldFromBody keys by a string field of the JSON body, lower-cased. The
// body is restored for the handler. A missing field falls back to the IP so
// malformed requests still count against someone.
func GetFieldFromBody(field string) IdentityFunc {
	return func(r *http.Request) (string, error) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdentityBody))
		if err != nil {
			return "", &errors.ErrorWithStatusCode{Message: "Failed to read request body", StatusCode: http.StatusBadRequest}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var data map[string]any
		if json.Unmarshal(body, &data) == nil {
			if value, ok := data[field].(string); ok && strings.TrimSpace(value) != "" {
				return field + "_" + strings.ToLower(strings.TrimSpace(value)), nil
			}
		}
		return GetIP(r)
	}
}
