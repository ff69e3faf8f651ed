package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/itchan-dev/accounts/shared/domain"
	jwt_internal "github.com/itchan-dev/accounts/shared/jwt"
	"github.com/itchan-dev/accounts/shared/utils"
)

// BanCache is what the auth middleware asks before trusting a token.
type BanCache interface {
	IsBanned(id domain.AccountId) bool
}

type key int

const PrincipalKey key = 0

const AccessTokenCookie = "accessToken"

type Auth struct {
	jwtService    jwt_internal.JwtService
	banCache      BanCache
	secureCookies bool
}

func NewAuth(jwtService jwt_internal.JwtService, banCache BanCache, secureCookies bool) *Auth {
	return &Auth{
		jwtService:    jwtService,
		banCache:      banCache,
		secureCookies: secureCookies,
	}
}

func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth(false)
}

func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.auth(true)
}

// OptionalAuth puts the principal into the context when the request carries
// a valid token and lets the request through either way.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, err := a.extractPrincipal(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), PrincipalKey, principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	errNoToken = errorString("no token")
	errBanned  = errorString("banned")
)

type errorString string

func (e errorString) Error() string { return string(e) }

// extractPrincipal reads the token from the cookie (browsers) or the
// Authorization header (API clients).
func (a *Auth) extractPrincipal(r *http.Request) (*domain.Principal, error) {
	var tokenString string
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		tokenString = cookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	}
	if tokenString == "" {
		return nil, errNoToken
	}

	principal, err := a.jwtService.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}
	if a.banCache != nil && a.banCache.IsBanned(principal.Id) {
		return nil, errBanned
	}
	return &principal, nil
}

func (a *Auth) auth(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.extractPrincipal(r)
			if err != nil {
				switch err {
				case errNoToken:
					http.Error(w, "Please sign-in", http.StatusUnauthorized)
				case errBanned:
					// force a fresh login once the ban is lifted
					http.SetCookie(w, &http.Cookie{
						Path:     "/",
						Name:     AccessTokenCookie,
						Value:    "",
						MaxAge:   -1,
						HttpOnly: true,
						Secure:   a.secureCookies,
						SameSite: http.SameSiteLaxMode,
					})
					http.Error(w, "Account suspended", http.StatusForbidden)
				default:
					utils.WriteErrorAndStatusCode(w, err)
				}
				return
			}

			if adminOnly && !principal.Admin {
				http.Error(w, "Access denied. Only for admin", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetPrincipalFromContext(r *http.Request) *domain.Principal {
	principal, ok := r.Context().Value(PrincipalKey).(*domain.Principal)
	if !ok {
		return nil
	}
	return principal
}
