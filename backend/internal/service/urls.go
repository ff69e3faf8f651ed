package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/hooks"
	"github.com/itchan-dev/accounts/shared/logger"
)

const (
	URLRegistration  = "registration"
	URLLogin         = "login"
	URLPasswordReset = "password_reset"
)

// URLRequest is what URL hooks receive. A hook may change any field; a
// non-empty Override replaces the generated URL entirely.
type URLRequest struct {
	Kind     string
	Path     string
	Query    url.Values
	Fragment string
	Override string
}

type URLs struct {
	base  *url.URL
	hooks *hooks.Chain[URLRequest]
}

func NewURLs(siteURL string) (*URLs, error) {
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site url %q: %w", siteURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &URLs{base: base, hooks: hooks.NewChain[URLRequest]()}, nil
}

// Hooks is where URL rewriting handlers get registered.
func (u *URLs) Hooks() *hooks.Chain[URLRequest] {
	return u.hooks
}

func (u *URLs) SiteURL() string {
	return u.base.String()
}

func (u *URLs) RegistrationURL(query url.Values, fragment string) string {
	return u.build(URLRequest{Kind: URLRegistration, Path: "register", Query: query, Fragment: fragment})
}

func (u *URLs) LoginURL(query url.Values, fragment string) string {
	return u.build(URLRequest{Kind: URLLogin, Path: "login", Query: query, Fragment: fragment})
}

// InviteURL is the registration URL carrying an inviter and their code.
func (u *URLs) InviteURL(username domain.Username, code string) string {
	return u.RegistrationURL(url.Values{"inviter": {username}, "invitecode": {code}}, "")
}

func (u *URLs) PasswordResetURL(id domain.AccountId, code string) string {
	return u.build(URLRequest{
		Kind:  URLPasswordReset,
		Path:  "password/reset",
		Query: url.Values{"account": {id.String()}, "code": {code}},
	})
}

func (u *URLs) build(req URLRequest) string {
	// hooks must not touch the caller's values
	req.Query = cloneValues(req.Query)
	original := req
	original.Query = cloneValues(req.Query)

	if err := u.hooks.Run(&req); err != nil {
		logger.Log.Warn("url hook failed, using default url", "kind", req.Kind, "error", err)
		req = original
	}
	if req.Override != "" {
		return req.Override
	}

	ref := &url.URL{Path: strings.TrimPrefix(req.Path, "/"), RawQuery: req.Query.Encode(), Fragment: req.Fragment}
	return u.base.ResolveReference(ref).String()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
