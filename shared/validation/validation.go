// Package validation checks usernames, passwords and email addresses against
// the configured account policy. Every check is pure and returns either nil or
// a *ValidationError.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// usernameCharset keeps usernames usable as a single path component.
var usernameCharset = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

const usernameSeparators = "._-"

type Policy struct {
	UsernameMinLength int
	UsernameMaxLength int
	ReservedUsernames []string
	PasswordMinLength int
	// PasswordMaxBytes limits the encoded length; bcrypt stops at 72 bytes.
	PasswordMaxBytes int
}

type Engine struct {
	policy   Policy
	reserved map[string]struct{}
	validate *validator.Validate
}

func New(policy Policy) *Engine {
	v := validator.New()
	// registration only fails on an empty tag name, which this is not
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameCharset.MatchString(fl.Field().String())
	})

	reserved := make(map[string]struct{}, len(policy.ReservedUsernames))
	for _, name := range policy.ReservedUsernames {
		reserved[strings.ToLower(name)] = struct{}{}
	}

	return &Engine{policy: policy, reserved: reserved, validate: v}
}

func (e *Engine) ValidateUsername(username string) error {
	if username == "" {
		return fail("username", "username is required")
	}
	if err := e.validate.Var(username, "username"); err != nil {
		return fail("username", "username may only contain letters, digits, '.', '_' and '-'")
	}
	if strings.ContainsAny(username[:1], usernameSeparators) || strings.ContainsAny(username[len(username)-1:], usernameSeparators) {
		return fail("username", "username can not start or end with '.', '_' or '-'")
	}
	if e.policy.UsernameMinLength > 0 && len(username) < e.policy.UsernameMinLength {
		return fail("username", "username must be at least %d characters", e.policy.UsernameMinLength)
	}
	if e.policy.UsernameMaxLength > 0 && len(username) > e.policy.UsernameMaxLength {
		return fail("username", "username must be at most %d characters", e.policy.UsernameMaxLength)
	}
	if _, ok := e.reserved[strings.ToLower(username)]; ok {
		return fail("username", "username is reserved")
	}
	return nil
}

func (e *Engine) ValidatePassword(password string) error {
	if password == "" {
		return fail("password", "password is required")
	}
	if utf8.RuneCountInString(password) < e.policy.PasswordMinLength {
		return fail("password", "password must be at least %d characters", e.policy.PasswordMinLength)
	}
	if e.policy.PasswordMaxBytes > 0 && len(password) > e.policy.PasswordMaxBytes {
		return fail("password", "password must be at most %d bytes", e.policy.PasswordMaxBytes)
	}
	return nil
}

// ValidatePasswordPair is ValidatePassword for forms with a confirmation field.
func (e *Engine) ValidatePasswordPair(password, confirmation string) error {
	if err := e.ValidatePassword(password); err != nil {
		return err
	}
	if password != confirmation {
		return fail("password", "passwords do not match")
	}
	return nil
}

func (e *Engine) ValidateEmailAddress(email string) error {
	if email == "" {
		return fail("email", "email is required")
	}
	if err := e.validate.Var(email, "email"); err != nil {
		return fail("email", "%q is not a valid email address", email)
	}
	return nil
}
