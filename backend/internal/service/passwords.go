package service

import (
	"fmt"

	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/utils"
	"github.com/itchan-dev/accounts/shared/validation"
	"golang.org/x/crypto/bcrypt"
)

// GeneratedPasswordLength over a 57-symbol alphabet gives ~70 bits.
const GeneratedPasswordLength = 12

type Passwords struct {
	cost int
}

func NewPasswords(cost int) *Passwords {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Passwords{cost: cost}
}

// Hash rejects passwords bcrypt can't take with a field error, so a caller
// that skipped validation still gets a 400 rather than a 500.
func (p *Passwords) Hash(password string) (string, error) {
	if len(password) > config.MaxPasswordBytes {
		return "", &validation.ValidationError{Field: "password", Reason: fmt.Sprintf("password must be at most %d bytes", config.MaxPasswordBytes)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (p *Passwords) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (p *Passwords) Generate() (string, error) {
	return utils.GenerateRandomString(GeneratedPasswordLength, utils.PasswordCharset)
}
