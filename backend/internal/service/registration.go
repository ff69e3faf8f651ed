package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/backend/internal/service/utils"
	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/logger"
	"github.com/itchan-dev/accounts/shared/validation"
)

type RegisterRequest struct {
	Username    domain.Username
	Password    domain.Password
	DisplayName string
	Email       domain.Email
	Language    domain.Language

	// AllowMultipleEmails skips the email uniqueness check for this call.
	AllowMultipleEmails bool

	Inviter    domain.Username
	InviteCode string
}

// AccountData is a form submission checked with ValidateAccountData. A nil
// PasswordConfirmation means the form has a single password field.
type AccountData struct {
	Username             domain.Username
	Password             domain.Password
	PasswordConfirmation *domain.Password
	Email                domain.Email
	// AllowMultipleEmails has the same meaning as in RegisterRequest.
	AllowMultipleEmails bool
}

type Registration struct {
	credentials *Credentials
	passwords   *Passwords
	validator   *validation.Engine
	cfg         *config.Public
}

func NewRegistration(credentials *Credentials, passwords *Passwords, validator *validation.Engine, cfg *config.Public) *Registration {
	return &Registration{
		credentials: credentials,
		passwords:   passwords,
		validator:   validator,
		cfg:         cfg,
	}
}

// Register creates an account. Field problems come back as the first
// *validation.ValidationError; policy refusals as *errors.RegistrationError.
func (r *Registration) Register(req RegisterRequest) (domain.AccountId, error) {
	id, err := r.register(req)
	if err != nil {
		registrationsTotal.WithLabelValues("rejected").Inc()
		return uuid.Nil, err
	}
	registrationsTotal.WithLabelValues("created").Inc()
	return id, nil
}

func (r *Registration) register(req RegisterRequest) (domain.AccountId, error) {
	if r.cfg.Accounts.RegistrationDisabled {
		return uuid.Nil, errors.Registration("Registration is disabled", nil)
	}
	if r.cfg.Invites.Required && !r.credentials.ValidateInviteCode(req.Inviter, req.InviteCode) {
		return uuid.Nil, errors.Registration("A valid invite code is required to register", nil)
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if err := r.validator.ValidateUsername(username); err != nil {
		return uuid.Nil, err
	}
	if err := r.validator.ValidatePassword(req.Password); err != nil {
		return uuid.Nil, err
	}
	if err := r.validator.ValidateEmailAddress(email); err != nil {
		return uuid.Nil, err
	}

	uniqueEmail := r.uniqueEmail(req.AllowMultipleEmails)
	if uniqueEmail {
		if err := r.checkEmailFree(email); err != nil {
			return uuid.Nil, err
		}
	}

	passHash, err := r.passwords.Hash(req.Password)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return uuid.Nil, err
	}

	displayName := utils.SanitizeDisplayName(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = r.cfg.Accounts.DefaultLanguage
	}

	id, err := r.credentials.Create(domain.NewAccount{
		Username:    username,
		Email:       email,
		PassHash:    passHash,
		DisplayName: displayName,
		Language:    language,
	}, uniqueEmail)
	if err != nil {
		if errors.Is(err, errors.ErrDuplicateUsername) {
			return uuid.Nil, errors.Registration("Username is already taken", err)
		}
		return uuid.Nil, err
	}

	logger.Log.Info("account registered", "account_id", id)
	return id, nil
}

// uniqueEmail reports whether an email may belong to one account only.
func (r *Registration) uniqueEmail(allowMultiple bool) bool {
	return !(allowMultiple || r.cfg.Accounts.AllowMultipleEmails)
}

func (r *Registration) checkEmailFree(email domain.Email) error {
	existing, err := r.credentials.GetByEmail(email)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return errors.DuplicateEmail()
	}
	return nil
}

// ValidateAccountData runs every check Register would, collecting all failures
// instead of stopping at the first.
func (r *Registration) ValidateAccountData(data AccountData) *validation.Results {
	results := &validation.Results{}

	results.Add(r.validator.ValidateUsername(strings.TrimSpace(data.Username)))
	if data.PasswordConfirmation != nil {
		results.Add(r.validator.ValidatePasswordPair(data.Password, *data.PasswordConfirmation))
	} else {
		results.Add(r.validator.ValidatePassword(data.Password))
	}

	email := strings.TrimSpace(data.Email)
	if err := r.validator.ValidateEmailAddress(email); err != nil {
		results.Add(err)
	} else if r.uniqueEmail(data.AllowMultipleEmails) {
		if err := r.checkEmailFree(email); err != nil {
			if errors.Is(err, errors.ErrDuplicateEmail) {
				results.Add(&validation.ValidationError{Field: "email", Reason: "email is already registered"})
			} else {
				logger.Log.Error("failed to check email availability", "error", err)
				results.Add(&validation.ValidationError{Field: "email", Reason: "email could not be checked, try again later"})
			}
		}
	}
	return results
}
