package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/itchan-dev/accounts/shared/logger"
	"github.com/itchan-dev/accounts/shared/utils"
	"github.com/itchan-dev/accounts/shared/validation"
)

// ResetTokens runs the password reset flow:
// NoActiveToken -> TokenIssued -> Consumed | Expired.
type ResetTokens struct {
	accounts  *Credentials
	tokens    ResetTokenStorage
	passwords *Passwords
	validator *validation.Engine
	hasher    *utils.Hasher
	transport NotificationTransport
	urls      *URLs
	cfg       *config.Public
	now       func() time.Time
}

func NewResetTokens(
	accounts *Credentials,
	tokens ResetTokenStorage,
	passwords *Passwords,
	validator *validation.Engine,
	hasher *utils.Hasher,
	transport NotificationTransport,
	urls *URLs,
	cfg *config.Public,
) *ResetTokens {
	return &ResetTokens{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		validator: validator,
		hasher:    hasher,
		transport: transport,
		urls:      urls,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SendNewPasswordRequest issues a fresh code for the account, replacing any
// earlier one, and mails it. The bool is false when the account has no usable
// email address; no token is stored then. A failed send is logged only.
func (r *ResetTokens) SendNewPasswordRequest(id domain.AccountId) (domain.ResetToken, bool, error) {
	account, err := r.accounts.GetById(id)
	if err != nil {
		return domain.ResetToken{}, false, err
	}
	if r.validator.ValidateEmailAddress(strings.TrimSpace(account.Email)) != nil {
		logger.Log.Info("reset skipped, account has no usable email", "account_id", id)
		return domain.ResetToken{}, false, nil
	}

	code, err := utils.GenerateConfirmationCode(r.cfg.Reset.CodeLength)
	if err != nil {
		return domain.ResetToken{}, false, err
	}
	issued := r.now().UTC()
	token := domain.ResetToken{
		AccountId: id,
		CodeHash:  r.hasher.Hash(code),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(r.cfg.Reset.TTL),
	}
	if err := r.tokens.SaveResetToken(token); err != nil {
		return domain.ResetToken{}, false, err
	}
	passwordResetsTotal.WithLabelValues("issued").Inc()

	link := r.urls.PasswordResetURL(id, code)
	body := fmt.Sprintf(`Hello %s,

Somebody (hopefully you) asked to reset the password of your account **%s** on %s.

Your confirmation code is: **%s**

Follow the link below to choose a new password. The code stops working in %s.

%s

If you did not ask for this, ignore this email; your password stays the same.
`, account.Name(), account.Username, r.cfg.Site.Name, code, humanDuration(r.cfg.Reset.TTL), link)

	r.send(domain.Notification{
		RecipientId: id,
		Recipient:   account.Email,
		Subject:     fmt.Sprintf("%s: password reset request", r.cfg.Site.Name),
		Body:        body,
		URL:         link,
		Channel:     domain.ChannelEmail,
		Language:    account.Language,
	}, "password_reset")

	logger.Log.Info("password reset token issued", "account_id", id, "expires_at", token.ExpiresAt)
	return token, true, nil
}

// RequestPasswordReset accepts a username or an email address. Unknown
// identities are not an error, so callers can't probe for accounts.
func (r *ResetTokens) RequestPasswordReset(usernameOrEmail string) error {
	identity := strings.TrimSpace(usernameOrEmail)
	if identity == "" {
		return nil
	}

	account, err := r.accounts.GetByUsername(identity)
	if err == nil {
		_, _, err = r.SendNewPasswordRequest(account.Id)
		return err
	}
	if !errors.IsNotFound(err) {
		return err
	}

	accounts, err := r.accounts.GetByEmail(identity)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		logger.Log.Debug("password reset requested for unknown identity")
	}
	for _, a := range accounts {
		if _, _, err := r.SendNewPasswordRequest(a.Id); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteNewPasswordRequest consumes the account's reset token and sets the
// new password. An empty newPassword gets a generated one, which the caller
// must deliver (see NotifyNewPassword). Every token problem is the same
// ErrInvalidToken.
func (r *ResetTokens) ExecuteNewPasswordRequest(id domain.AccountId, code string, newPassword domain.Password) (domain.PasswordReset, error) {
	generated := false
	if newPassword == "" {
		var err error
		newPassword, err = r.passwords.Generate()
		if err != nil {
			return domain.PasswordReset{}, err
		}
		generated = true
	}
	if err := r.validator.ValidatePassword(newPassword); err != nil {
		return domain.PasswordReset{}, err
	}
	if strings.TrimSpace(code) == "" {
		passwordResetsTotal.WithLabelValues("rejected").Inc()
		return domain.PasswordReset{}, errors.InvalidToken()
	}

	passHash, err := r.passwords.Hash(newPassword)
	if err != nil {
		return domain.PasswordReset{}, err
	}

	err = r.tokens.ConsumeResetToken(id, r.hasher.Hash(code), passHash, r.now().UTC())
	if err != nil {
		if errors.Is(err, errors.ErrInvalidToken) || errors.IsNotFound(err) {
			passwordResetsTotal.WithLabelValues("rejected").Inc()
			logger.Log.Info("password reset rejected", "account_id", id)
			return domain.PasswordReset{}, errors.InvalidToken()
		}
		return domain.PasswordReset{}, err
	}

	passwordResetsTotal.WithLabelValues("consumed").Inc()
	logger.Log.Info("password reset completed", "account_id", id, "generated", generated)
	return domain.PasswordReset{Password: newPassword, Generated: generated}, nil
}

// NotifyNewPassword mails a generated password to the account owner.
func (r *ResetTokens) NotifyNewPassword(id domain.AccountId, password domain.Password) error {
	account, err := r.accounts.GetById(id)
	if err != nil {
		return err
	}
	login := r.urls.LoginURL(nil, "")
	body := fmt.Sprintf(`Hello %s,

Your password on %s has been reset. Your new password is: **%s**

You can log in here: %s
`, account.Name(), r.cfg.Site.Name, password, login)

	r.send(domain.Notification{
		RecipientId: id,
		Recipient:   account.Email,
		Subject:     fmt.Sprintf("%s: your new password", r.cfg.Site.Name),
		Body:        body,
		URL:         login,
		Channel:     domain.ChannelEmail,
		Language:    account.Language,
	}, "new_password")
	return nil
}

// ForcePasswordReset sets a password without any token. Administrative use
// only; it is not wired to any HTTP route.
func (r *ResetTokens) ForcePasswordReset(id domain.AccountId, password domain.Password) error {
	if err := r.validator.ValidatePassword(password); err != nil {
		return err
	}
	passHash, err := r.passwords.Hash(password)
	if err != nil {
		return err
	}
	if err := r.accounts.SetPasswordHash(id, passHash); err != nil {
		return err
	}
	passwordResetsTotal.WithLabelValues("forced").Inc()
	logger.Log.Warn("password force-reset", "account_id", id)
	return nil
}

func (r *ResetTokens) send(n domain.Notification, event string) {
	if err := r.transport.Send(n); err != nil {
		notificationsTotal.WithLabelValues(event, "failed").Inc()
		logger.Log.Error("failed to send notification", "event", event, "account_id", n.RecipientId, "error", err)
		return
	}
	notificationsTotal.WithLabelValues(event, "sent").Inc()
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d hour(s)", int(d/time.Hour))
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%d minute(s)", int(d/time.Minute))
	}
	return d.String()
}
