package setup

import (
	"context"
	"fmt"

	"github.com/itchan-dev/accounts/backend/internal/handler"
	"github.com/itchan-dev/accounts/backend/internal/service"
	"github.com/itchan-dev/accounts/backend/internal/storage/bunt"
	"github.com/itchan-dev/accounts/backend/internal/storage/pg"
	"github.com/itchan-dev/accounts/backend/internal/utils/email"
	"github.com/itchan-dev/accounts/shared/bancache"
	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/hooks"
	"github.com/itchan-dev/accounts/shared/jwt"
	"github.com/itchan-dev/accounts/shared/logger"
	mw "github.com/itchan-dev/accounts/shared/middleware"
	sharedpg "github.com/itchan-dev/accounts/shared/storage/pg"
	"github.com/itchan-dev/accounts/shared/utils"
	"github.com/itchan-dev/accounts/shared/validation"
)

// Storage is a credential store backend that can also report its health.
type Storage interface {
	service.Storage
	handler.HealthChecker
}

// Dependencies holds everything the API server and the tools need.
type Dependencies struct {
	Config         *config.Config
	Storage        Storage
	EmailQueue     *email.Queue
	BanCache       *bancache.Cache
	Notifications  *service.Notifications
	Reset          *service.ResetTokens
	Passwords      *service.Passwords
	Credentials    *service.Credentials
	Handler        *handler.Handler
	AuthMiddleware *mw.Auth
	Jwt            *jwt.Jwt
}

// SetupDependencies builds the whole object graph. Background workers are
// started separately with Start.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	return setup(cfg, sharedpg.DefaultConnectionConfig())
}

// SetupForTool is SetupDependencies with a small connection pool.
func SetupForTool(cfg *config.Config) (*Dependencies, error) {
	return setup(cfg, sharedpg.LightweightConnectionConfig())
}

func setup(cfg *config.Config, connCfg sharedpg.ConnectionConfig) (*Dependencies, error) {
	public := &cfg.Public

	storage, err := NewStorage(cfg, connCfg)
	if err != nil {
		return nil, err
	}

	urls, err := service.NewURLs(public.Site.URL)
	if err != nil {
		storage.Cleanup()
		return nil, err
	}

	queue := email.NewQueue(email.New(&cfg.Private.Email), public.Notifications.QueueSize)
	hasher := utils.NewHasher(cfg.Private.HashPepper)
	validator := validation.New(ValidationPolicy(public))
	passwords := service.NewPasswords(public.Accounts.BcryptCost)

	credentials := service.NewCredentials(storage, hasher, public.Invites.CodeLength)
	registration := service.NewRegistration(credentials, passwords, validator, public)
	reset := service.NewResetTokens(credentials, storage, passwords, validator, hasher, queue, urls, public)

	banCache := bancache.NewCache(storage, public.Auth.JwtTTL)
	notifications := service.NewNotifications(credentials, queue, service.DefaultMaxPendingEvents)
	events := hooks.NewBus[domain.AccountEvent]()
	bans := service.NewBans(storage, credentials, events, notifications, banCache)
	service.NewBanNotifier(queue, urls, public).Register(events, notifications)

	jwtService := jwt.New(cfg.JwtKey(), public.Auth.JwtTTL)
	authMw := mw.NewAuth(jwtService, banCache, public.HTTP.SecureCookies)

	h := handler.New(registration, reset, credentials, bans, urls, storage, public)

	return &Dependencies{
		Config:         cfg,
		Storage:        storage,
		EmailQueue:     queue,
		BanCache:       banCache,
		Notifications:  notifications,
		Reset:          reset,
		Passwords:      passwords,
		Credentials:    credentials,
		Handler:        h,
		AuthMiddleware: authMw,
		Jwt:            jwtService,
	}, nil
}

// NewStorage opens the backend named by storage.driver.
func NewStorage(cfg *config.Config, connCfg sharedpg.ConnectionConfig) (Storage, error) {
	switch cfg.Public.Storage.Driver {
	case "pg":
		s, err := pg.NewWithConnectionConfig(cfg, connCfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bunt":
		s, err := bunt.New(cfg.Public.Storage.BuntPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Public.Storage.Driver)
	}
}

func ValidationPolicy(cfg *config.Public) validation.Policy {
	return validation.Policy{
		UsernameMinLength: cfg.Accounts.UsernameMinLength,
		UsernameMaxLength: cfg.Accounts.UsernameMaxLength,
		ReservedUsernames: cfg.Accounts.ReservedUsernames,
		PasswordMinLength: cfg.Accounts.PasswordMinLength,
		PasswordMaxBytes:  cfg.Accounts.PasswordMaxBytes,
	}
}

// Start launches the background workers. They stop with ctx.
func (d *Dependencies) Start(ctx context.Context) {
	public := d.Config.Public
	// the queue outlives ctx so the final notification flush still goes out; Close stops it
	d.EmailQueue.Start(context.Background())
	d.BanCache.StartBackgroundUpdate(ctx, public.Auth.BanCacheInterval)
	d.Notifications.StartBackgroundFlush(ctx, public.Notifications.FlushInterval)
	logger.Log.Info("background workers started",
		"ban_cache_interval", public.Auth.BanCacheInterval,
		"notification_flush_interval", public.Notifications.FlushInterval)
}

// Close waits for queued email and releases storage. Call it after the
// context passed to Start is cancelled.
func (d *Dependencies) Close() {
	d.Notifications.Flush()
	d.EmailQueue.Stop()
	if err := d.Storage.Cleanup(); err != nil {
		logger.Log.Error("failed to close storage", "error", err)
	}
}
