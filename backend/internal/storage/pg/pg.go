package pg

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/logger"
	sharedpg "github.com/itchan-dev/accounts/shared/storage/pg"
)

//go:embed migrations/init.sql
var schema string

const queryTimeout = 5 * time.Second

type Querier = sharedpg.Querier

type Storage struct {
	db  *sql.DB
	cfg *config.Config
}

// New connects and makes sure the schema exists.
func New(cfg *config.Config) (*Storage, error) {
	return NewWithConnectionConfig(cfg, sharedpg.DefaultConnectionConfig())
}

func NewWithConnectionConfig(cfg *config.Config, connCfg sharedpg.ConnectionConfig) (*Storage, error) {
	logger.Log.Info("connecting to postgres", "host", cfg.Private.Pg.Host, "dbname", cfg.Private.Pg.Dbname)
	db, err := sharedpg.Connect(cfg, connCfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Log.Info("successfully connected to postgres")

	return &Storage{db: db, cfg: cfg}, nil
}

func (s *Storage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return sharedpg.WithTx(ctx, s.db, fn)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}
