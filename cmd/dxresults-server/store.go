package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dxresults/dxresults/internal/config"
	"github.com/dxresults/dxresults/internal/domain/diagnostictest"
	"github.com/dxresults/dxresults/internal/platform/db"
)

// store is the storage engine selected by STORE_DRIVER. Exactly one of pool
// and gdb is set for the SQL engines; both are nil for memory.
type store struct {
	repo diagnostictest.DiagnosticTestRepository
	pool *pgxpool.Pool
	gdb  *gorm.DB
	log  zerolog.Logger
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	st := &store{log: logger}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
		})
		if err != nil {
			return nil, err
		}
		st.pool = pool
		st.repo = diagnostictest.NewDiagnosticTestRepoPG(pool)
	case config.DriverMySQL:
		gdb, err := db.NewGorm(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
		if err != nil {
			return nil, err
		}
		st.gdb = gdb
		st.repo = diagnostictest.NewDiagnosticTestRepoGorm(gdb)
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store; records are lost on exit")
		st.repo = diagnostictest.NewDiagnosticTestRepoMemory()
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	return st, nil
}

func (s *store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.gdb != nil {
		if err := db.CloseGorm(s.gdb); err != nil {
			s.log.Warn().Err(err).Msg("closing mysql connection")
		}
	}
}
