package db

import (
	"fmt"

	"github.com/skillbridge/skillbridge/server/config"
	dbmysql "github.com/skillbridge/skillbridge/server/db/mysql"
	dbpostgres "github.com/skillbridge/skillbridge/server/db/postgres"
	dbsqlite "github.com/skillbridge/skillbridge/server/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite   = "sqlite"
	ModeMySQL    = "mysql"
	ModePostgres = "postgres"
)

// Open returns a *gorm.DB for the configured database mode. Pool limits
// apply to the networked drivers only.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		gdb, err = dbmysql.Open(cfg.MySQLDSN)
	case ModePostgres:
		gdb, err = dbpostgres.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	if err := applyPool(gdb, Pool{MaxOpen: cfg.MaxOpen, MaxIdle: cfg.MaxIdle, MaxLife: cfg.MaxLife}); err != nil {
		return nil, fmt.Errorf("db: pool: %w", err)
	}
	return gdb, nil
}
