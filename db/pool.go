package db

import (
	"time"

	"gorm.io/gorm"
)

// Pool holds connection pool limits for networked databases.
type Pool struct {
	MaxOpen int
	MaxIdle int
	MaxLife time.Duration
}

// applyPool sets the pool limits on db's underlying connection pool. Zero
// values keep the driver defaults.
func applyPool(db *gorm.DB, p Pool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if p.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLife > 0 {
		sqlDB.SetConnMaxLifetime(p.MaxLife)
	}
	return nil
}
