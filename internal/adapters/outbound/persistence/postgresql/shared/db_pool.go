package shared

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    20,
		MaxIdleConns:    20,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

func NewDatabasePool(databaseURL string, config PoolConfig, logger *zap.Logger) *sql.DB {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		panic(err)
	}

	if config.MaxOpenConns <= 0 {
		config = DefaultPoolConfig()
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if logger != nil {
		logger.Info("database pool initialized", zap.Int("max_open_conns", config.MaxOpenConns))
	}

	return db
}
