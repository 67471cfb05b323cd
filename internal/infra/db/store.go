package db

import (
	"fmt"

	"trustmark/internal/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

// NewStore opens Postgres when a DSN is configured, otherwise falls back to
// an embedded sqlite file. Both paths run the same migrations.
func NewStore(cfg config.Config) (*Store, error) {
	var (
		gdb *gorm.DB
		err error
	)
	if cfg.PostgresDSN != "" {
		gdb, err = gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	} else {
		gdb, err = gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return &Store{DB: gdb}, nil
}

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&AssetModel{},
		&ProofModel{},
		&ReceiptModel{},
		&LinkIndexModel{},
		&IdempotencyKeyModel{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
