package database

import (
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite opens an embedded database. Use ":memory:" for a throwaway store.
func NewSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(gormlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         newLogger(),
	})
	if err != nil {
		return nil, err
	}

	// a single connection keeps ":memory:" databases shared across queries
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// NewTestSQLite returns a migrated in-memory database with quiet logging.
func NewTestSQLite() (*gorm.DB, error) {
	db, err := NewSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	db.Logger = logger.Discard
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
