package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/totegamma/questlog/internal/infrastructure/database/models"
)

func newLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             300 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)
}

func NewPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newLogger(),
	})
	return db, err
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Campaign{},
		&models.Adventure{},
		&models.Session{},
		&models.Quest{},
		&models.Character{},
		&models.NPC{},
		&models.Location{},
		&models.MagicItem{},
		&models.Relation{},
		&models.MagicItemAssignment{},
	)
}
