package db

import (
	"campusmarket/src/models"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Dialector(driver string, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres", "":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func Open(driver string, dsn string) (*gorm.DB, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	_db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		return nil, err
	}
	sqlDB, err := _db.DB()
	if err != nil {
		log.Printf("Error establishing connection to database: %s\n", err.Error())
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	if driver == "sqlite" {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}
	return _db, nil
}

// NewMemoryDB opens a migrated, private in-memory SQLite database.
func NewMemoryDB(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	_db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := _db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(_db); err != nil {
		return nil, err
	}
	return _db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.Booking{},
		&models.Notification{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("error migration: %w", err)
	}
	return nil
}
