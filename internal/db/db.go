package db

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres database used in production.
func Connect(dsn string) (*gorm.DB, error) {
	// Verbose logger to surface slow queries in the hosting platform's logs.
	lg := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond, // log queries > 100ms
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         lg,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

var testDBSeq atomic.Int64

// ConnectTest opens a fresh in-memory sqlite database so handler tests run
// without a postgres instance. Each call gets its own named shared-cache DB
// so gorm's connection pool sees a single store. TranslateError keeps
// unique-violation mapping identical across drivers.
func ConnectTest() (*gorm.DB, error) {
	name := fmt.Sprintf("file:lmstest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// Keep the shared in-memory DB alive for the life of the handle.
	sqlDB.SetMaxIdleConns(1)
	return gdb, nil
}
