package database

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Driver reports which backend a DSN selects.
func Driver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Connect opens PostgreSQL for postgres:// URLs and SQLite (pure Go driver)
// for anything else, e.g. "growly.db" or "file:x?mode=memory&cache=shared".
func Connect(dsn string) (*gorm.DB, error) {
	return connect(dsn, os.Stdout)
}

// newLogger reports slow queries and real errors only. Missing rows are an
// expected answer (duplicate checks, 404s) and are not logged.
func newLogger(w io.Writer) gormlogger.Interface {
	return gormlogger.New(log.New(w, "", log.LstdFlags), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func connect(dsn string, logOut io.Writer) (*gorm.DB, error) {
	cfg := &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         newLogger(logOut),
		TranslateError: true,
	}

	if Driver(dsn) == DriverPostgres {
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; one connection keeps in-memory databases
	// shared and avoids SQLITE_BUSY under concurrent requests.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
