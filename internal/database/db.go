package database

import (
	"fmt"
	"time"

	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Options configures a database handle.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}

// Open connects to the database and configures the connection pool.
// The caller owns the returned handle and must Close it.
func Open(opts Options, logger *logrus.Logger) (*gorm.DB, error) {
	switch opts.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if logger != nil {
		db.SetLogger(gormLogger{logger.WithField("component", "gorm")})
	}
	db.LogMode(opts.Debug)

	if opts.MaxIdleConns > 0 {
		db.DB().SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		db.DB().SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.DB().SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return db, nil
}

// Migrate creates or updates every table the service uses and the
// one-active-menu-per-type index that AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Category{},
		&models.Menu{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderLine{},
		&models.AdminUser{},
	).Error
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_menus_one_active_per_type ON menus ("type") WHERE active`).Error
	if err != nil {
		return fmt.Errorf("create active menu index: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func Ping(db *gorm.DB) error {
	return db.DB().Ping()
}

// gormLogger routes gorm's SQL log through logrus.
type gormLogger struct {
	entry *logrus.Entry
}

func (l gormLogger) Print(v ...interface{}) {
	l.entry.Debug(gorm.LogFormatter(v...)...)
}
