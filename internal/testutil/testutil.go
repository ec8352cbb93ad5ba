// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"comanda/internal/database"
	"comanda/internal/events"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// NewDB opens a migrated sqlite database in the test's temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "comanda.db"),
		// one connection keeps sqlite writers from tripping over each other
		MaxOpenConns: 1,
	}, nil)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Logger returns a logger that discards its output.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Recorder collects published events.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// Publish implements events.Publisher.
func (r *Recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// SeedMenu inserts a menu with the given items and returns it.
func SeedMenu(t testing.TB, db *gorm.DB, name string, typ models.MenuCategory, active bool, items ...models.MenuItem) models.Menu {
	t.Helper()

	menu := models.Menu{Name: name, Type: typ, Active: active}
	if err := db.Create(&menu).Error; err != nil {
		t.Fatalf("create menu: %v", err)
	}
	for i := range items {
		items[i].MenuID = menu.ID
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("create menu item: %v", err)
		}
	}
	menu.Items = items
	return menu
}
