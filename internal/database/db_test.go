package database_test

import (
	"path/filepath"
	"testing"

	"comanda/internal/database"
	"comanda/internal/models"
	"comanda/internal/testutil"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open(database.Options{Driver: "mysql", DSN: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Ping(db))

	for _, table := range []string{"categories", "menus", "menu_items", "orders", "order_lines", "admin_users"} {
		assert.True(t, db.HasTable(table), table)
	}
}

func TestOneActiveMenuPerType(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, db.Create(&models.Menu{Name: "Brunch", Type: models.MenuMorning, Active: true}).Error)
	require.NoError(t, db.Create(&models.Menu{Name: "Old brunch", Type: models.MenuMorning}).Error)
	require.NoError(t, db.Create(&models.Menu{Name: "Lunch", Type: models.MenuMidday, Active: true}).Error)

	err := db.Create(&models.Menu{Name: "Second brunch", Type: models.MenuMorning, Active: true}).Error
	assert.Error(t, err)
}

func TestDebugLogsThroughLogrus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "debug.db"),
		Debug:  true,
	}, logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Exec("SELECT 1").Error)

	require.NotEmpty(t, hook.AllEntries())
	entry := hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "gorm", entry.Data["component"])
}
