package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DBConfig{Host: "db", Port: "5433", Username: "u", Password: "p", Database: "sailsim"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=sailsim sslmode=disable", dsn)
}

func TestOpenSQLite_MigrateAndDump(t *testing.T) {
	db, err := OpenSQLite(NamedMemoryDSN(t.Name()))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	run := model.Run{Name: "dump-me"}
	require.NoError(t, db.Create(&run).Error)

	dir := t.TempDir()
	path := filepath.Join(dir, "runs", "sailsim.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// a second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := OpenSQLite(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.Run{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	dumps, err := ListDumps(filepath.Join(dir, "runs"))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, dumps)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := OpenSQLite(NamedMemoryDSN(t.Name()))
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestListDumps_MissingDir(t *testing.T) {
	_, err := ListDumps(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestManager_FallsBackToSQLite(t *testing.T) {
	m := NewManager(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "sailsim",
	}, zerolog.Nop())

	require.NoError(t, m.Connect())
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.StepSample{}))
	require.NoError(t, m.Close())
}
