package database

import (
	"io/fs"
	"testing"

	"companion-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	cfg := utils.DatabaseConfig{Host: "db", Port: "5432", Name: "booking", User: "app", Password: "p@ss"}
	assert.Equal(t, "pgx5://app:p%40ss@db:5432/booking?sslmode=disable", MigrationURL(cfg))
	assert.Equal(t, "user=app password=p@ss dbname=booking sslmode=disable host=db port=5432", ConnString(cfg))
}

func TestMigrationsAreEmbeddedInPairs(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	assert.Len(t, ups, 4)
	assert.Len(t, downs, len(ups))
}
