package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationSourceFindsEmbeddedFiles(t *testing.T) {
	migrations, err := MigrationSource().FindMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "001_users.sql", migrations[0].Id)
	assert.Equal(t, "002_mood_entries.sql", migrations[1].Id)

	for _, m := range migrations {
		assert.NotEmpty(t, m.Up, m.Id)
		assert.NotEmpty(t, m.Down, m.Id)
	}
}

func TestMoodMigrationDeclaresDailyUniqueness(t *testing.T) {
	migrations, err := MigrationSource().FindMigrations()
	require.NoError(t, err)

	var up string
	for _, stmt := range migrations[1].Up {
		up += stmt
	}
	assert.Contains(t, up, "CONSTRAINT mood_entries_user_day_key UNIQUE (user_id, entry_date)")
}
