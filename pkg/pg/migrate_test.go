package pg

import (
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_CreateTheTableTheSourceReads(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	created := regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+(\w+)`)
	var tables []string
	for _, name := range files {
		data, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		for _, m := range created.FindAllStringSubmatch(string(data), -1) {
			tables = append(tables, m[1])
		}
	}
	assert.Equal(t, []string{OverridesTable}, tables)
	assert.Equal(t, `"`+OverridesTable+`"`, NewSource(nil).table)
}
