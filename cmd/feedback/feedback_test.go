package feedback

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

func seededSettings(t *testing.T, entries ...[3]string) *conf.Settings {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "wall.db")
	settings.Feedback.PageSize = 2

	ds := datastore.New(settings, logger.NewConsoleLogger("test", logger.LogLevelError))
	require.NoError(t, ds.Open())
	for _, e := range entries {
		_, err := ds.InsertFeedback(t.Context(), e[0], e[1], e[2])
		require.NoError(t, err)
	}
	require.NoError(t, ds.Close())
	return settings
}

func execute(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListPaginates(t *testing.T) {
	settings := seededSettings(t,
		[3]string{"Jane", "jane@example.com", "First"},
		[3]string{"John", "john@example.com", "Second"},
		[3]string{"Ann", "ann@example.com", "Third"},
	)

	out, err := execute(t, settings, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "john@example.com")
	assert.NotContains(t, out, "ann@example.com")

	out, err = execute(t, settings, "list", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "ann@example.com")

	out, err = execute(t, settings, "list", "--page", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "no feedback")
}

func TestDelete(t *testing.T) {
	settings := seededSettings(t, [3]string{"Jane", "jane@example.com", "Bye"})

	out, err := execute(t, settings, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted feedback 1")

	_, err = execute(t, settings, "delete", "1")
	assert.Error(t, err, "deleting a missing entry fails")

	_, err = execute(t, settings, "delete", "abc")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "a b c", summarize("a\n b\t c"))

	long := summarize(strings.Repeat("x", 100))
	assert.Len(t, []rune(long), descriptionWidth)
	assert.True(t, strings.HasSuffix(long, "..."))
}
